package editor

import (
	"errors"
	"fmt"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// Ishikawa editor del tablero de causas por categoría
type Ishikawa struct {
	data    *rca.IshikawaData
	commit  func(*rca.IshikawaData)
	confirm Confirmer
}

// NewIshikawa crea el editor sobre una copia de data
func NewIshikawa(data *rca.IshikawaData, commit func(*rca.IshikawaData), confirm Confirmer) *Ishikawa {
	if data == nil {
		data = rca.NewIshikawaData()
	}
	return &Ishikawa{data: data.Clone(), commit: commit, confirm: confirm}
}

// Categories categorías en orden de presentación
func (e *Ishikawa) Categories() []rca.Category {
	return e.data.Categories()
}

// Causes causas de una categoría
func (e *Ishikawa) Causes(id string) []string {
	return e.data.Causes(id)
}

// AddCategory agrega una categoría. Si el id derivado ya existe se ignora en
// silencio y added es false.
func (e *Ishikawa) AddCategory(label string) (id string, added bool, err error) {
	next := e.data.Clone()
	id, err = next.AddCategory(label)
	if errors.Is(err, rca.ErrCategoryExists) {
		return id, false, nil
	}
	if err != nil {
		return "", false, err
	}
	e.apply(next)
	return id, true, nil
}

// RemoveCategory elimina la categoría y sus causas (requiere confirmación)
func (e *Ishikawa) RemoveCategory(id string) error {
	next := e.data.Clone()
	if err := next.RemoveCategory(id); err != nil {
		return err
	}
	if err := confirmed(e.confirm, fmt.Sprintf("¿Eliminar la categoría %s y todas sus causas?", id)); err != nil {
		return err
	}
	e.apply(next)
	return nil
}

// AddCause agrega una causa al final de la categoría
func (e *Ishikawa) AddCause(id, cause string) error {
	next := e.data.Clone()
	if err := next.AddCause(id, cause); err != nil {
		return err
	}
	e.apply(next)
	return nil
}

// EditCause reemplaza la causa; un texto vacío se rechaza y se conserva el original
func (e *Ishikawa) EditCause(id string, index int, cause string) error {
	next := e.data.Clone()
	if err := next.SetCause(id, index, cause); err != nil {
		return err
	}
	e.apply(next)
	return nil
}

// RemoveCause quita una causa (requiere confirmación)
func (e *Ishikawa) RemoveCause(id string, index int) error {
	next := e.data.Clone()
	if err := next.RemoveCause(id, index); err != nil {
		return err
	}
	if err := confirmed(e.confirm, fmt.Sprintf("¿Eliminar la causa %d de %s?", index+1, id)); err != nil {
		return err
	}
	e.apply(next)
	return nil
}

func (e *Ishikawa) apply(next *rca.IshikawaData) {
	e.data = next
	if e.commit != nil {
		e.commit(next.Clone())
	}
}
