package editor

import (
	"fmt"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// FiveWhys editor de la cadena causal
type FiveWhys struct {
	data    *rca.FiveWhysData
	commit  func(*rca.FiveWhysData)
	confirm Confirmer
}

// NewFiveWhys crea el editor sobre una copia de data
func NewFiveWhys(data *rca.FiveWhysData, commit func(*rca.FiveWhysData), confirm Confirmer) *FiveWhys {
	if data == nil {
		data = rca.NewFiveWhysData()
	}
	return &FiveWhys{data: data.Clone(), commit: commit, confirm: confirm}
}

// Whys niveles actuales
func (e *FiveWhys) Whys() []string {
	return append([]string{}, e.data.Whys...)
}

// Edit reemplaza el nivel indicado sin validar el contenido
func (e *FiveWhys) Edit(index int, value string) error {
	next := e.data.Clone()
	if err := next.Set(index, value); err != nil {
		return err
	}
	e.apply(next)
	return nil
}

// Append agrega un nivel vacío
func (e *FiveWhys) Append() {
	next := e.data.Clone()
	next.Append()
	e.apply(next)
}

// Remove quita un nivel (requiere confirmación, solo con más de un nivel)
func (e *FiveWhys) Remove(index int) error {
	if index < 0 || index >= len(e.data.Whys) {
		return fmt.Errorf("%w: %d", rca.ErrIndexOutOfRange, index)
	}
	if len(e.data.Whys) <= 1 {
		return rca.ErrLastWhy
	}
	if err := confirmed(e.confirm, fmt.Sprintf("¿Eliminar el nivel %d?", index+1)); err != nil {
		return err
	}
	next := e.data.Clone()
	if err := next.Remove(index); err != nil {
		return err
	}
	e.apply(next)
	return nil
}

func (e *FiveWhys) apply(next *rca.FiveWhysData) {
	e.data = next
	if e.commit != nil {
		e.commit(next.Clone())
	}
}
