package rca

import (
	"fmt"
	"strconv"
	"time"
)

// SuggestedActionID id asignado a la acción sugerida en la posición i
func SuggestedActionID(i int) string {
	return "suggested-" + strconv.Itoa(i)
}

// NewAction acción en blanco para que el usuario la complete
func NewAction(now time.Time) Action {
	return Action{
		ID:    strconv.FormatInt(now.UnixMilli(), 10),
		Tipo:  ActionCorrective,
		Fecha: now.Format(DateLayout),
	}
}

// ActionPatch cambios parciales sobre una acción; los campos nil no se tocan
type ActionPatch struct {
	Tipo        *ActionType `json:"tipo,omitempty"`
	Descripcion *string     `json:"descripcion,omitempty"`
	Responsable *string     `json:"responsable,omitempty"`
	Fecha       *string     `json:"fecha,omitempty"`
	Indicador   *string     `json:"indicador,omitempty"`
	Evidencia   *string     `json:"evidencia,omitempty"`
	Costo       *float64    `json:"costo,omitempty"`
	ClearCosto  bool        `json:"clearCosto,omitempty"`
}

// Apply aplica el parche sobre la acción
func (p ActionPatch) Apply(a *Action) {
	if p.Tipo != nil {
		a.Tipo = *p.Tipo
	}
	if p.Descripcion != nil {
		a.Descripcion = *p.Descripcion
	}
	if p.Responsable != nil {
		a.Responsable = *p.Responsable
	}
	if p.Fecha != nil {
		a.Fecha = *p.Fecha
	}
	if p.Indicador != nil {
		a.Indicador = *p.Indicador
	}
	if p.Evidencia != nil {
		a.Evidencia = *p.Evidencia
	}
	if p.Costo != nil {
		v := *p.Costo
		a.Costo = &v
	}
	if p.ClearCosto {
		a.Costo = nil
	}
}

// FindAction devuelve la posición de la acción con el id dado
func FindAction(actions []Action, id string) (int, error) {
	for i, a := range actions {
		if a.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrActionNotFound, id)
}

// UniqueActionID garantiza que el id no choque con uno existente
func UniqueActionID(actions []Action, id string) string {
	candidate := id
	for n := 1; ; n++ {
		if _, err := FindAction(actions, candidate); err != nil {
			return candidate
		}
		candidate = id + "-" + strconv.Itoa(n)
	}
}
