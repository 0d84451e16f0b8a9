package editor

import (
	"fmt"
	"time"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// ActionPlan editor del plan de acción. No permite reordenar.
type ActionPlan struct {
	actions []rca.Action
	commit  func([]rca.Action)
	confirm Confirmer
	now     func() time.Time
}

// NewActionPlan crea el editor sobre una copia del plan
func NewActionPlan(actions []rca.Action, commit func([]rca.Action), confirm Confirmer, now func() time.Time) *ActionPlan {
	if now == nil {
		now = time.Now
	}
	return &ActionPlan{actions: rca.CloneActions(actions), commit: commit, confirm: confirm, now: now}
}

// Actions acciones actuales
func (e *ActionPlan) Actions() []rca.Action {
	return rca.CloneActions(e.actions)
}

// Add agrega una acción Correctiva con la fecha de hoy y devuelve su id
func (e *ActionPlan) Add() string {
	a := rca.NewAction(e.now())
	a.ID = rca.UniqueActionID(e.actions, a.ID)
	next := append(rca.CloneActions(e.actions), a)
	e.apply(next)
	return a.ID
}

// Update modifica los campos presentes en el parche
func (e *ActionPlan) Update(id string, patch rca.ActionPatch) error {
	if patch.Tipo != nil && !patch.Tipo.Valid() {
		return fmt.Errorf("%w: tipo %q", rca.ErrValidation, *patch.Tipo)
	}
	idx, err := rca.FindAction(e.actions, id)
	if err != nil {
		return err
	}
	next := rca.CloneActions(e.actions)
	patch.Apply(&next[idx])
	e.apply(next)
	return nil
}

// Remove quita la acción (requiere confirmación)
func (e *ActionPlan) Remove(id string) error {
	idx, err := rca.FindAction(e.actions, id)
	if err != nil {
		return err
	}
	if err := confirmed(e.confirm, fmt.Sprintf("¿Eliminar la acción %q?", e.actions[idx].Descripcion)); err != nil {
		return err
	}
	next := rca.CloneActions(e.actions)
	next = append(next[:idx], next[idx+1:]...)
	e.apply(next)
	return nil
}

func (e *ActionPlan) apply(next []rca.Action) {
	if next == nil {
		next = []rca.Action{}
	}
	e.actions = next
	if e.commit != nil {
		e.commit(rca.CloneActions(next))
	}
}
