// Package editor implementa los editores de cada metodología. Cada editor
// trabaja sobre una copia del sub-documento y entrega un reemplazo completo
// por medio de la función commit en cada mutación.
package editor

import (
	"errors"
)

// ErrNotConfirmed la operación destructiva no fue confirmada por el usuario
var ErrNotConfirmed = errors.New("operación no confirmada")

// Confirmer pregunta al usuario antes de una operación destructiva
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapta una función a Confirmer
type ConfirmFunc func(prompt string) bool

// Confirm implementa Confirmer
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Always confirma todo; útil para procesos sin interacción
var Always Confirmer = ConfirmFunc(func(string) bool { return true })

// Never rechaza todo
var Never Confirmer = ConfirmFunc(func(string) bool { return false })

func confirmed(c Confirmer, prompt string) error {
	if c == nil || !c.Confirm(prompt) {
		return ErrNotConfirmed
	}
	return nil
}
