package rca

import "fmt"

// DefaultWhys cantidad de niveles con que se inicia la cadena
const DefaultWhys = 5

// FiveWhysData cadena causal de los 5 porqués. Siempre tiene al menos un nivel.
type FiveWhysData struct {
	Whys []string `json:"whys"`
}

// NewFiveWhysData crea la cadena con cinco niveles vacíos
func NewFiveWhysData() *FiveWhysData {
	return &FiveWhysData{Whys: make([]string, DefaultWhys)}
}

// Set reemplaza el porqué en la posición indicada (sin validar contenido)
func (f *FiveWhysData) Set(index int, value string) error {
	if index < 0 || index >= len(f.Whys) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	f.Whys[index] = value
	return nil
}

// Append agrega un nivel vacío al final
func (f *FiveWhysData) Append() {
	f.Whys = append(f.Whys, "")
}

// Remove quita el nivel indicado; no se permite dejar la cadena vacía
func (f *FiveWhysData) Remove(index int) error {
	if index < 0 || index >= len(f.Whys) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if len(f.Whys) <= 1 {
		return ErrLastWhy
	}
	f.Whys = append(f.Whys[:index:index], f.Whys[index+1:]...)
	return nil
}

// Replace sustituye la cadena completa (sugerencias de IA)
func (f *FiveWhysData) Replace(whys []string) error {
	if len(whys) == 0 {
		return ErrLastWhy
	}
	f.Whys = append([]string{}, whys...)
	return nil
}

// Answered devuelve los niveles con contenido, en orden
func (f *FiveWhysData) Answered() []string {
	if f == nil {
		return nil
	}
	var out []string
	for _, w := range f.Whys {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Clone copia profunda
func (f *FiveWhysData) Clone() *FiveWhysData {
	if f == nil {
		return nil
	}
	return &FiveWhysData{Whys: append([]string{}, f.Whys...)}
}
