package evaluator

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts instrucciones de sistema de cada operación.
// Se cargan una sola vez al iniciar para evitar I/O repetido en cada llamada.
type Prompts struct {
	Recommend string `yaml:"recommend"`
	Ishikawa  string `yaml:"ishikawa"`
	FiveWhys  string `yaml:"five_whys"`
	Analyze   string `yaml:"analyze"`
	Actions   string `yaml:"actions"`
}

// DefaultPrompts devuelve el catálogo embebido
func DefaultPrompts() *Prompts {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		panic(fmt.Sprintf("prompts embebidos inválidos: %v", err))
	}
	return &p
}

// LoadPrompts parte del catálogo embebido y reemplaza las entradas definidas
// en path. Falla explícitamente si el archivo no existe o no es YAML válido.
func LoadPrompts(path string) (*Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no se pudo cargar catálogo de prompts (%s): %w", path, err)
	}
	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("catálogo de prompts inválido (%s): %w", path, err)
	}
	p.merge(override)
	return p, nil
}

func (p *Prompts) merge(o Prompts) {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&p.Recommend, o.Recommend},
		{&p.Ishikawa, o.Ishikawa},
		{&p.FiveWhys, o.FiveWhys},
		{&p.Analyze, o.Analyze},
		{&p.Actions, o.Actions},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
}
