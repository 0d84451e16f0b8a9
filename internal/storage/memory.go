package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// Memory almacén en memoria. Guarda los documentos serializados para que
// cada lectura devuelva una copia independiente.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	order []string
}

// NewMemory crea un almacén vacío
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// Upsert guarda o reemplaza el registro
func (m *Memory) Upsert(_ context.Context, p *rca.Problem) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.docs[p.ID] = data
	return nil
}

// Get obtiene un registro por id
func (m *Memory) Get(_ context.Context, id string) (*rca.Problem, error) {
	m.mu.RLock()
	data, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode(data)
}

// List devuelve los registros en orden de alta
func (m *Memory) List(_ context.Context) ([]*rca.Problem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	problems := make([]*rca.Problem, 0, len(m.order))
	for _, id := range m.order {
		p, err := decode(m.docs[id])
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, nil
}

// Close no libera nada
func (m *Memory) Close() error { return nil }
