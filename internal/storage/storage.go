// Package storage persiste los registros de análisis como documentos JSON
// indexados por id. Upsert sobrescribe sin control de concurrencia: gana la
// última escritura.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PhelGc/sig-rca/internal/rca"
)

var (
	// ErrNotFound no existe un registro con ese id
	ErrNotFound = errors.New("registro no encontrado")
	// ErrMissingID se intentó guardar un registro sin id
	ErrMissingID = errors.New("el registro no tiene id")
)

// Store contrato del almacén de registros
type Store interface {
	List(ctx context.Context) ([]*rca.Problem, error)
	Get(ctx context.Context, id string) (*rca.Problem, error)
	Upsert(ctx context.Context, p *rca.Problem) error
	Close() error
}

func encode(p *rca.Problem) ([]byte, error) {
	if p == nil || p.ID == "" {
		return nil, ErrMissingID
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error serializando registro %s: %w", p.ID, err)
	}
	return data, nil
}

func decode(data []byte) (*rca.Problem, error) {
	var p rca.Problem
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("registro corrupto: %w", err)
	}
	return &p, nil
}

// Encode serializa el registro tal como lo guardan los almacenes
func Encode(p *rca.Problem) ([]byte, error) { return encode(p) }

// Decode interpreta un documento guardado
func Decode(data []byte) (*rca.Problem, error) { return decode(data) }
