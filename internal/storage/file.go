package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// File guarda cada registro en un archivo JSON individual
type File struct {
	basePath string
}

// NewFile crea el almacén, creando el directorio base si no existe
func NewFile(basePath string) (*File, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("error creando directorio de registros: %w", err)
	}
	return &File{basePath: basePath}, nil
}

// Upsert escribe el registro; si ya existe se reemplaza.
// Escribe a un temporal y renombra para no dejar archivos a medias.
func (s *File) Upsert(_ context.Context, p *rca.Problem) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	path := s.path(p.ID)
	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("error creando temporal: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error escribiendo registro %s: %w", p.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Get carga un registro desde su archivo
func (s *File) Get(_ context.Context, id string) (*rca.Problem, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// List obtiene todos los registros almacenados
func (s *File) List(_ context.Context) ([]*rca.Problem, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	problems := make([]*rca.Problem, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.basePath, name))
		if err != nil {
			return nil, err
		}
		p, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}

// Close no libera nada; existe para cumplir Store
func (s *File) Close() error { return nil }

// path genera la ruta del archivo. Los ids con minúsculas, dígitos, '-' y
// '_' se usan tal cual; cualquier otro se codifica en hexadecimal con prefijo
// '~', así dos ids distintos nunca comparten archivo (tampoco en sistemas de
// archivos que no distinguen mayúsculas).
func (s *File) path(id string) string {
	return filepath.Join(s.basePath, fileName(id)+".json")
}

func fileName(id string) string {
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return "~" + hex.EncodeToString([]byte(id))
		}
	}
	return id
}
