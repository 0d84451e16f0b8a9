package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/PhelGc/sig-rca/internal/rca"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS problems (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);`

// SQLite almacén embebido: una fila (id, documento JSON) por registro
type SQLite struct {
	db *sql.DB
}

// OpenSQLite abre o crea la base en path y asegura el esquema
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creando directorio de la base: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error abriendo sqlite: %w", err)
	}
	// sqlite admite un solo escritor
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error haciendo ping a sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creando tabla problems: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Upsert inserta o reemplaza el registro
func (s *SQLite) Upsert(ctx context.Context, p *rca.Problem) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO problems (id, data) VALUES (?, ?)`, p.ID, string(data))
	if err != nil {
		return fmt.Errorf("error guardando registro %s: %w", p.ID, err)
	}
	return nil
}

// Get obtiene un registro por id
func (s *SQLite) Get(ctx context.Context, id string) (*rca.Problem, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM problems WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando registro %s: %w", id, err)
	}
	return decode([]byte(data))
}

// List obtiene todos los registros
func (s *SQLite) List(ctx context.Context) ([]*rca.Problem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM problems ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("error listando registros: %w", err)
	}
	defer rows.Close()

	problems := []*rca.Problem{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("error escaneando registro: %w", err)
		}
		p, err := decode([]byte(data))
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// Close cierra la base
func (s *SQLite) Close() error {
	return s.db.Close()
}
