package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/storage"
)

// Client almacén de registros sobre MySQL
type Client struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config datos de conexión
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN arma la cadena de conexión del driver
func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + c.Port
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	return cfg.FormatDSN()
}

// NewClient abre la conexión, verifica con ping y crea la tabla si falta
func NewClient(ctx context.Context, config *Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error conectando a MySQL: %w", err)
	}

	// Pool de conexiones
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error haciendo ping a MySQL: %w", err)
	}

	logger.Info("Conexión establecida con MySQL", zap.String("host", config.Host), zap.String("port", config.Port))

	c := &Client{db: db, logger: logger}
	if err := c.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// createTableQuery el documento se guarda como texto: una columna JSON
// normaliza el orden de las claves y pierde el de las categorías de Ishikawa
const createTableQuery = `
CREATE TABLE IF NOT EXISTS problems (
	id         VARCHAR(64) NOT NULL,
	data       LONGTEXT    NOT NULL,
	updated_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (id),
	INDEX idx_updated (updated_at)
) DEFAULT CHARSET = utf8mb4;`

// CreateTable crea la tabla problems si no existe
func (c *Client) CreateTable(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("error creando tabla problems: %w", err)
	}

	c.logger.Info("Tabla problems verificada/creada exitosamente")
	return nil
}

// Upsert inserta o actualiza el documento del registro
func (c *Client) Upsert(ctx context.Context, p *rca.Problem) error {
	data, err := storage.Encode(p)
	if err != nil {
		return err
	}
	query := `
	INSERT INTO problems (id, data, updated_at)
	VALUES (?, ?, NOW())
	ON DUPLICATE KEY UPDATE
		data       = VALUES(data),
		updated_at = NOW()`

	if _, err := c.db.ExecContext(ctx, query, p.ID, string(data)); err != nil {
		return fmt.Errorf("error guardando registro %s: %w", p.ID, err)
	}
	return nil
}

// Get obtiene un registro por id
func (c *Client) Get(ctx context.Context, id string) (*rca.Problem, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM problems WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando registro %s: %w", id, err)
	}
	return storage.Decode(data)
}

// List obtiene todos los registros. Un documento corrupto se registra y se omite.
func (c *Client) List(ctx context.Context) ([]*rca.Problem, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, data FROM problems ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("error listando registros: %w", err)
	}
	defer rows.Close()

	problems := []*rca.Problem{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			c.logger.Error("Error escaneando registro", zap.Error(err))
			continue
		}
		p, err := storage.Decode(data)
		if err != nil {
			c.logger.Error("Registro corrupto omitido", zap.String("id", id), zap.Error(err))
			continue
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// Close cierra la conexión con la base de datos
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

var _ storage.Store = (*Client)(nil)
