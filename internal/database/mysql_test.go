package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/storage"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db.local", Port: "3307", Username: "auditor", Password: "p@ss:word", Database: "sig_audit"}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "auditor", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "sig_audit", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestCreateTableStoresDocumentAsText(t *testing.T) {
	assert.Contains(t, createTableQuery, "data       LONGTEXT")
	assert.NotContains(t, strings.ToUpper(createTableQuery), " JSON ")
}

func TestDocumentKeepsCustomCategoryOrder(t *testing.T) {
	p := rca.NewProblem(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	p.ID = "rca-001"
	zona, err := p.IshikawaData.AddCategory("Zona B")
	require.NoError(t, err)
	clima, err := p.IshikawaData.AddCategory("Clima")
	require.NoError(t, err)

	// Upsert y Get pasan el documento como texto sin tocarlo
	data, err := storage.Encode(p)
	require.NoError(t, err)
	got, err := storage.Decode([]byte(string(data)))
	require.NoError(t, err)

	cats := got.IshikawaData.Categories()
	require.GreaterOrEqual(t, len(cats), 2)
	assert.Equal(t, zona, cats[len(cats)-2].ID)
	assert.Equal(t, clima, cats[len(cats)-1].ID)
}
