package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp evita que un .env del repositorio afecte las pruebas
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

var allKeys = []string{
	"SERVER_ADDR", "SERVER_READ_TIMEOUT_SECONDS", "SERVER_WRITE_TIMEOUT_SECONDS",
	"STORAGE_DRIVER", "SQLITE_PATH", "STORAGE_BASE_PATH",
	"DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_DATABASE",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_TIMEOUT_SECONDS", "GEMINI_TEMPERATURE", "PROMPTS_FILE",
	"WIZARD_MODE", "WIZARD_SUGGEST_FAIL_OPEN", "WIZARD_SESSION_TTL_MINUTES",
	"DISCORD_BOT_TOKEN", "DISCORD_CHANNELS", "DISCORD_DEFAULT_CHANNEL", "DISCORD_NOTIFY_CRITICIDAD",
	"JIRA_URL", "JIRA_USERNAME", "JIRA_API_TOKEN", "JIRA_PROJECT", "JIRA_STATUS", "LOG_LEVEL",
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t, allKeys...)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "sig_audit.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "data/problems", cfg.Storage.BasePath)
	assert.Equal(t, "sig_audit", cfg.Database.Database)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Gemini.Model)
	assert.Equal(t, 45*time.Second, cfg.Gemini.Timeout)
	assert.InDelta(t, 0.2, cfg.Gemini.Temperature, 1e-9)
	assert.Equal(t, "staged", cfg.Wizard.Mode)
	assert.True(t, cfg.Wizard.SuggestFailOpen)
	assert.Equal(t, 2*time.Hour, cfg.Wizard.SessionTTL)
	assert.Equal(t, []string{"Alta"}, cfg.Discord.NotifyLevels)
	assert.Empty(t, cfg.Discord.Channels)
	assert.False(t, cfg.Jira.Enabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	chdirTemp(t)
	clearEnv(t, allKeys...)
	t.Setenv("STORAGE_DRIVER", "MySQL")
	t.Setenv("DB_USERNAME", "auditor")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "abc")
	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "30")
	t.Setenv("WIZARD_MODE", "deferred")
	t.Setenv("WIZARD_SUGGEST_FAIL_OPEN", "false")
	t.Setenv("WIZARD_SESSION_TTL_MINUTES", "30")
	t.Setenv("DISCORD_CHANNELS", "Producción:111, Mantenimiento Planta:222,invalido,:333")
	t.Setenv("DISCORD_NOTIFY_CRITICIDAD", "Alta, Media,")
	t.Setenv("JIRA_URL", "https://acme.atlassian.net")
	t.Setenv("JIRA_USERNAME", "bot@acme.com")
	t.Setenv("JIRA_API_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "mysql", cfg.Storage.Driver)
	assert.Equal(t, 45*time.Second, cfg.Gemini.Timeout, "valor inválido usa el por defecto")
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "deferred", cfg.Wizard.Mode)
	assert.False(t, cfg.Wizard.SuggestFailOpen)
	assert.Equal(t, 30*time.Minute, cfg.Wizard.SessionTTL)
	assert.Equal(t, map[string]string{"Producción": "111", "Mantenimiento Planta": "222"}, cfg.Discord.Channels)
	assert.Equal(t, []string{"Alta", "Media"}, cfg.Discord.NotifyLevels)
	assert.True(t, cfg.Jira.Enabled())
}

func TestLoadReadsDotEnv(t *testing.T) {
	chdirTemp(t)
	clearEnv(t, allKeys...)
	// godotenv no pisa variables ya definidas, aunque estén vacías
	require.NoError(t, os.Unsetenv("SERVER_ADDR"))
	require.NoError(t, os.WriteFile(".env", []byte("SERVER_ADDR=:8088\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8088", cfg.Server.Addr)
	require.NoError(t, os.Unsetenv("SERVER_ADDR"))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Storage: StorageConfig{Driver: "sqlite"},
			Wizard:  WizardConfig{Mode: "staged"},
		}
	}
	assert.NoError(t, base().Validate())

	c := base()
	c.Storage.Driver = "postgres"
	assert.ErrorContains(t, c.Validate(), "STORAGE_DRIVER")

	c = base()
	c.Wizard.Mode = "turbo"
	assert.ErrorContains(t, c.Validate(), "WIZARD_MODE")

	c = base()
	c.Storage.Driver = "mysql"
	assert.ErrorContains(t, c.Validate(), "DB_USERNAME")
}
