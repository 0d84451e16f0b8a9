package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contiene toda la configuración del sistema
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Gemini   GeminiConfig
	Wizard   WizardConfig
	Discord  DiscordConfig
	Jira     JiraConfig
	LogLevel string
}

// ServerConfig configuración del servidor HTTP
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig configuración de almacenamiento
type StorageConfig struct {
	Driver     string // sqlite, mysql, file o memory
	SQLitePath string
	BasePath   string // Directorio base para archivos individuales
}

// DatabaseConfig configuración de la base de datos MySQL
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// GeminiConfig configuración del servicio de IA
type GeminiConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	PromptsFile string // Catálogo YAML opcional
}

// WizardConfig configuración del asistente
type WizardConfig struct {
	Mode            string // staged o deferred
	SuggestFailOpen bool
	SessionTTL      time.Duration
}

// DiscordConfig configuración del bot de Discord
type DiscordConfig struct {
	BotToken       string
	Channels       map[string]string // Map de área -> channel ID
	DefaultChannel string
	NotifyLevels   []string // Criticidades que se notifican
}

// JiraConfig configuración de conexión a Jira
type JiraConfig struct {
	URL      string
	Username string
	APIToken string
	Project  string
	Status   string // Estado específico a buscar
}

// Enabled indica si hay credenciales de Jira
func (j JiraConfig) Enabled() bool {
	return j.URL != "" && j.Username != "" && j.APIToken != ""
}

var (
	storageDrivers = map[string]bool{"sqlite": true, "mysql": true, "file": true, "memory": true}
	wizardModes    = map[string]bool{"staged": true, "deferred": true}
)

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// Cargar archivo .env si existe
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Addr:         getEnvOrDefault("SERVER_ADDR", ":3000"),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "sqlite")),
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "sig_audit.db"),
			BasePath:   getEnvOrDefault("STORAGE_BASE_PATH", "data/problems"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "3306"),
			Username: os.Getenv("DB_USERNAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: getEnvOrDefault("DB_DATABASE", "sig_audit"),
		},
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnvOrDefault("GEMINI_MODEL", "gemini-3-flash-preview"),
			Timeout:     time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 45)) * time.Second,
			Temperature: getEnvFloat("GEMINI_TEMPERATURE", 0.2),
			PromptsFile: os.Getenv("PROMPTS_FILE"),
		},
		Wizard: WizardConfig{
			Mode:            strings.ToLower(getEnvOrDefault("WIZARD_MODE", "staged")),
			SuggestFailOpen: getEnvOrDefault("WIZARD_SUGGEST_FAIL_OPEN", "true") != "false",
			SessionTTL:      time.Duration(getEnvInt("WIZARD_SESSION_TTL_MINUTES", 120)) * time.Minute,
		},
		Discord: DiscordConfig{
			BotToken:       os.Getenv("DISCORD_BOT_TOKEN"),
			Channels:       parseDiscordChannels(),
			DefaultChannel: os.Getenv("DISCORD_DEFAULT_CHANNEL"),
			NotifyLevels:   parseList(getEnvOrDefault("DISCORD_NOTIFY_CRITICIDAD", "Alta")),
		},
		Jira: JiraConfig{
			URL:      os.Getenv("JIRA_URL"),
			Username: os.Getenv("JIRA_USERNAME"),
			APIToken: os.Getenv("JIRA_API_TOKEN"),
			Project:  os.Getenv("JIRA_PROJECT"),
			Status:   os.Getenv("JIRA_STATUS"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	return config, nil
}

// Validate rechaza valores que no tienen un valor por defecto razonable
func (c *Config) Validate() error {
	if !storageDrivers[c.Storage.Driver] {
		return fmt.Errorf("STORAGE_DRIVER inválido %q (sqlite, mysql, file, memory)", c.Storage.Driver)
	}
	if !wizardModes[c.Wizard.Mode] {
		return fmt.Errorf("WIZARD_MODE inválido %q (staged, deferred)", c.Wizard.Mode)
	}
	if c.Storage.Driver == "mysql" && c.Database.Username == "" {
		return fmt.Errorf("DB_USERNAME es obligatorio con STORAGE_DRIVER=mysql")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt valores no numéricos o no positivos usan el valor por defecto
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseDiscordChannels parsea los canales de Discord desde variables de entorno
// Formato esperado: DISCORD_CHANNELS="area1:channelID1,area2:channelID2"
func parseDiscordChannels() map[string]string {
	channels := make(map[string]string)

	channelsEnv := os.Getenv("DISCORD_CHANNELS")
	if channelsEnv == "" {
		return channels
	}

	// Dividir por comas para obtener cada asignación
	pairs := strings.Split(channelsEnv, ",")
	for _, pair := range pairs {
		// Dividir cada par por el último ':' (el área puede tener espacios, el id no)
		idx := strings.LastIndex(pair, ":")
		if idx <= 0 {
			continue
		}
		area := strings.TrimSpace(pair[:idx])
		channelID := strings.TrimSpace(pair[idx+1:])
		if area != "" && channelID != "" {
			channels[area] = channelID
		}
	}

	return channels
}
