// sig-rca registra hallazgos de calidad y guía su análisis de causa raíz.
//
// Uso:
//
//	sig-rca serve            servidor HTTP (comando por defecto)
//	sig-rca list             tabla de registros guardados
//	sig-rca show <id>        informe de un registro
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/config"
	"github.com/PhelGc/sig-rca/internal/database"
	"github.com/PhelGc/sig-rca/internal/logging"
	"github.com/PhelGc/sig-rca/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "sig-rca",
	Short: "Análisis de causa raíz de hallazgos del SIG",
	Long:  "Registra hallazgos de calidad, guía el análisis con Ishikawa, 5 Porqués o 5W2H\ny genera el plan de acción con ayuda de Gemini.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig carga y valida la configuración y arma el logger
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("error cargando configuración: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("error creando logger: %w", err)
	}
	return cfg, logger, nil
}

// openStore abre el almacén según STORAGE_DRIVER
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "mysql":
		return database.NewClient(ctx, &database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
		}, logger)
	case "file":
		return storage.NewFile(cfg.Storage.BasePath)
	case "memory":
		return storage.NewMemory(), nil
	default:
		return storage.OpenSQLite(cfg.Storage.SQLitePath)
	}
}
