package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/config"
	"github.com/PhelGc/sig-rca/internal/discord"
	"github.com/PhelGc/sig-rca/internal/evaluator"
	"github.com/PhelGc/sig-rca/internal/jira"
	"github.com/PhelGc/sig-rca/internal/server"
	"github.com/PhelGc/sig-rca/internal/wizard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Inicia el servidor HTTP",
	Long: `Inicia el servidor HTTP con la API de registros, el asistente de análisis,
el tablero y los borradores de Jira. Se detiene con SIGINT o SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("SIG RCA iniciando...", zap.String("storage", cfg.Storage.Driver), zap.String("mode", cfg.Wizard.Mode))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("error inicializando almacenamiento: %w", err)
	}
	defer store.Close()

	svc, err := newEvaluator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts, closeNotifiers, err := wizardOptions(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifiers()

	var drafts server.DraftSource
	if cfg.Jira.Enabled() {
		client, err := jira.NewClient(cfg.Jira)
		if err != nil {
			return fmt.Errorf("error creando cliente Jira: %w", err)
		}
		drafts = client
		logger.Info("Borradores de Jira habilitados", zap.String("project", cfg.Jira.Project))
	}

	sessions := wizard.NewManager(svc, store, opts)
	go sessions.RunSweeper(ctx)

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		// las llamadas al modelo necesitan casi todo el tiempo de escritura
		RequestTimeout: cfg.Server.WriteTimeout - time.Second,
	}, store, sessions, drafts, logger)

	return srv.Run(ctx)
}

// newEvaluator crea el cliente de Gemini con el catálogo de prompts opcional
func newEvaluator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*evaluator.Client, error) {
	prompts := evaluator.DefaultPrompts()
	if cfg.Gemini.PromptsFile != "" {
		loaded, err := evaluator.LoadPrompts(cfg.Gemini.PromptsFile)
		if err != nil {
			return nil, err
		}
		prompts = loaded
		logger.Info("Catálogo de prompts cargado", zap.String("path", cfg.Gemini.PromptsFile))
	}

	svc, err := evaluator.NewClient(ctx, evaluator.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Timeout:     cfg.Gemini.Timeout,
		Temperature: cfg.Gemini.Temperature,
	}, prompts, logger)
	if err != nil {
		return nil, fmt.Errorf("error creando evaluador: %w", err)
	}
	return svc, nil
}

// wizardOptions arma las opciones del asistente y los notificadores configurados
func wizardOptions(cfg *config.Config, logger *zap.Logger) (wizard.Options, func(), error) {
	mode, err := wizard.ParseMode(cfg.Wizard.Mode)
	if err != nil {
		return wizard.Options{}, nil, err
	}
	opts := wizard.Options{Mode: mode, Logger: logger, SuggestPolicy: wizard.FailOpen, SessionTTL: cfg.Wizard.SessionTTL}
	if !cfg.Wizard.SuggestFailOpen {
		opts.SuggestPolicy = wizard.FailClosed
	}

	closeFn := func() {}
	if cfg.Discord.BotToken != "" {
		client, err := discord.NewClient(&discord.Config{
			BotToken:       cfg.Discord.BotToken,
			Channels:       cfg.Discord.Channels,
			DefaultChannel: cfg.Discord.DefaultChannel,
			NotifyLevels:   cfg.Discord.NotifyLevels,
		}, logger)
		if err != nil {
			return wizard.Options{}, nil, err
		}
		opts.Notifiers = append(opts.Notifiers, client)
		closeFn = client.Close
		logger.Info("Notificaciones de Discord habilitadas", zap.Strings("criticidad", cfg.Discord.NotifyLevels))
	}
	return opts, closeFn, nil
}
