package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PhelGc/sig-rca/internal/report"
)

var showFlags struct {
	format string
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Imprime el informe de un registro",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFlags.format, "format", "f", "md", "Formato del informe: md, html, csv o json")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(showFlags.format)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("error inicializando almacenamiento: %w", err)
	}
	defer store.Close()

	p, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("registro %s: %w", args[0], err)
	}
	body, err := report.Render(p, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(body)
	return err
}
