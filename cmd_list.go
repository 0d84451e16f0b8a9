package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PhelGc/sig-rca/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista los registros guardados, del más reciente al más antiguo",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("error inicializando almacenamiento: %w", err)
	}
	defer store.Close()

	problems, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	dash := report.Summarize(problems)

	out := cmd.OutOrStdout()
	if dash.Total == 0 {
		fmt.Fprintln(out, "No hay registros guardados.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFECHA\tÁREA\tCRITICIDAD\tMETODOLOGÍA\tACCIONES")
	for _, item := range dash.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", item.ID, item.Fecha, item.Area, item.Criticidad, item.Metodologia, item.Acciones)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %d  Con plan: %d  Alta: %d\n", dash.Total, dash.ConPlan, dash.PorCriticidad["Alta"])
	return nil
}
