package historycmd

import (
	"fmt"
	"strconv"
	"time"

	"cfrestart/cmd/cfrestart/ui"
	"cfrestart/config"
	"cfrestart/internal/adapter/sqlite"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd returns the "cfrestart history" command.
func Cmd() *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history [app]",
		Short: "List recent restarts, or show one with --run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cfg.History)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				id, err := uuid.Parse(runID)
				if err != nil {
					return fmt.Errorf("parse run id %q: %w", runID, err)
				}
				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Print(Detail(run))
				return nil
			}

			app := ""
			if len(args) == 1 {
				app = args[0]
			}
			runs, err := store.List(cmd.Context(), app, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(ui.Muted("No restarts recorded."))
				return nil
			}
			fmt.Println(ui.Table(
				[]string{"RUN", "APP", "TARGET", "OUTCOME", "PHASE", "NOTICES", "STARTED", "DURATION"},
				Rows(runs),
			))
			return nil
		},
	}
	cmd.Flags().String("history", config.HistoryPath(), "Restart history database (CF_HISTORY)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the full record of one run by id")
	cmd.Flags().IntVarP(&limit, "limit", "n", sqlite.DefaultListLimit, "Maximum number of runs to show")
	return cmd
}

// Rows formats runs as table rows, newest first as given.
func Rows(runs []sqlite.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID.String()[:8],
			run.App,
			run.Org + "/" + run.Space,
			ui.OutcomeLabel(run.Outcome),
			run.Phase,
			strconv.Itoa(run.Notices),
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	return rows
}

// Detail renders every recorded field of one run.
func Detail(run sqlite.Run) string {
	pairs := []ui.Pair{
		ui.KV("Run", run.ID.String()),
		ui.KV("App", run.App),
		ui.KV("GUID", run.AppGUID),
		ui.KV("Target", run.Org+"/"+run.Space),
		ui.KV("Outcome", ui.OutcomeLabel(run.Outcome)),
		ui.KV("Phase", run.Phase),
		ui.KV("Notices", strconv.Itoa(run.Notices)),
		ui.KV("Started", run.StartedAt.Local().Format(time.DateTime)),
		ui.KV("Duration", run.Duration().Round(time.Millisecond).String()),
	}
	if run.Error != "" {
		pairs = append(pairs, ui.KV("Error", run.Error))
	}
	return ui.KeyValues("", pairs...)
}
