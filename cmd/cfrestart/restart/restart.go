package restartcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cfrestart/cmd/cfrestart/cmdutil"
	"cfrestart/cmd/cfrestart/ui"
	"cfrestart/config"
	"cfrestart/internal/adapter/sqlite"
	"cfrestart/internal/logstream"
	"cfrestart/internal/manifest"
	"cfrestart/internal/restart"

	"github.com/spf13/cobra"
)

// Cmd returns the "cfrestart restart" command.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart [app]",
		Short: "Restart an app and stream its logs until it is running",
		Long: "Stops the app if needed, starts it and waits for a running instance while\n" +
			"streaming its logs. The app defaults to the first one in the manifest.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			appName := ""
			if len(args) == 1 {
				appName = args[0]
			}
			return run(cmd.Context(), cfg, appName)
		},
	}
	cmd.Flags().StringP("manifest", "f", manifest.DefaultPath, "Manifest naming the app (CF_MANIFEST)")
	cmd.Flags().String("history", config.HistoryPath(), "Restart history database (CF_HISTORY)")
	cmd.Flags().Duration("poll-interval", restart.DefaultPollInterval, "Delay between status polls")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, appName string) error {
	if appName == "" {
		m, err := manifest.Load(cfg.Manifest)
		if err != nil {
			return err
		}
		app, err := m.App("")
		if err != nil {
			return err
		}
		appName = app.Name
	}

	client, err := cmdutil.Connect(ctx, cfg)
	if err != nil {
		return err
	}

	steps := ui.NewTelemetryOutput(os.Stderr)
	defer steps.Close()

	orch := restart.New(client,
		restart.WithTracer(steps.Tracer("cfrestart")),
		restart.WithSkipTLSVerify(cfg.SkipSSLValidation),
		restart.WithPollInterval(cfg.PollInterval),
		restart.WithSink(PrintSink),
		restart.WithNotifier(func(msg string) {
			fmt.Fprintln(os.Stderr, ui.InfoMsg("%s", msg))
		}),
	)

	target := restart.Target{Org: cfg.Org, Space: cfg.Space, AppName: appName}
	fmt.Fprintln(os.Stderr, ui.InfoMsg("Restarting application %s", ui.Bold(appName)))

	started := time.Now()
	res, restartErr := orch.Restart(ctx, target)
	recordHistory(ctx, cfg.History, target, res, restartErr, started, time.Now())

	if restartErr != nil {
		return restartErr
	}
	switch res.Outcome {
	case restart.OutcomeCancelled:
		fmt.Fprintln(os.Stderr, ui.WarnMsg("Stopped waiting for %s; the restart continues on the controller.", appName))
	default:
		fmt.Fprintln(os.Stderr, ui.SuccessMsg("App %s is running.", ui.Bold(appName)))
	}
	fmt.Fprint(os.Stderr, ui.KeyValues("  ",
		ui.KV("GUID", res.App.GUID),
		ui.KV("Outcome", res.Outcome.String()),
		ui.KV("Notices", strconv.Itoa(res.Notices)),
		ui.KV("Duration", time.Since(started).Round(time.Millisecond).String()),
	))
	return nil
}

// PrintSink writes records to stdout and lifecycle events to stderr.
func PrintSink(ev logstream.Event) {
	switch ev.Kind {
	case logstream.EventRecord:
		fmt.Fprintln(os.Stdout, ui.RecordLine(ev.Record))
	case logstream.EventOpened:
		fmt.Fprintln(os.Stderr, ui.Muted("Log stream opened."))
	case logstream.EventClosed:
		fmt.Fprintln(os.Stderr, ui.Muted("Log stream closed."))
	case logstream.EventError:
		fmt.Fprintln(os.Stderr, ui.WarnMsg("Log stream error: %v", ev.Err))
	}
}

func recordHistory(ctx context.Context, path string, target restart.Target, res restart.Result, restartErr error, started, finished time.Time) {
	store, err := sqlite.Open(path)
	if err != nil {
		slog.Warn("Could not open restart history.", "path", path, "err", err)
		return
	}
	defer store.Close()

	run := sqlite.Run{
		Org:        target.Org,
		Space:      target.Space,
		App:        target.AppName,
		AppGUID:    res.App.GUID,
		Outcome:    historyOutcome(res, restartErr),
		Phase:      res.Phase.String(),
		Notices:    res.Notices,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if restartErr != nil {
		run.Error = restartErr.Error()
	}
	if _, err := store.Record(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("Could not record restart.", "app", target.AppName, "err", err)
	}
}

func historyOutcome(res restart.Result, err error) string {
	switch {
	case errors.Is(err, restart.ErrStagingFailed):
		return restart.OutcomeStagingFailed.String()
	case err != nil:
		return "failed"
	default:
		return res.Outcome.String()
	}
}
