package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cfrestart/cmd/cfrestart/cmdutil"
	historycmd "cfrestart/cmd/cfrestart/history"
	logscmd "cfrestart/cmd/cfrestart/logs"
	restartcmd "cfrestart/cmd/cfrestart/restart"
	"cfrestart/cmd/cfrestart/ui"
	"cfrestart/internal/logging"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var (
		debug     bool
		logFormat string
		plain     bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "cfrestart",
		Short:         "Restart Cloud Foundry apps while tailing their logs",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.ConfigureOutput(os.Stderr, level, logFormat); err != nil {
				return err
			}
			ui.ConfigureInteraction(plain)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")
	root.PersistentFlags().BoolVar(&plain, "plain", false, "Disable colors")
	cmdutil.BindTargetFlags(root)

	root.AddCommand(restartcmd.Cmd())
	root.AddCommand(logscmd.Cmd())
	root.AddCommand(historycmd.Cmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		stop()
		os.Exit(1)
	}
}
