package logscmd

import (
	"fmt"
	"os"

	"cfrestart/cmd/cfrestart/cmdutil"
	restartcmd "cfrestart/cmd/cfrestart/restart"
	"cfrestart/cmd/cfrestart/ui"
	"cfrestart/config"
	"cfrestart/internal/restart"

	"github.com/spf13/cobra"
)

// Cmd returns the "cfrestart logs" command.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <app>",
		Short: "Tail an app's live logs until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			client, err := cmdutil.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			orch := restart.New(client,
				restart.WithSkipTLSVerify(cfg.SkipSSLValidation),
				restart.WithSink(restartcmd.PrintSink),
			)
			fmt.Fprintln(os.Stderr, ui.InfoMsg("Tailing logs for %s, Ctrl-C to stop.", ui.Bold(args[0])))
			return orch.Tail(cmd.Context(), restart.Target{Org: cfg.Org, Space: cfg.Space, AppName: args[0]})
		},
	}
}
