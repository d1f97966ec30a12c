// Package cmdutil holds the flags and session setup shared by cfrestart
// commands.
package cmdutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cfrestart/config"
	"cfrestart/internal/cloudcontroller"

	"github.com/spf13/cobra"
)

// BindTargetFlags registers the controller and target flags on cmd. Their
// names match config keys so config.Load picks them up.
func BindTargetFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("api", "", "Controller API endpoint (CF_API)")
	f.String("username", "", "Username for the password grant (CF_USERNAME)")
	f.String("token", "", "Pre-issued access token, skips login (CF_TOKEN)")
	f.StringP("org", "o", "", "Organization of the app (CF_ORG)")
	f.StringP("space", "s", "", "Space of the app (CF_SPACE)")
	f.Bool("skip-ssl-validation", false, "Skip TLS certificate verification (CF_SKIP_SSL_VALIDATION)")
}

// Connect returns a controller client authenticated with cfg's token, or with
// a token obtained by logging in with cfg's username and password.
func Connect(ctx context.Context, cfg *config.Config) (*cloudcontroller.Client, error) {
	if err := cfg.RequireSession(); err != nil {
		return nil, err
	}
	opts := []cloudcontroller.ClientOption{cloudcontroller.WithSkipTLSVerify(cfg.SkipSSLValidation)}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		anon, err := cloudcontroller.NewClient(cfg.API, "", opts...)
		if err != nil {
			return nil, err
		}
		info, err := anon.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover login endpoint: %w", err)
		}
		token, err = cloudcontroller.Login(ctx, info, cfg.Username, cfg.Password, cfg.SkipSSLValidation)
		if err != nil {
			return nil, err
		}
		slog.Debug("Logged in.", "api", cfg.API, "username", cfg.Username)
	}

	return cloudcontroller.NewClient(cfg.API, token, opts...)
}
