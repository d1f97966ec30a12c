package cloudcontroller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// loginClientID is the public client registered for the cf CLI.
const loginClientID = "cf"

// Login exchanges username and password for an access token at the UAA token
// endpoint advertised in Info.TokenEndpoint (or AuthorizationEndpoint).
func Login(ctx context.Context, info Info, username, password string, skipTLSVerify bool) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username is required to log in")
	}

	base := strings.TrimSpace(info.TokenEndpoint)
	if base == "" {
		base = strings.TrimSpace(info.AuthorizationEndpoint)
	}
	if base == "" {
		return "", errors.New("controller advertises no token endpoint")
	}

	cfg := oauth2.Config{
		ClientID: loginClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  strings.TrimRight(base, "/") + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, NewHTTPClient(skipTLSVerify))

	tok, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("log in as %q: %w", username, err)
	}
	return BearerToken(tok.AccessToken), nil
}
