package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoColor = "NO_COLOR"
	envCI      = "CI"
	envTerm    = "TERM"
)

// ConfigureInteraction picks the color profile for stderr. Styles degrade to
// plain text when plain is set, in CI, on dumb terminals, or when stderr is
// not a terminal.
func ConfigureInteraction(plain bool) {
	if detectInteractive(plain) {
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stderr).ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

func detectInteractive(plain bool) bool {
	if plain {
		return false
	}
	if os.Getenv(envNoColor) != "" || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return stderrIsTerminal()
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
