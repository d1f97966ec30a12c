package historycmd

import (
	"strings"
	"testing"
	"time"

	"cfrestart/internal/adapter/sqlite"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
)

func TestRows(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []sqlite.Run{{
		ID:         uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-001122334455"),
		Org:        "acme",
		Space:      "dev",
		App:        "web",
		Outcome:    "running",
		Phase:      "polling",
		Notices:    2,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}}

	rows := Rows(runs)
	if len(rows) != 1 {
		t.Fatalf("Rows() returned %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row[0] != "6f1c2d3e" || row[1] != "web" || row[2] != "acme/dev" || row[3] != "running" || row[5] != "2" || row[7] != "1.5s" {
		t.Fatalf("row = %q", row)
	}
}

func TestDetail(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run := sqlite.Run{
		ID:         uuid.MustParse("6f1c2d3e-4b5a-4c6d-8e7f-001122334455"),
		Org:        "acme",
		Space:      "dev",
		App:        "web",
		AppGUID:    "app-guid-1",
		Outcome:    "staging_failed",
		Phase:      "polling",
		Error:      "app staging failed",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}

	got := Detail(run)
	for _, want := range []string{
		"Run:      6f1c2d3e-4b5a-4c6d-8e7f-001122334455\n",
		"GUID:     app-guid-1\n",
		"Target:   acme/dev\n",
		"Duration: 2s\n",
		"Error:    app staging failed\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Detail() = %q, missing %q", got, want)
		}
	}

	run.Error = ""
	if strings.Contains(Detail(run), "Error:") {
		t.Fatalf("Detail() without error = %q, want no Error line", Detail(run))
	}
}
