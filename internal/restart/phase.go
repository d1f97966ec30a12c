package restart

import (
	"encoding/json"
	"fmt"
	"strings"

	"cfrestart/internal/check"
)

// Phase is a state of the restart state machine.
type Phase uint8

const (
	PhaseResolving Phase = iota + 1
	PhaseStreamOpening
	PhaseStopping
	PhaseStarting
	PhasePolling
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseStreamOpening:
		return "stream_opening"
	case PhaseStopping:
		return "stopping"
	case PhaseStarting:
		return "starting"
	case PhasePolling:
		return "polling"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

func (p Phase) IsValid() bool {
	switch p {
	case PhaseResolving, PhaseStreamOpening, PhaseStopping, PhaseStarting, PhasePolling, PhaseTerminated:
		return true
	default:
		return false
	}
}

// Transition moves to the next phase. Any phase may terminate early; the
// forward path is resolving, stream_opening, stopping, starting, polling.
func (p Phase) Transition(to Phase) Phase {
	ok := false
	switch p {
	case PhaseResolving:
		ok = to == PhaseStreamOpening || to == PhaseTerminated
	case PhaseStreamOpening:
		ok = to == PhaseStopping || to == PhaseTerminated
	case PhaseStopping:
		ok = to == PhaseStarting || to == PhaseTerminated
	case PhaseStarting:
		ok = to == PhasePolling || to == PhaseTerminated
	case PhasePolling:
		ok = to == PhaseTerminated
	case PhaseTerminated:
		ok = false
	}
	check.Assertf(ok, "restart phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

func (p Phase) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid restart phase: %d", p)
	}
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, ok := ParsePhase(raw)
	if !ok {
		return fmt.Errorf("invalid restart phase: %q", raw)
	}
	*p = next
	return nil
}

func ParsePhase(raw string) (Phase, bool) {
	switch strings.TrimSpace(raw) {
	case "resolving":
		return PhaseResolving, true
	case "stream_opening":
		return PhaseStreamOpening, true
	case "stopping":
		return PhaseStopping, true
	case "starting":
		return PhaseStarting, true
	case "polling":
		return PhasePolling, true
	case "terminated":
		return PhaseTerminated, true
	default:
		return 0, false
	}
}

// Outcome is how a restart that did not fail ended, or StagingFailed.
type Outcome uint8

const (
	OutcomeRunning Outcome = iota + 1
	OutcomeCancelled
	OutcomeStagingFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeStagingFailed:
		return "staging_failed"
	default:
		return "unknown"
	}
}

func ParseOutcome(raw string) (Outcome, bool) {
	switch strings.TrimSpace(raw) {
	case "running":
		return OutcomeRunning, true
	case "cancelled":
		return OutcomeCancelled, true
	case "staging_failed":
		return OutcomeStagingFailed, true
	default:
		return 0, false
	}
}
