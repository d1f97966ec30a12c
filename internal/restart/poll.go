package restart

import (
	"context"
	"fmt"
	"strings"

	"cfrestart/internal/cloudcontroller"
	"cfrestart/internal/telemetry"
)

const (
	noticeStaging = "App is staging ..."
	noticeStaged  = "App staged, waiting for it to come online ..."
)

// fetchSummary makes one summary round trip. Cancellation of ctx does not
// abort a request already in flight.
func (o *Orchestrator) fetchSummary(ctx context.Context, appGUID string) (cloudcontroller.AppSummary, error) {
	return o.ctrl.AppSummary(context.WithoutCancel(ctx), appGUID)
}

// pollUntilRunning polls the app summary every interval until an instance
// runs, staging fails, or ctx is cancelled. Cancellation is checked at the top
// of each iteration; transient read errors are retried on the next one.
func (o *Orchestrator) pollUntilRunning(ctx context.Context, app Application) (Outcome, int, error) {
	notices := 0
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			o.log.Info("Stopped waiting for application.", "app", app.Name, "attempt", attempt)
			return OutcomeCancelled, notices, nil
		}

		summary, err := o.fetchSummary(ctx, app.GUID)
		switch {
		case err != nil && cloudcontroller.IsTransient(err):
			o.log.Warn("Polling app summary failed, retrying.", "app", app.Name, "attempt", attempt, "err", err)
		case err != nil:
			return 0, notices, fmt.Errorf("poll app summary: %w", err)
		case summary.RunningInstances > 0:
			o.log.Debug("Application running.", "app", app.Name, "running_instances", summary.RunningInstances)
			return OutcomeRunning, notices, nil
		default:
			switch cloudcontroller.PackageState(strings.ToUpper(string(summary.PackageState))) {
			case cloudcontroller.PackageFailed:
				return OutcomeStagingFailed, notices, ErrStagingFailed
			case cloudcontroller.PackagePending:
				notices++
				o.notice(ctx, noticeStaging)
			case cloudcontroller.PackageStaged:
				notices++
				o.notice(ctx, noticeStaged)
			}
		}

		select {
		case <-ctx.Done():
		case <-o.clock.After(o.interval):
		}
	}
}

func (o *Orchestrator) notice(ctx context.Context, msg string) {
	telemetry.Notice(ctx, msg)
	o.notify(msg)
}
