// Package restart stops and starts an application on the controller and
// watches it come back, tailing its logs while it stages and starts.
package restart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cfrestart/internal/cloudcontroller"
	"cfrestart/internal/logstream"
	"cfrestart/internal/telemetry"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is the delay between app summary polls.
const DefaultPollInterval = 3 * time.Second

const (
	stepResolve = "resolve"
	stepStream  = "stream"
	stepStop    = "stop"
	stepStart   = "start"
	stepPoll    = "poll"
)

var restartPlan = telemetry.Plan{Steps: []telemetry.PlannedStep{
	{ID: stepResolve, Title: "resolve application"},
	{ID: stepStream, Title: "attach log stream"},
	{ID: stepStop, Title: "stop application"},
	{ID: stepStart, Title: "start application"},
	{ID: stepPoll, Title: "wait for running instances"},
}}

// Target names the application to restart.
type Target struct {
	Org     string
	Space   string
	AppName string
}

func (t Target) normalized() Target {
	return Target{
		Org:     strings.TrimSpace(t.Org),
		Space:   strings.TrimSpace(t.Space),
		AppName: strings.TrimSpace(t.AppName),
	}
}

func (t Target) validate() error {
	var missing []string
	if t.Org == "" {
		missing = append(missing, "organization")
	}
	if t.Space == "" {
		missing = append(missing, "space")
	}
	if t.AppName == "" {
		missing = append(missing, "application name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Application is the resolved restart target.
type Application struct {
	Name string
	GUID string
}

// Result describes a restart that returned without a fatal error, or the
// progress made before one.
type Result struct {
	App     Application
	Outcome Outcome
	// Phase is the last active phase, the failing one for fatal errors.
	Phase    Phase
	Notices  int
	Streamed bool
	Stopped  bool
}

// Orchestrator runs restarts against one controller.
type Orchestrator struct {
	ctrl          Controller
	selectBackend BackendSelector
	skipTLSVerify bool
	clock         Clock
	interval      time.Duration
	sink          Sink
	notify        Notifier
	tracer        trace.Tracer
	log           *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBackendSelector overrides how the log backend is chosen.
func WithBackendSelector(sel BackendSelector) Option {
	return func(o *Orchestrator) {
		o.selectBackend = sel
	}
}

// WithSkipTLSVerify disables certificate checks on the log stream.
func WithSkipTLSVerify(skip bool) Option {
	return func(o *Orchestrator) {
		o.skipTLSVerify = skip
	}
}

func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithPollInterval sets the delay between polls. Non-positive values keep
// DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithSink sets where log stream events go. The default logs them.
func WithSink(sink Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithNotifier sets where staging notices go. The default logs them.
func WithNotifier(notify Notifier) Option {
	return func(o *Orchestrator) {
		o.notify = notify
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// New creates an Orchestrator using ctrl for every controller call.
func New(ctrl Controller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ctrl: ctrl,
		selectBackend: func(eps logstream.Endpoints) (logstream.Backend, error) {
			return logstream.Select(eps)
		},
		clock:    RealClock{},
		interval: DefaultPollInterval,
		log:      slog.With("component", "restart"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = LogSink(o.log)
	}
	if o.notify == nil {
		o.notify = func(msg string) { o.log.Info(msg) }
	}
	return o
}

// Restart stops the target application if needed, starts it and waits until
// an instance runs, streaming its logs to the sink meanwhile.
//
// A cancelled ctx ends the wait with OutcomeCancelled and a nil error. A
// staging failure returns OutcomeStagingFailed with an error wrapping
// ErrStagingFailed. The log stream, if one was opened, is always stopped
// before Restart returns.
func (o *Orchestrator) Restart(ctx context.Context, target Target) (res Result, err error) {
	op, err := telemetry.Begin(ctx, o.tracer, "restart", restartPlan)
	if err != nil {
		return res, err
	}
	defer func() { op.End(err) }()
	ctx = op.Context()

	phase := PhaseResolving
	res.Phase = phase
	enter := func(next Phase) {
		phase = phase.Transition(next)
		res.Phase = phase
	}
	target = target.normalized()
	fail := func(cause error) error {
		failed := &Error{App: target.AppName, Phase: phase, Err: cause}
		phase = phase.Transition(PhaseTerminated)
		o.log.Error("Restart app failed.", "app", target.AppName, "phase", failed.Phase.String(), "err", cause)
		return failed
	}

	if err := target.validate(); err != nil {
		return res, fail(err)
	}

	err = op.Step(ctx, stepResolve, func(ctx context.Context) error {
		app, err := o.resolve(ctx, target)
		res.App = app
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			phase = phase.Transition(PhaseTerminated)
			return res, nil
		}
		return res, fail(err)
	}
	o.log.Info("Restarting application.", "app", res.App.Name, "guid", res.App.GUID)

	enter(PhaseStreamOpening)
	var stream logstream.Stream
	_ = op.Step(ctx, stepStream, func(ctx context.Context) error {
		var err error
		stream, err = o.openStream(ctx, res.App)
		return err
	})
	if stream != nil {
		res.Streamed = true
		drained, _ := o.consume(stream)
		defer o.release(stream, drained)
	}

	enter(PhaseStopping)
	err = op.Step(ctx, stepStop, func(ctx context.Context) error {
		stopped, err := o.stopIfRunning(ctx, res.App)
		res.Stopped = stopped
		return err
	})
	if err != nil {
		return res, fail(err)
	}

	enter(PhaseStarting)
	err = op.Step(ctx, stepStart, func(ctx context.Context) error {
		return o.ctrl.UpdateAppState(context.WithoutCancel(ctx), res.App.GUID, cloudcontroller.AppStarted)
	})
	if err != nil {
		return res, fail(err)
	}

	enter(PhasePolling)
	err = op.Step(ctx, stepPoll, func(ctx context.Context) error {
		outcome, notices, err := o.pollUntilRunning(ctx, res.App)
		res.Outcome = outcome
		res.Notices = notices
		return err
	})
	if err != nil {
		return res, fail(err)
	}

	phase = phase.Transition(PhaseTerminated)
	o.log.Debug("Restart finished.", "app", res.App.Name, "outcome", res.Outcome.String(), "phase", phase.String())
	return res, nil
}

// Tail streams the target's logs to the sink until ctx is cancelled or the
// stream ends on its own. Unlike Restart, failing to open the stream is an
// error.
func (o *Orchestrator) Tail(ctx context.Context, target Target) error {
	target = target.normalized()
	if err := target.validate(); err != nil {
		return &Error{App: target.AppName, Phase: PhaseResolving, Err: err}
	}
	app, err := o.resolve(ctx, target)
	if err != nil {
		return &Error{App: target.AppName, Phase: PhaseResolving, Err: err}
	}

	stream, err := o.openStream(ctx, app)
	if err != nil {
		return &Error{App: app.Name, Phase: PhaseStreamOpening, Err: err}
	}
	drained, done := o.consume(stream)
	defer o.release(stream, drained)

	o.log.Info("Tailing application logs.", "app", app.Name, "guid", app.GUID)
	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

func (o *Orchestrator) resolve(ctx context.Context, target Target) (Application, error) {
	spaceGUID, err := o.ctrl.ResolveSpace(ctx, target.Org, target.Space)
	if err != nil {
		if errors.Is(err, cloudcontroller.ErrNotFound) {
			return Application{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return Application{}, err
	}

	app, err := o.ctrl.ResolveApp(ctx, target.AppName, spaceGUID)
	if err != nil {
		if errors.Is(err, cloudcontroller.ErrNotFound) {
			return Application{}, fmt.Errorf("%w: application %s not found: %w", ErrNotFound, target.AppName, err)
		}
		return Application{}, err
	}
	return Application{Name: app.Name, GUID: app.GUID}, nil
}

// openStream attaches a log stream for app. Failures are reported and
// returned for telemetry only; restarts continue without logs.
func (o *Orchestrator) openStream(ctx context.Context, app Application) (logstream.Stream, error) {
	info, err := o.ctrl.Info(ctx)
	if err != nil {
		o.log.Error("Could not retrieve application logs.", "app", app.Name, "err", err)
		return nil, err
	}

	backend, err := o.selectBackend(logstream.Endpoints{
		Doppler: info.DopplerLoggingEndpoint,
		Logging: info.LoggingEndpoint,
	})
	if err != nil {
		o.log.Warn("Could not retrieve application logs.", "app", app.Name, "err", err)
		return nil, err
	}

	stream, err := backend.Open(ctx, logstream.OpenRequest{
		AppID:         app.GUID,
		Token:         o.ctrl.Token(),
		SkipTLSVerify: o.skipTLSVerify,
	})
	if err != nil {
		o.log.Error("Could not retrieve application logs.", "app", app.Name, "backend", backend.Name(), "err", err)
		return nil, err
	}
	o.log.Debug("Log stream attached.", "app", app.Name, "backend", backend.Name())
	return stream, nil
}

// consume forwards stream events to the sink until the stream closes. The
// returned channel is closed once the last event was delivered.
func (o *Orchestrator) consume(stream logstream.Stream) (*errgroup.Group, <-chan struct{}) {
	done := make(chan struct{})
	g := &errgroup.Group{}
	g.Go(func() error {
		defer close(done)
		for ev := range stream.Events() {
			o.sink(ev)
		}
		return nil
	})
	return g, done
}

func (o *Orchestrator) release(stream logstream.Stream, drained *errgroup.Group) {
	if err := stream.Stop(); err != nil {
		o.log.Warn("Stopping log stream failed.", "err", err)
	}
	_ = drained.Wait()
}

func (o *Orchestrator) stopIfRunning(ctx context.Context, app Application) (bool, error) {
	summary, err := o.fetchSummary(ctx, app.GUID)
	if err != nil {
		return false, err
	}
	if summary.Stopped() {
		o.log.Debug("Application already stopped.", "app", app.Name)
		return false, nil
	}
	if err := o.ctrl.UpdateAppState(context.WithoutCancel(ctx), app.GUID, cloudcontroller.AppStopped); err != nil {
		return false, err
	}
	return true, nil
}

// LogSink returns a Sink writing stream events to log.
func LogSink(log *slog.Logger) Sink {
	return func(ev logstream.Event) {
		switch ev.Kind {
		case logstream.EventOpened:
			log.Info("Log stream opened.")
		case logstream.EventClosed:
			log.Info("Log stream closed.")
		case logstream.EventError:
			log.Error("Log stream error.", "err", ev.Err)
		case logstream.EventRecord:
			log.Info(ev.Record.String())
		}
	}
}
