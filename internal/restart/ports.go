package restart

import (
	"context"
	"time"

	"cfrestart/internal/cloudcontroller"
	"cfrestart/internal/logstream"
)

// Controller is the controller API surface a restart needs.
// Production: *cloudcontroller.Client
// Testing: fake.Controller
type Controller interface {
	ResolveSpace(ctx context.Context, org, space string) (string, error)
	ResolveApp(ctx context.Context, name, spaceGUID string) (cloudcontroller.App, error)
	Info(ctx context.Context) (cloudcontroller.Info, error)
	AppSummary(ctx context.Context, appGUID string) (cloudcontroller.AppSummary, error)
	UpdateAppState(ctx context.Context, appGUID string, state cloudcontroller.AppState) error
	Token() string
}

// BackendSelector picks a log backend for the advertised endpoints.
// Production: logstream.Select
type BackendSelector func(eps logstream.Endpoints) (logstream.Backend, error)

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sink receives every log stream event on the stream's consumer goroutine.
type Sink func(ev logstream.Event)

// Notifier receives progress notices from the poll loop.
type Notifier func(msg string)
