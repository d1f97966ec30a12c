// Package logstream tails an application's live log stream from either a
// Doppler or a legacy Loggregator endpoint and delivers normalized records
// as events on a channel.
package logstream

import (
	"context"
	"errors"
)

var (
	// ErrNoEndpoint means the controller advertises no logging endpoint.
	ErrNoEndpoint = errors.New("no logging endpoint advertised")
	// ErrConnection means the stream could not be established: the endpoint
	// is unreachable or rejected the token.
	ErrConnection = errors.New("log stream connection failed")
	// ErrStream wraps failures on an established stream.
	ErrStream = errors.New("log stream error")
)

// EventKind tags an Event.
type EventKind uint8

const (
	EventOpened EventKind = iota + 1
	EventClosed
	EventError
	EventRecord
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	case EventRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Event is one stream lifecycle change or log record. Record is set for
// EventRecord, Err for EventError.
type Event struct {
	Kind   EventKind
	Record Record
	Err    error
}

// OpenRequest identifies the application to tail and how to authenticate.
type OpenRequest struct {
	AppID         string
	Token         string
	SkipTLSVerify bool
}

// Backend opens tail subscriptions against one logging endpoint.
type Backend interface {
	Name() string
	Open(ctx context.Context, req OpenRequest) (Stream, error)
}

// Stream is a live tail subscription.
//
// Events delivers EventOpened first and EventClosed last, then closes. The
// consumer must drain it until it is closed. Stop ends the subscription; it
// is safe to call more than once and after the stream closed on its own.
type Stream interface {
	Events() <-chan Event
	Stop() error
}
