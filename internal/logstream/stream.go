package logstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// eventBufferCap decouples frame reads from a slow consumer.
	eventBufferCap = 256
	// reconnectMaxRetryTime bounds how long a dropped stream is redialed.
	reconnectMaxRetryTime = 60 * time.Second
)

// frameDecoder turns one frame into a record. ok is false for frames that
// carry no log line.
type frameDecoder func(frame []byte) (rec Record, ok bool, err error)

type options struct {
	dial       dialFunc
	newBackoff func() backoff.BackOff
}

// Option configures a Backend.
type Option func(*options)

// WithReconnectBackoff sets the redial policy for dropped streams. Pass nil
// to close the stream on the first receive error.
func WithReconnectBackoff(newBackoff func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackoff = newBackoff
	}
}

func defaultOptions() options {
	return options{
		dial: dialWebsocket,
		newBackoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(250*time.Millisecond),
				backoff.WithMaxInterval(5*time.Second),
				backoff.WithMaxElapsedTime(reconnectMaxRetryTime),
			)
		},
	}
}

// tail is a Stream reading frames from a dialed connection on its own
// goroutine.
type tail struct {
	backend string
	target  string
	dial    func(ctx context.Context) (frameConn, error)
	decode  frameDecoder
	opts    options
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	mu   sync.Mutex
	conn frameConn

	stopOnce sync.Once
}

// openTail dials target and starts delivering events. The dial honours ctx;
// the running stream does not, and ends only through Stop or a terminal
// receive failure.
func openTail(ctx context.Context, backend, target string, req OpenRequest, decode frameDecoder, opts options) (*tail, error) {
	header := http.Header{}
	if req.Token != "" {
		header.Set("Authorization", req.Token)
	}

	t := &tail{
		backend: backend,
		target:  target,
		decode:  decode,
		opts:    opts,
		log:     slog.With("component", "logstream", "backend", backend, "app", req.AppID),
		events:  make(chan Event, eventBufferCap),
		done:    make(chan struct{}),
	}
	t.dial = func(ctx context.Context) (frameConn, error) {
		return opts.dial(ctx, target, header, req.SkipTLSVerify)
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrConnection, backend, target, err)
	}
	t.ctx, t.cancel = context.WithCancel(context.WithoutCancel(ctx))
	t.conn = conn

	go t.run(conn)
	return t, nil
}

func (t *tail) Events() <-chan Event {
	return t.events
}

// Stop cancels the subscription, closes the connection and waits for the
// reader to deliver EventClosed.
func (t *tail) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		t.cancel()

		t.mu.Lock()
		conn := t.conn
		t.conn = nil
		t.mu.Unlock()

		if conn != nil {
			if cErr := conn.Close(); cErr != nil && !errors.Is(cErr, net.ErrClosed) {
				err = fmt.Errorf("close %s stream: %w", t.backend, cErr)
			}
		}
		<-t.done
	})
	return err
}

func (t *tail) run(conn frameConn) {
	defer close(t.done)
	defer close(t.events)

	t.events <- Event{Kind: EventOpened}
	t.log.Debug("Log stream connected.", "target", t.target)

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			t.release(conn)
			if t.ctx.Err() != nil {
				break
			}
			t.events <- Event{Kind: EventError, Err: fmt.Errorf("%w: receive: %w", ErrStream, err)}
			if t.opts.newBackoff == nil {
				break
			}

			next, rErr := t.reconnect()
			if rErr != nil {
				if t.ctx.Err() == nil {
					t.events <- Event{Kind: EventError, Err: fmt.Errorf("%w: reconnect: %w", ErrStream, rErr)}
				}
				break
			}
			conn = next
			continue
		}

		rec, ok, err := t.decode(frame)
		if err != nil {
			t.events <- Event{Kind: EventError, Err: fmt.Errorf("%w: %w", ErrStream, err)}
			continue
		}
		if !ok {
			continue
		}
		select {
		case t.events <- Event{Kind: EventRecord, Record: rec}:
		case <-t.ctx.Done():
		}
	}

	t.events <- Event{Kind: EventClosed}
}

// release closes conn unless Stop already took it.
func (t *tail) release(conn frameConn) {
	t.mu.Lock()
	owned := t.conn == conn
	if owned {
		t.conn = nil
	}
	t.mu.Unlock()
	if owned {
		_ = conn.Close()
	}
}

func (t *tail) reconnect() (frameConn, error) {
	conn, err := backoff.RetryWithData(func() (frameConn, error) {
		t.log.Info("Reconnecting log stream.")
		return t.dial(t.ctx)
	}, backoff.WithContext(t.opts.newBackoff(), t.ctx))
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx.Err() != nil {
		_ = conn.Close()
		return nil, t.ctx.Err()
	}
	t.conn = conn
	return conn, nil
}
