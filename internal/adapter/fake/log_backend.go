package fake

import (
	"context"
	"sync"

	"cfrestart/internal/logstream"
)

var (
	_ logstream.Backend = (*LogBackend)(nil)
	_ logstream.Stream  = (*LogStream)(nil)
)

// LogBackend opens LogStreams that emit Opened and every configured record,
// then wait for Stop before emitting Closed.
type LogBackend struct {
	CallRecorder
	mu      sync.Mutex
	records []logstream.Record
	openErr error
	streams []*LogStream
}

func NewLogBackend(records ...logstream.Record) *LogBackend {
	return &LogBackend{records: records}
}

// FailOpen makes every Open return err.
func (b *LogBackend) FailOpen(err error) {
	b.mu.Lock()
	b.openErr = err
	b.mu.Unlock()
}

func (b *LogBackend) Name() string { return "fake" }

func (b *LogBackend) Open(_ context.Context, req logstream.OpenRequest) (logstream.Stream, error) {
	b.record("Open", req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := newLogStream(b.records)
	b.streams = append(b.streams, s)
	return s, nil
}

// Streams returns every stream opened so far.
func (b *LogBackend) Streams() []*LogStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*LogStream(nil), b.streams...)
}

type LogStream struct {
	events chan logstream.Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	stops int
}

func newLogStream(records []logstream.Record) *LogStream {
	s := &LogStream{
		events: make(chan logstream.Event),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run(records)
	return s
}

func (s *LogStream) run(records []logstream.Record) {
	defer close(s.done)
	defer close(s.events)

	s.events <- logstream.Event{Kind: logstream.EventOpened}
	for _, rec := range records {
		s.events <- logstream.Event{Kind: logstream.EventRecord, Record: rec}
	}
	<-s.stop
	s.events <- logstream.Event{Kind: logstream.EventClosed}
}

func (s *LogStream) Events() <-chan logstream.Event { return s.events }

func (s *LogStream) Stop() error {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()

	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// Stops reports how many times Stop was called.
func (s *LogStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}
