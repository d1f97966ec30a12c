package logstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Loggregator tails logs from a legacy Loggregator endpoint's /tail/.
type Loggregator struct {
	endpoint *url.URL
	opts     options
}

var _ Backend = (*Loggregator)(nil)

// NewLoggregator creates a backend for the advertised logging_endpoint.
func NewLoggregator(endpoint string, opts ...Option) (*Loggregator, error) {
	u, err := websocketURL(endpoint)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Loggregator{endpoint: u, opts: o}, nil
}

func (l *Loggregator) Name() string {
	return "loggregator"
}

func (l *Loggregator) Open(ctx context.Context, req OpenRequest) (Stream, error) {
	if strings.TrimSpace(req.AppID) == "" {
		return nil, fmt.Errorf("open loggregator stream: application id is required")
	}
	u := *l.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + "/tail/"
	u.RawQuery = url.Values{"app": []string{req.AppID}}.Encode()
	return openTail(ctx, l.Name(), u.String(), req, decodeLoggregatorFrame, l.opts)
}

func decodeLoggregatorFrame(frame []byte) (Record, bool, error) {
	msg, err := decodeLoggregatorMessage(frame)
	if err != nil {
		return Record{}, false, err
	}
	return NormalizeLoggregator(msg), true, nil
}
