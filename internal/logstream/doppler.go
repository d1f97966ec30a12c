package logstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Doppler tails logs from a Doppler endpoint's /apps/<guid>/stream.
type Doppler struct {
	endpoint *url.URL
	opts     options
}

var _ Backend = (*Doppler)(nil)

// NewDoppler creates a backend for the advertised doppler_logging_endpoint.
func NewDoppler(endpoint string, opts ...Option) (*Doppler, error) {
	u, err := websocketURL(endpoint)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Doppler{endpoint: u, opts: o}, nil
}

func (d *Doppler) Name() string {
	return "doppler"
}

func (d *Doppler) Open(ctx context.Context, req OpenRequest) (Stream, error) {
	if strings.TrimSpace(req.AppID) == "" {
		return nil, fmt.Errorf("open doppler stream: application id is required")
	}
	target := d.endpoint.JoinPath("apps", req.AppID, "stream").String()
	return openTail(ctx, d.Name(), target, req, decodeDopplerFrame, d.opts)
}

func decodeDopplerFrame(frame []byte) (Record, bool, error) {
	msg, ok, err := decodeDopplerEnvelope(frame)
	if err != nil || !ok {
		return Record{}, false, err
	}
	return NormalizeDoppler(msg), true, nil
}
