package logstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/websocket"
)

// wsOrigin is sent as the Origin header; log endpoints do not check it.
const wsOrigin = "http://localhost"

// frameConn reads whole binary frames from a log endpoint.
type frameConn interface {
	ReadFrame() ([]byte, error)
	Close() error
}

type dialFunc func(ctx context.Context, target string, header http.Header, skipTLSVerify bool) (frameConn, error)

type wsConn struct {
	ws *websocket.Conn
}

func (c wsConn) ReadFrame() ([]byte, error) {
	var frame []byte
	if err := websocket.Message.Receive(c.ws, &frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (c wsConn) Close() error {
	return c.ws.Close()
}

func dialWebsocket(ctx context.Context, target string, header http.Header, skipTLSVerify bool) (frameConn, error) {
	cfg, err := websocket.NewConfig(target, wsOrigin)
	if err != nil {
		return nil, fmt.Errorf("websocket config for %s: %w", target, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			cfg.Header.Add(k, v)
		}
	}
	if cfg.Location.Scheme == "wss" {
		cfg.TlsConfig = &tls.Config{InsecureSkipVerify: skipTLSVerify} //nolint:gosec // operator opt-in
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	return wsConn{ws: ws}, nil
}

// websocketURL rewrites an advertised endpoint to a ws/wss base URL.
func websocketURL(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.Contains(endpoint, "://") {
		endpoint = "wss://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse log endpoint %q: %w", endpoint, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported log endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("log endpoint %q has no host", endpoint)
	}
	return u, nil
}
