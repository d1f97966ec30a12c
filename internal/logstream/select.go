package logstream

import "strings"

// Endpoints are the logging endpoints a controller advertises.
type Endpoints struct {
	Doppler string
	Logging string
}

// Select picks the backend for the advertised endpoints: Doppler when set,
// else Loggregator, else ErrNoEndpoint.
func Select(eps Endpoints, opts ...Option) (Backend, error) {
	if strings.TrimSpace(eps.Doppler) != "" {
		return NewDoppler(eps.Doppler, opts...)
	}
	if strings.TrimSpace(eps.Logging) != "" {
		return NewLoggregator(eps.Logging, opts...)
	}
	return nil, ErrNoEndpoint
}
