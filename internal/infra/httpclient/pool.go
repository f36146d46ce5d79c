package httpclient

import (
	"net/http"
	"time"
)

// Both model-server adapters (the embedder and the generation client)
// issue many small HTTP requests. They draw from one shared transport so
// connections to the upstream servers stay warm across adapters.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
}

// NewPooledClient returns a client on the shared transport with a
// per-adapter timeout. A zero timeout means no client-side deadline.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
