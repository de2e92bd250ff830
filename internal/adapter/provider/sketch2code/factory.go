package sketch2code

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type endpoints struct {
	api  string
	blob string
}

// Factory hands out one Client per endpoint pair. Settings can switch
// between the default and a custom deployment at any time, so clients are
// built on demand and reused.
type Factory struct {
	httpClient *http.Client
	log        *slog.Logger

	mu      sync.Mutex
	clients map[endpoints]*Client
}

// NewFactory creates a Factory whose clients share one http.Client.
func NewFactory(timeout time.Duration, logger *slog.Logger) *Factory {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewFactoryWithHTTP(&http.Client{Timeout: timeout}, logger)
}

// NewFactoryWithHTTP creates a Factory around a caller-supplied http.Client.
func NewFactoryWithHTTP(httpClient *http.Client, logger *slog.Logger) *Factory {
	return &Factory{
		httpClient: httpClient,
		log:        logger,
		clients:    make(map[endpoints]*Client),
	}
}

// For returns the client for the given API and blob bases.
func (f *Factory) For(apiURL, blobURL string) *Client {
	key := endpoints{api: apiURL, blob: blobURL}

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[key]; ok {
		return c
	}
	c := NewClientWithHTTP(apiURL, blobURL, f.httpClient, f.log)
	f.clients[key] = c
	return c
}
