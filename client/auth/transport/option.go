package transport

import (
	"net/http"

	"github.com/viant/restauth/client/auth/store"
	"go.uber.org/zap"
)

type Option func(*RoundTripper)

// WithStore sets store
func WithStore(store store.Store) Option {
	return func(t *RoundTripper) {
		t.store = store
	}
}

// WithRefresher sets refresher
func WithRefresher(refresher Refresher) Option {
	return func(t *RoundTripper) {
		t.refresher = refresher
	}
}

// WithTransport sets the underlying transport used to dispatch requests
func WithTransport(transport http.RoundTripper) Option {
	return func(t *RoundTripper) {
		if transport != nil {
			t.transport = transport
		}
	}
}

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *RoundTripper) {
		if logger != nil {
			t.logger = logger
		}
	}
}
