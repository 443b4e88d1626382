package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/viant/restauth/client/auth"
	"github.com/viant/restauth/client/auth/refresh"
	"github.com/viant/restauth/client/auth/store"
	"go.uber.org/zap"
)

// Refresher renews credentials after the server rejected an access token.
type Refresher interface {
	RefreshRejected(ctx context.Context, rejected string) (*store.Credentials, error)
}

// RoundTripper attaches the stored bearer token to outgoing requests and, on
// 401 Unauthorized, refreshes the credentials and replays the request once.
type RoundTripper struct {
	store     store.Store
	refresher Refresher
	transport http.RoundTripper
	logger    *zap.Logger
}

// New creates a RoundTripper; a refresher is required.
func New(options ...Option) (*RoundTripper, error) {
	ret := &RoundTripper{
		transport: http.DefaultTransport,
		store:     store.NewMemory(),
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.refresher == nil {
		return nil, errors.New("refresher was not configured")
	}
	return ret, nil
}

func (r *RoundTripper) Store() store.Store {
	return r.store
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	build, err := snapshot(req)
	if err != nil {
		return nil, &auth.NetworkError{Op: req.Method, URL: req.URL.String(), Err: err}
	}

	// public calls never carry a credential and never refresh
	if !RequiresAuth(ctx) {
		public := build()
		public.Header.Del("Authorization")
		return r.send(public)
	}

	credentials, err := r.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var used string
	if credentials != nil {
		used = credentials.Access
	}
	resp, err := r.send(authorize(build(), used))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	unauthorized, err := buffer(resp)
	if err != nil {
		return nil, &auth.NetworkError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	renewed, err := r.refresher.RefreshRejected(ctx, used)
	if err != nil {
		return r.refreshFailed(ctx, req, unauthorized, err)
	}

	// the retry outcome is final, whatever its status
	r.logger.Debug("replaying request with renewed token", zap.String("method", req.Method), zap.String("path", req.URL.Path))
	return r.send(authorize(build(), renewed.Access))
}

func (r *RoundTripper) refreshFailed(ctx context.Context, req *http.Request, unauthorized *http.Response, err error) (*http.Response, error) {
	var refreshErr *refresh.Error
	var networkErr *auth.NetworkError
	switch {
	case errors.As(err, &refreshErr):
		r.logger.Info("session expired", zap.String("path", req.URL.Path), zap.Error(err))
		return nil, &auth.SessionExpiredError{Response: unauthorized, Err: err}
	case ctx.Err() != nil:
		unauthorized.Body.Close()
		return nil, ctx.Err()
	case errors.As(err, &networkErr):
		// the session may still be valid; hand back the original 401
		r.logger.Warn("refresh unavailable", zap.String("path", req.URL.Path), zap.Error(err))
		return unauthorized, nil
	}
	unauthorized.Body.Close()
	return nil, fmt.Errorf("failed to refresh credentials: %w", err)
}

func (r *RoundTripper) send(req *http.Request) (*http.Response, error) {
	resp, err := r.transport.RoundTrip(req)
	if err != nil {
		return nil, &auth.NetworkError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	return resp, nil
}

func authorize(req *http.Request, access string) *http.Request {
	if access == "" {
		req.Header.Del("Authorization")
		return req
	}
	req.Header.Set("Authorization", "Bearer "+access)
	return req
}
