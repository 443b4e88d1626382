package restauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/viant/restauth/client/auth/refresh"
	"github.com/viant/restauth/client/auth/store"
	"github.com/viant/restauth/client/auth/transport"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Client calls a token-authenticated REST API. Authenticated requests carry
// the stored access token; a 401 triggers one coalesced refresh and a single
// replay of the request.
type Client struct {
	options     *Options
	store       store.Store
	exchanger   refresh.Exchanger
	coordinator *refresh.Coordinator
	authRT      *transport.RoundTripper
	httpClient  *http.Client
	base        http.RoundTripper
	jar         *transport.FileJar
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(c *Client)

// WithStore sets a credential store, overriding options.Storage
func WithStore(aStore store.Store) Option {
	return func(c *Client) {
		c.store = aStore
	}
}

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTransport sets the transport used for all network calls
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithExchanger replaces the HTTP refresh exchanger
func WithExchanger(exchanger refresh.Exchanger) Option {
	return func(c *Client) {
		c.exchanger = exchanger
	}
}

// New creates a client for options.
func New(ctx context.Context, options *Options, opts ...Option) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	options.Init()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	ret := &Client{options: options, base: http.DefaultTransport, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.store == nil {
		aStore, err := options.Storage.NewStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create credential store: %w", err)
		}
		ret.store = aStore
	}
	base := ret.base
	if options.CookieJarURL != "" {
		jar, err := transport.NewFileJar(ctx, options.CookieJarURL, nil, ret.logger.Named("cookies"))
		if err != nil {
			return nil, err
		}
		ret.jar = jar
		base = transport.WrapWithCookieJar(base, jar)
	}
	if ret.exchanger == nil {
		refreshURL := joinURL(options.BaseURL, options.RefreshPath)
		ret.exchanger = refresh.NewHTTPExchanger(refreshURL, &http.Client{Transport: base})
	}
	ret.coordinator = refresh.New(ret.store, ret.exchanger,
		refresh.WithRotation(options.Rotate),
		refresh.WithTimeout(options.RefreshTimeout),
		refresh.WithLogger(ret.logger.Named("refresh")))
	authRT, err := transport.New(
		transport.WithStore(ret.store),
		transport.WithRefresher(ret.coordinator),
		transport.WithTransport(base),
		transport.WithLogger(ret.logger.Named("transport")))
	if err != nil {
		return nil, err
	}
	ret.authRT = authRT
	ret.httpClient = &http.Client{Transport: authRT, Timeout: options.Timeout}
	return ret, nil
}

// Options returns client options
func (c *Client) Options() *Options {
	return c.options
}

// Store returns the credential store
func (c *Client) Store() store.Store {
	return c.store
}

// Coordinator returns the refresh coordinator
func (c *Client) Coordinator() *refresh.Coordinator {
	return c.coordinator
}

// HTTPClient returns an http.Client authenticating every request it sends,
// unless the request context was marked with transport.WithoutAuth.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// TokenSource exposes the current access token as an oauth2.TokenSource.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return store.TokenSource(ctx, c.store)
}

// Execute dispatches request and returns the final response. The caller
// closes the response body.
func (c *Client) Execute(ctx context.Context, request *Request) (*http.Response, error) {
	if !request.RequiresAuth {
		ctx = transport.WithoutAuth(ctx)
	}
	httpRequest, err := request.httpRequest(ctx, c.options.BaseURL)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpRequest)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, urlErr.Err
		}
		return nil, err
	}
	return resp, nil
}

// Do executes request and decodes a 2xx JSON response into out; other
// statuses yield *HTTPError.
func (c *Client) Do(ctx context.Context, request *Request, out interface{}) error {
	resp, err := c.Execute(ctx, request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(resp, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %v: %w", resp.Request.URL, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	request, err := NewRequest(method, path, in, true)
	if err != nil {
		return err
	}
	return c.Do(ctx, request, out)
}

// Get sends an authenticated GET
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post sends an authenticated POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.call(ctx, http.MethodPost, path, in, out)
}

// Put sends an authenticated PUT with a JSON body
func (c *Client) Put(ctx context.Context, path string, in, out interface{}) error {
	return c.call(ctx, http.MethodPut, path, in, out)
}

// Patch sends an authenticated PATCH with a JSON body
func (c *Client) Patch(ctx context.Context, path string, in, out interface{}) error {
	return c.call(ctx, http.MethodPatch, path, in, out)
}

// Delete sends an authenticated DELETE
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodDelete, path, nil, out)
}
