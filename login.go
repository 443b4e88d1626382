package restauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/viant/restauth/client/auth/store"
	"go.uber.org/zap"
)

// Login exchanges username and password for a token pair and stores it.
// remember keeps the pair in durable storage; otherwise it lives for the
// process only. Either way the other scope is cleared.
func (c *Client) Login(ctx context.Context, username, password string, remember bool) (*store.Credentials, error) {
	request, err := NewRequest(http.MethodPost, c.options.LoginPath, map[string]string{
		"username": username,
		"password": password,
	}, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.Execute(ctx, request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(resp, body)
	}
	credentials := &store.Credentials{}
	if err = json.Unmarshal(body, credentials); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLogin, err)
	}
	if credentials.Access == "" || credentials.Refresh == "" {
		return nil, ErrMalformedLogin
	}
	scope := store.Ephemeral
	if remember {
		scope = store.Durable
	}
	if err = c.store.Write(ctx, credentials, scope); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}
	c.logger.Info("logged in", zap.String("user", username), zap.String("scope", string(scope)))
	return credentials.Clone(), nil
}

// Logout forgets credentials in both scopes and any session cookies.
func (c *Client) Logout(ctx context.Context) error {
	err := c.store.Clear(ctx)
	if c.jar != nil {
		err = errors.Join(err, c.jar.Clear(ctx))
	}
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

// Authenticated reports whether an access token is stored in either scope.
func (c *Client) Authenticated(ctx context.Context) bool {
	credentials, err := c.store.Read(ctx)
	return err == nil && credentials != nil && credentials.Access != ""
}
