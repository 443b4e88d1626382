package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viant/restauth/client/auth"
)

var (
	// ErrNoRefreshToken is returned when there is nothing to exchange.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRejected is returned when the refresh endpoint answers with a non-success status.
	ErrRejected = errors.New("refresh token rejected")
	// ErrMalformed is returned when the refresh endpoint answer carries no access token.
	ErrMalformed = errors.New("malformed refresh response")
)

// Error describes a failed exchange. It wraps one of the sentinel errors.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%v: status %d: %s", e.Err, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Grant is the refresh endpoint answer; Refresh is set only by rotating servers.
type Grant struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Exchanger trades a refresh token for a new access token.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (*Grant, error)
}

// HTTPExchanger posts {"refresh": token} to URL.
type HTTPExchanger struct {
	URL    string
	client *http.Client
}

// NewHTTPExchanger creates an exchanger for the refresh endpoint at URL.
func NewHTTPExchanger(URL string, client *http.Client) *HTTPExchanger {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExchanger{URL: URL, client: client}
}

func (h *HTTPExchanger) Exchange(ctx context.Context, refreshToken string) (*Grant, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	response, err := h.client.Do(request)
	if err != nil {
		return nil, &auth.NetworkError{Op: "refresh", URL: h.URL, Err: err}
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &auth.NetworkError{Op: "refresh", URL: h.URL, Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &Error{StatusCode: response.StatusCode, Message: strings.TrimSpace(string(body)), Err: ErrRejected}
	}
	grant := &Grant{}
	if err = json.Unmarshal(body, grant); err != nil {
		return nil, &Error{StatusCode: response.StatusCode, Message: err.Error(), Err: ErrMalformed}
	}
	if grant.Access == "" {
		return nil, &Error{StatusCode: response.StatusCode, Message: "access token missing", Err: ErrMalformed}
	}
	return grant, nil
}
