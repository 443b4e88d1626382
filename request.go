package restauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes a call relative to the client's base URL. A Request is
// never mutated by the client; every dispatch builds a fresh http.Request.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Header       http.Header
	Body         []byte
	RequiresAuth bool
}

// NewRequest creates a request descriptor; body is sent as-is when it is
// []byte, string or io.Reader and JSON-encoded otherwise.
func NewRequest(method, path string, body interface{}, requiresAuth bool) (*Request, error) {
	ret := &Request{Method: method, Path: path, RequiresAuth: requiresAuth, Header: http.Header{}}
	switch actual := body.(type) {
	case nil:
	case []byte:
		ret.Body = actual
	case string:
		ret.Body = []byte(actual)
	case io.Reader:
		data, err := io.ReadAll(actual)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		ret.Body = data
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		ret.Body = data
	}
	return ret, nil
}

// httpRequest builds the http.Request for base.
func (r *Request) httpRequest(ctx context.Context, base string) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	URL := joinURL(base, r.Path)
	if len(r.Query) > 0 {
		separator := "?"
		if strings.Contains(URL, "?") {
			separator = "&"
		}
		URL += separator + r.Query.Encode()
	}
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range r.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if r.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
