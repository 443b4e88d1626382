package restauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrMalformedLogin is returned when the login endpoint answers 2xx without both tokens.
var ErrMalformedLogin = errors.New("login response did not carry access and refresh tokens")

// HTTPError is returned by Do and Login for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v %v: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%v %v: status %d: %v", e.Method, e.URL, e.StatusCode, e.Message)
}

// Unauthorized reports a 401 that survived the refresh-and-retry cycle.
func (e *HTTPError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
		Body:       body,
	}
}

// errorMessage extracts a human readable message from a REST error body:
// {"detail": ...}, {"non_field_errors": [...]}, {"field": [...]} or raw text.
func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return text
	}
	for _, key := range []string{"detail", "message", "error"} {
		if value, ok := payload[key]; ok {
			if message := flatten(value); message != "" {
				return message
			}
		}
	}
	if message := flatten(payload["non_field_errors"]); message != "" {
		return message
	}
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var messages []string
	for _, key := range keys {
		if message := flatten(payload[key]); message != "" {
			messages = append(messages, key+": "+message)
		}
	}
	if len(messages) == 0 {
		return text
	}
	return strings.Join(messages, "; ")
}

func flatten(value interface{}) string {
	switch actual := value.(type) {
	case string:
		return actual
	case []interface{}:
		var items []string
		for _, item := range actual {
			if text := flatten(item); text != "" {
				items = append(items, text)
			}
		}
		return strings.Join(items, " ")
	case nil:
		return ""
	}
	return fmt.Sprint(value)
}
