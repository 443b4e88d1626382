package transport

import (
	"bytes"
	"io"
	"net/http"
)

// snapshot reads the request body once and returns a builder producing
// independent copies of req, so a replay sends identical bytes.
func snapshot(r *http.Request) (func() *http.Request, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, err
		}
		body = data
	}
	return func() *http.Request {
		cloned := r.Clone(r.Context())
		if body != nil {
			cloned.Body = io.NopCloser(bytes.NewReader(body))
			cloned.ContentLength = int64(len(body))
			cloned.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}
		return cloned
	}, nil
}

// buffer drains resp so it can be handed back after the connection is released.
func buffer(resp *http.Response) (*http.Response, error) {
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	resp.ContentLength = int64(len(data))
	return resp, nil
}
