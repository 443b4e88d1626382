package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/restauth/client/auth"
	"github.com/viant/restauth/client/auth/refresh"
	"github.com/viant/restauth/client/auth/store"
)

type fakeRefresher struct {
	store  store.Store
	access string
	err    error
	before func()
	calls  atomic.Int32
}

func (f *fakeRefresher) RefreshRejected(ctx context.Context, _ string) (*store.Credentials, error) {
	f.calls.Add(1)
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	current, err := f.store.Read(ctx)
	if err != nil || current == nil {
		return nil, &refresh.Error{Err: refresh.ErrNoRefreshToken}
	}
	if err = f.store.UpdateAccess(ctx, current.Refresh, f.access); err != nil {
		return nil, err
	}
	return f.store.Read(ctx)
}

type recorder struct {
	mu      sync.Mutex
	valid   string
	headers []string
	bodies  []string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.headers = append(r.headers, req.Header.Get("Authorization"))
	r.bodies = append(r.bodies, string(body))
	valid := r.valid
	r.mu.Unlock()
	if req.Header.Get("Authorization") != "Bearer "+valid {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"token expired"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func newClient(t *testing.T, creds *store.Credentials, refresher *fakeRefresher) (*http.Client, store.Store) {
	t.Helper()
	aStore := store.NewMemory()
	if creds != nil {
		require.NoError(t, aStore.Write(context.Background(), creds, store.Ephemeral))
	}
	refresher.store = aStore
	rt, err := New(WithStore(aStore), WithRefresher(refresher))
	require.NoError(t, err)
	return &http.Client{Transport: rt}, aStore
}

func TestNew_RequiresRefresher(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
}

func TestRoundTripper_AttachesBearer(t *testing.T) {
	rec := &recorder{valid: "A1"}
	server := httptest.NewServer(rec)
	defer server.Close()
	refresher := &fakeRefresher{}
	client, _ := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

	resp, err := client.Get(server.URL + "/resource/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer A1"}, rec.headers)
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestRoundTripper_NoCredentials(t *testing.T) {
	rec := &recorder{valid: "A1"}
	server := httptest.NewServer(rec)
	defer server.Close()
	refresher := &fakeRefresher{err: &refresh.Error{Err: refresh.ErrNoRefreshToken}}
	client, _ := newClient(t, nil, refresher)

	_, err := client.Get(server.URL + "/resource/")
	require.Error(t, err)
	assert.True(t, auth.IsSessionExpired(err))
	assert.Equal(t, []string{""}, rec.headers)
}

func TestRoundTripper_RefreshAndReplay(t *testing.T) {
	rec := &recorder{valid: "A2"}
	server := httptest.NewServer(rec)
	defer server.Close()
	refresher := &fakeRefresher{access: "A2"}
	client, aStore := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

	resp, err := client.Post(server.URL+"/orders/", "application/json", strings.NewReader(`{"qty":3}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(data))
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, rec.headers)
	assert.Equal(t, []string{`{"qty":3}`, `{"qty":3}`}, rec.bodies)
	assert.EqualValues(t, 1, refresher.calls.Load())
	creds, err := aStore.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &store.Credentials{Access: "A2", Refresh: "R1"}, creds)
}

func TestRoundTripper_RetryOutcomeIsFinal(t *testing.T) {
	rec := &recorder{valid: "never"}
	server := httptest.NewServer(rec)
	defer server.Close()
	refresher := &fakeRefresher{access: "A2"}
	client, _ := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

	resp, err := client.Get(server.URL + "/resource/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Len(t, rec.headers, 2)
	assert.EqualValues(t, 1, refresher.calls.Load())
}

func TestRoundTripper_RefreshFailure(t *testing.T) {
	var testCases = []struct {
		description   string
		err           error
		expectExpired bool
		expectStatus  int
	}{
		{description: "rejected refresh token", err: &refresh.Error{StatusCode: 401, Err: refresh.ErrRejected}, expectExpired: true},
		{description: "malformed refresh response", err: &refresh.Error{StatusCode: 200, Err: refresh.ErrMalformed}, expectExpired: true},
		{description: "absent refresh token", err: &refresh.Error{Err: refresh.ErrNoRefreshToken}, expectExpired: true},
		{description: "refresh endpoint unreachable", err: &auth.NetworkError{Op: "refresh", Err: errors.New("connection refused")}, expectStatus: http.StatusUnauthorized},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			rec := &recorder{valid: "A2"}
			server := httptest.NewServer(rec)
			defer server.Close()
			refresher := &fakeRefresher{err: testCase.err}
			client, _ := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

			resp, err := client.Get(server.URL + "/resource/")
			assert.Len(t, rec.headers, 1)
			if !testCase.expectExpired {
				require.NoError(t, err)
				defer resp.Body.Close()
				assert.Equal(t, testCase.expectStatus, resp.StatusCode)
				data, _ := io.ReadAll(resp.Body)
				assert.Equal(t, `{"detail":"token expired"}`, string(data))
				return
			}
			require.Error(t, err)
			var expired *auth.SessionExpiredError
			require.True(t, errors.As(err, &expired))
			require.NotNil(t, expired.Response)
			assert.Equal(t, http.StatusUnauthorized, expired.Response.StatusCode)
			data, _ := io.ReadAll(expired.Response.Body)
			assert.Equal(t, `{"detail":"token expired"}`, string(data))
		})
	}
}

func TestRoundTripper_Public(t *testing.T) {
	rec := &recorder{valid: "A1"}
	server := httptest.NewServer(rec)
	defer server.Close()
	refresher := &fakeRefresher{access: "A2"}
	client, _ := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

	req, err := http.NewRequestWithContext(WithoutAuth(context.Background()), http.MethodGet, server.URL+"/login/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer leaked")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{""}, rec.headers)
	assert.EqualValues(t, 0, refresher.calls.Load())
	assert.Equal(t, "Bearer leaked", req.Header.Get("Authorization"))
}

func TestRoundTripper_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	URL := server.URL
	server.Close()
	refresher := &fakeRefresher{access: "A2"}
	client, _ := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

	_, err := client.Get(URL + "/resource/")
	require.Error(t, err)
	var networkErr *auth.NetworkError
	assert.True(t, errors.As(err, &networkErr))
	assert.False(t, auth.IsSessionExpired(err))
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestRoundTripper_CancelledWhileRefreshing(t *testing.T) {
	rec := &recorder{valid: "A2"}
	server := httptest.NewServer(rec)
	defer server.Close()
	ctx, cancel := context.WithCancel(context.Background())
	refresher := &fakeRefresher{err: context.Canceled, before: cancel}
	client, _ := newClient(t, &store.Credentials{Access: "A1", Refresh: "R1"}, refresher)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, auth.IsSessionExpired(err))
	assert.Len(t, rec.headers, 1)
}
