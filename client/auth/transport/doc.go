// Package transport implements an http.RoundTripper that attaches the stored
// access token as a Bearer credential, detects 401 Unauthorized, asks a
// Refresher for renewed credentials and replays the request exactly once.
//
// A request never goes through more than: send, refresh, one replay. The
// replay's response is returned whatever its status. When the refresh token is
// absent or rejected the call fails with *auth.SessionExpiredError holding the
// original 401 response.
//
// Requests made with a context from WithoutAuth are dispatched without an
// Authorization header and their status is never inspected.
package transport
