// Package auth holds the error taxonomy shared by the client-side
// authentication helpers.
//
// Sub-packages implement the moving parts:
//   - store keeps the access/refresh pair in one of two exclusive scopes,
//   - refresh exchanges the refresh token, coalescing concurrent callers,
//   - transport is the http.RoundTripper that attaches the bearer token and
//     retries a request once after a successful refresh,
//   - mock is an httptest backend used by tests and examples.
//
// A transport failure surfaces as *NetworkError; an unrecoverable 401 surfaces
// as *SessionExpiredError, which matches ErrSessionExpired with errors.Is.
package auth
