// Package restauth provides a client for REST APIs secured with short-lived
// bearer access tokens and long-lived refresh tokens.
//
// A Client logs in once, keeps the token pair in a credential store with two
// mutually exclusive scopes (durable "remember me" storage or process memory)
// and attaches the access token to every authenticated request. When the
// server answers 401 Unauthorized the client exchanges the refresh token for
// a new access token, sharing a single exchange between all concurrent
// callers, and replays the request exactly once.
//
// Example:
//
//	options, _ := restauth.LoadOptions("restauth.yaml")
//	client, _ := restauth.New(ctx, options)
//	_, _ = client.Login(ctx, "alice", "secret", true)
//	var orders []Order
//	err := client.Get(ctx, "/orders/", &orders)
//	if auth.IsSessionExpired(err) {
//		// log in again
//	}
//
// Durable credentials can be kept in a local file (any afs URL), redis or a
// SQL database; see StorageOptions.
package restauth
