// Package mock provides an in-process token-auth backend for tests: a login
// endpoint, a refresh endpoint and protected resources validating HS256
// access tokens.
//
// Expire invalidates all outstanding access tokens, which makes the next
// protected call answer 401 and exercises the client's refresh path.
package mock
