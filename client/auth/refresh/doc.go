// Package refresh renews the access token with the stored refresh token.
//
// A Coordinator guarantees a single in-flight exchange: callers arriving while
// an exchange runs wait for it and receive the same outcome. This matters for
// servers issuing single-use refresh tokens, where a second concurrent
// exchange would invalidate the first. A rejected or malformed exchange
// clears the credential store.
package refresh
