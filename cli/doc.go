// Package cli implements the restauth command line tool: login, logout,
// status and call against a token-authenticated REST API.
package cli
