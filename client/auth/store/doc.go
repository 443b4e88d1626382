// Package store keeps the access/refresh credential pair in one of two
// mutually exclusive scopes: Durable ("remember me") and Ephemeral
// (process lifetime).
//
// Scoped composes one Backend per scope and guarantees that writing one scope
// empties the other. Backends ship for memory, afs files, redis and SQL
// databases (sqlite or postgres through gorm).
package store
