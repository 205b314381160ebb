// Package repositories implements persistence for domain entities on top of sqlx.
//
// Queries are written with "?" placeholders and rebound for the connection's driver,
// so the same repository serves SQLite and Postgres.
//
// Key Implementations:
//   - [UserRepository] : user/token persistence keyed by Spotify user id and widget key
package repositories
