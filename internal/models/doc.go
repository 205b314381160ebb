// Package models defines domain entities and persistence interfaces for the nowplaying service.
//
//   - [User] : a Spotify account linked to an opaque widget key, with its OAuth tokens
//   - [PlaybackState] : the normalized "currently playing" payload returned to widgets
//
// [UserRepository] is the storage contract implemented in internal/repositories.
package models
