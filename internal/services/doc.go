// Package services talks to Spotify on behalf of stored users.
//
// # Provider
//
// [Provider] is the slice of Spotify the service needs: the OAuth login URL, the
// authorization-code and refresh-token grants, the current user's profile and the
// currently playing track. [SpotifyClient] implements it with [oauth2.Config] for the
// token endpoint and a rate limited [http.Client] for the Web API.
//
// # Accounts
//
// [Accounts] links Spotify users to widget keys: it runs the callback flow
// (exchange, profile, upsert) and persists refreshed tokens. Concurrent refreshes for
// one user are collapsed into a single token request.
//
// # Playback
//
// [PlaybackService] resolves a widget key, queries the player endpoint, refreshes and
// retries once on 401 and normalizes the response into [models.PlaybackState].
//
// # Error Handling
//
// Provider failures are returned as [*shared.ProviderError], which unwraps to
// [shared.ErrProvider] and, where known, a more specific cause:
//   - [shared.ErrUnauthorized] : the access token was rejected
//   - [shared.ErrParse] : the body was not the expected JSON
//   - [shared.ErrMissingField] : a required field was absent
package services
