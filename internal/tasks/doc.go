// Package tasks runs background work alongside the HTTP server.
//
// # Keep-alive
//
// Free hosting tiers put idle services to sleep. [KeepAlive] pings the service's own
// public health URL on a fixed interval so widgets keep getting fast answers.
// Failures are logged and never stop the loop; the loop ends when its context is cancelled.
//
// # Reporting
//
// Each ping emits a [PingResult] on an optional channel. Sends use select with default,
// so a slow or absent reader never delays the next ping.
package tasks
