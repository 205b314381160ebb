package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 10 * time.Minute

// PingResult reports the outcome of one keep-alive ping.
type PingResult struct {
	At       time.Time
	Status   int           // HTTP status, zero when the request failed
	Duration time.Duration // round trip time
	Err      error
}

// KeepAlive periodically requests a URL.
type KeepAlive struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *log.Logger
}

// NewKeepAlive creates a [KeepAlive]. A nil client gets a 30s timeout.
func NewKeepAlive(url string, interval time.Duration, client *http.Client, logger *log.Logger) *KeepAlive {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &KeepAlive{url: url, interval: interval, client: client, logger: logger}
}

// Enabled reports whether a target URL is configured.
func (k *KeepAlive) Enabled() bool {
	return k.url != ""
}

// Run pings on every tick until ctx is done. It returns immediately when disabled.
func (k *KeepAlive) Run(ctx context.Context, results chan<- PingResult) {
	if !k.Enabled() {
		k.logger.Debug("keep-alive disabled")
		return
	}

	k.logger.Info("keep-alive started", "url", k.url, "interval", k.interval)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("keep-alive stopped")
			return
		case <-ticker.C:
			send(results, k.Ping(ctx))
		}
	}
}

// Ping requests the URL once and logs the outcome.
func (k *KeepAlive) Ping(ctx context.Context) PingResult {
	res := PingResult{At: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		k.logger.Warn("keep-alive ping failed", "err", res.Err)
		return res
	}

	resp, err := k.client.Do(req)
	res.Duration = time.Since(res.At)
	if err != nil {
		res.Err = err
		k.logger.Warn("keep-alive ping failed", "err", err)
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		res.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		k.logger.Warn("keep-alive ping failed", "status", resp.StatusCode)
		return res
	}

	k.logger.Debug("keep-alive ping", "status", resp.StatusCode, "duration", res.Duration)
	return res
}

// send delivers r without blocking.
func send(results chan<- PingResult, r PingResult) {
	if results == nil {
		return
	}
	select {
	case results <- r:
	default:
	}
}
