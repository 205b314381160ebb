package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tu "github.com/desertthunder/nowplaying/internal/testing"
)

func TestKeepAlive(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		k := NewKeepAlive("", 0, nil, tu.DiscardLogger())
		if k.interval != DefaultInterval {
			t.Errorf("expected default interval, got %v", k.interval)
		}
		if k.Enabled() {
			t.Error("empty url should disable keep-alive")
		}
	})

	t.Run("Disabled Returns Immediately", func(t *testing.T) {
		k := NewKeepAlive("", time.Millisecond, nil, tu.DiscardLogger())

		done := make(chan struct{})
		go func() {
			k.Run(context.Background(), nil)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("disabled keep-alive should return immediately")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/healthz" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		res := NewKeepAlive(srv.URL+"/healthz", time.Minute, nil, tu.DiscardLogger()).Ping(context.Background())
		if res.Err != nil || res.Status != http.StatusOK {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Ping Error Status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		res := NewKeepAlive(srv.URL, time.Minute, nil, tu.DiscardLogger()).Ping(context.Background())
		if res.Err == nil || res.Status != http.StatusServiceUnavailable {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Ping Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("dial failed"))}

		res := NewKeepAlive("http://example.invalid", time.Minute, client, tu.DiscardLogger()).Ping(context.Background())
		if res.Err == nil || res.Status != 0 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Run Ticks Until Cancelled", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		results := make(chan PingResult, 16)
		k := NewKeepAlive(srv.URL, 10*time.Millisecond, nil, tu.DiscardLogger())

		done := make(chan struct{})
		go func() {
			k.Run(ctx, results)
			close(done)
		}()

		for range 2 {
			select {
			case res := <-results:
				if res.Err != nil {
					t.Errorf("unexpected ping error: %v", res.Err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for ping")
			}
		}

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("keep-alive did not stop after cancel")
		}

		if hits.Load() < 2 {
			t.Errorf("expected at least 2 pings, got %d", hits.Load())
		}
	})

	t.Run("Send Never Blocks", func(t *testing.T) {
		full := make(chan PingResult)
		send(full, PingResult{})
		send(nil, PingResult{})
	})
}
