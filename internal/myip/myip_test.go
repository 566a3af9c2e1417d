package myip

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"

	"fdu/internal/retry"

	"github.com/sirupsen/logrus"
)

func jsonServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "text/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testResolver(v4, v6 string) *Resolver {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := NewResolver(logrus.NewEntry(log))
	r.V4URL = v4
	r.V6URL = v6
	r.Retry = retry.Config{MaxAttempts: 3}
	return r
}

func TestSnapshot(t *testing.T) {
	v4 := jsonServer(t, http.StatusOK, `{"address": "49.20.57.31", "proto": "ipv4"}`, nil)
	v6 := jsonServer(t, http.StatusOK, `{"address": "fd2b:1c1b:3641:1cd8::", "proto": "ipv6"}`, nil)

	ips, err := testResolver(v4.URL, v6.URL).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if ips.V4 != netip.MustParseAddr("49.20.57.31") {
		t.Errorf("V4 = %v", ips.V4)
	}
	if ips.V6 != netip.MustParseAddr("fd2b:1c1b:3641:1cd8::") {
		t.Errorf("V6 = %v", ips.V6)
	}
}

func TestSnapshot_PartialFailure(t *testing.T) {
	var hits int32
	v4 := jsonServer(t, http.StatusOK, `{"address": "49.20.57.31"}`, nil)
	v6 := jsonServer(t, http.StatusBadGateway, `bad gateway`, &hits)

	ips, err := testResolver(v4.URL, v6.URL).Snapshot(context.Background())
	if err == nil {
		t.Fatal("expected the ipv6 failure to be reported")
	}
	if !ips.V4.IsValid() {
		t.Error("ipv4 should survive an ipv6 failure")
	}
	if ips.V6.IsValid() {
		t.Errorf("V6 = %v, want invalid", ips.V6)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("ipv6 endpoint hit %d times, want 3", got)
	}
}

func TestLookup_WrongFamily(t *testing.T) {
	v4 := jsonServer(t, http.StatusOK, `{"address": "fd2b:1c1b:3641:1cd8::"}`, nil)

	_, err := testResolver(v4.URL, "").IPv4(context.Background())
	if !errors.Is(err, ErrWrongFamily) {
		t.Errorf("expected ErrWrongFamily, got %v", err)
	}
}

func TestLookup_ClientErrorNotRetried(t *testing.T) {
	var hits int32
	v4 := jsonServer(t, http.StatusNotFound, `nope`, &hits)

	if _, err := testResolver(v4.URL, "").IPv4(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("endpoint hit %d times, want 1", got)
	}
}

func TestLookup_BadBody(t *testing.T) {
	v4 := jsonServer(t, http.StatusOK, `{"address": "not-an-ip"}`, nil)

	if _, err := testResolver(v4.URL, "").IPv4(context.Background()); err == nil {
		t.Error("expected error for an invalid address")
	}
}
