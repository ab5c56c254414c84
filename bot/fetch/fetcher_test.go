package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher() *Fetcher {
	return New(Options{MaxAttempts: 3, Backoff: 10 * time.Millisecond})
}

func TestFetchSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp3")
	got, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != dest {
		t.Fatalf("returned path %q, want %q", got, dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
}

func TestFetchExistingShortCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cached.mp3")
	if err := os.WriteFile(dest, []byte("already-here"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != dest {
		t.Fatalf("returned path %q, want %q", got, dest)
	}
	if hits.Load() != 0 {
		t.Fatal("existing destination must not trigger network access")
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "already-here" {
		t.Fatal("existing file must be untouched")
	}
}

func TestFetchForceRefetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "stale.mp3")
	if err := os.WriteFile(dest, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, true); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Fatal("force must always attempt retrieval")
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "fresh" {
		t.Fatalf("content not replaced: %q", data)
	}
}

func TestFetchRetryBound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "never.mp3")
	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false)
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if hits.Load() != 3 {
		t.Fatalf("server hit %d times, want exactly 3", hits.Load())
	}
}

func TestFetchStopsOnFirstSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "second.mp3")
	if _, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest, false); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Fatalf("server hit %d times, want 2", hits.Load())
	}
}

func TestFetchUnwritableDestination(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	// A directory cannot be opened for writing.
	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, t.TempDir(), true)
	if err == nil {
		t.Fatal("expected hard failure for unwritable destination")
	}
	if hits.Load() != 0 {
		t.Fatal("local failure must not touch the network")
	}
}

func TestFetchEmptyDestination(t *testing.T) {
	if _, err := newTestFetcher().Fetch(context.Background(), "http://example.invalid", "", false); err == nil {
		t.Fatal("empty destination must fail")
	}
}
