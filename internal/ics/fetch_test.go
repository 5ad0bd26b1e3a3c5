package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.ics")
	if err := os.WriteFile(path, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(t.TempDir())
	body, err := f.Fetch(context.Background(), Source{Path: path})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(body) == 0 {
		t.Fatal("empty body")
	}
}

func TestFetchMissingSourceIsFatal(t *testing.T) {
	f := NewFetcher(t.TempDir())

	if _, err := f.Fetch(context.Background(), Source{}); err == nil {
		t.Error("empty source must fail")
	}
	if _, err := f.Fetch(context.Background(), Source{Path: "does/not/exist.ics"}); err == nil {
		t.Error("missing file must fail")
	}
}

func TestFetchURLUsesETagCache(t *testing.T) {
	const payload = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	requests := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{URL: srv.URL}

	first, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if string(first) != payload || string(second) != payload {
		t.Error("cached body mismatch")
	}
	if requests != 2 {
		t.Errorf("server saw %d requests, want 2", requests)
	}
}

func TestFetchFallsBackToCacheOnServerError(t *testing.T) {
	const payload = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	healthy := true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{URL: srv.URL}

	if _, err := f.Fetch(context.Background(), src); err != nil {
		t.Fatalf("warm-up fetch: %v", err)
	}

	healthy = false
	body, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("fallback fetch: %v", err)
	}
	if string(body) != payload {
		t.Error("fallback must serve the cached body")
	}
}
