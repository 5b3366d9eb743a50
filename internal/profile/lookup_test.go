package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/coconet/starshop/internal/storage"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"@alice", "alice"},
		{"  @alice  ", "alice"},
		{"  alice", "alice"},
		{"@", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profilePage(name, photo string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head>
<meta property="og:title" content="%s">
<meta property="og:image" content="%s">
</head><body></body></html>`, name, photo)
}

func TestLookupFromPublicPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alice" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, profilePage("Alice Wonder", "https://cdn.example.com/alice.jpg"))
	}))
	defer srv.Close()

	s := NewService(srv.URL, nil, nil, discardLogger())

	p, err := s.Lookup(context.Background(), "@alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Name != "Alice Wonder" {
		t.Fatalf("expected scraped name, got %q", p.Name)
	}
	if p.Photo != "https://cdn.example.com/alice.jpg" {
		t.Fatalf("expected scraped photo, got %q", p.Photo)
	}
	if p.Username != "alice" {
		t.Fatalf("expected normalized username, got %q", p.Username)
	}
	if p.Language != "en" {
		t.Fatalf("expected default language en, got %q", p.Language)
	}
}

func TestLookupRejectsGenericPage(t *testing.T) {
	// t.me serves a page titled "Telegram" for unknown usernames
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profilePage("Telegram", ""))
	}))
	defer srv.Close()

	s := NewService(srv.URL, nil, nil, discardLogger())

	if _, err := s.Lookup(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupNotFoundWhenBothStepsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	// No bot API configured either
	s := NewService(srv.URL, nil, nil, discardLogger())

	if _, err := s.Lookup(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupEmptyUsername(t *testing.T) {
	s := NewService("https://t.me", nil, nil, discardLogger())

	if _, err := s.Lookup(context.Background(), "  @  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupAttachesStoredLanguage(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.UpsertUser(42, "Alice"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.SetLanguage(42, "ru"); err != nil {
		t.Fatalf("set language: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profilePage("Alice Wonder", ""))
	}))
	defer srv.Close()

	s := NewService(srv.URL, nil, store, discardLogger())

	// Username matching is case-insensitive against the directory
	p, err := s.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Language != "ru" {
		t.Fatalf("expected stored language ru, got %q", p.Language)
	}
}

func TestLookupSwallowsPageFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead host: step (a) must fail silently

	s := NewService(srv.URL, nil, nil, discardLogger())

	// With no bot API fallback the result is a clean not-found, not a
	// transport error
	if _, err := s.Lookup(context.Background(), "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
