package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentrt/agentrt/internal/apperr"
)

func TestMimeAllowed(t *testing.T) {
	cases := map[string]bool{
		"text/plain":             true,
		"text/html; charset=utf8": true,
		"application/json":       true,
		"application/xml":        true,
		"application/xhtml+xml":  true,
		"application/octet-stream": false,
		"image/png":              false,
	}
	for mt, want := range cases {
		if got := mimeAllowed(mt); got != want {
			t.Errorf("mimeAllowed(%q) = %v, want %v", mt, got, want)
		}
	}
}

func TestFetchURLRejectsDisallowedMIME(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", "3")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("abc"))
	}))
	defer srv.Close()

	_, err := fetchURL(context.Background(), srv.URL, fetchConfig{MaxBytes: 1 << 20, TimeoutSeconds: 2, MaxRedirects: 3})
	if err == nil {
		t.Fatal("expected rejection, got nil error")
	}
	if apperr.KindOf(err) != apperr.KindUnsupportedMIME {
		t.Errorf("got kind %v, want unsupported_mime", apperr.KindOf(err))
	}
}

func TestFetchURLRejectsOversizeFromHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", "10000000")
	}))
	defer srv.Close()

	_, err := fetchURL(context.Background(), srv.URL, fetchConfig{MaxBytes: 100, TimeoutSeconds: 2, MaxRedirects: 3})
	if apperr.KindOf(err) != apperr.KindOversize {
		t.Errorf("got kind %v, want oversize", apperr.KindOf(err))
	}
}

func TestFetchURLRejectsTooManyRedirects(t *testing.T) {
	var srv *httptest.Server
	hops := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, srv.URL+"/next", http.StatusFound)
	}))
	defer srv.Close()

	_, err := fetchURL(context.Background(), srv.URL, fetchConfig{MaxBytes: 1 << 20, TimeoutSeconds: 2, MaxRedirects: 3})
	if err == nil {
		t.Fatal("expected redirect cap rejection")
	}
}

func TestFetchURLRejectsMissingContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	_, err := fetchURL(context.Background(), srv.URL, fetchConfig{MaxBytes: 1 << 20, TimeoutSeconds: 2, MaxRedirects: 3})
	if err == nil {
		t.Fatal("expected rejection for missing Content-Length, got nil error")
	}
	if apperr.KindOf(err) != apperr.KindOversize {
		t.Errorf("got kind %v, want oversize", apperr.KindOf(err))
	}
}

func TestFetchURLRejectsMissingContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	_, err := fetchURL(context.Background(), srv.URL, fetchConfig{MaxBytes: 1 << 20, TimeoutSeconds: 2, MaxRedirects: 3})
	if err == nil {
		t.Fatal("expected rejection for missing Content-Type, got nil error")
	}
	if apperr.KindOf(err) != apperr.KindUnsupportedMIME {
		t.Errorf("got kind %v, want unsupported_mime", apperr.KindOf(err))
	}
}

func TestFetchURLAccepts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", "5")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	text, err := fetchURL(context.Background(), srv.URL, fetchConfig{MaxBytes: 1 << 20, TimeoutSeconds: 2, MaxRedirects: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Errorf("got %q, want hello", text)
	}
}
