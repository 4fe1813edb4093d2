package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetcher_Fetch(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/new/page.html", http.StatusFound)
		case "/new/page.html":
			userAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<p>hello</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "RSS-Mirror/test", 5*time.Second, 1024)

	resp, err := fetcher.Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if string(resp.Body) != "<p>hello</p>" {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
	if resp.ContentType != "text/html; charset=utf-8" {
		t.Errorf("Unexpected content type: %s", resp.ContentType)
	}
	if resp.URL.Path != "/new/page.html" {
		t.Errorf("Expected final URL after redirect, got: %s", resp.URL)
	}
	if userAgent != "RSS-Mirror/test" {
		t.Errorf("Expected user agent to be sent, got: %s", userAgent)
	}
}

func TestFetcher_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "", 0, 0)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got: %d", fetchErr.StatusCode)
	}
}

func TestFetcher_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "", 0, 16)

	_, err := fetcher.Fetch(context.Background(), server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %v", err)
	}
	if !strings.Contains(fetchErr.Error(), "exceeds 16 bytes") {
		t.Errorf("Unexpected error: %v", fetchErr)
	}
}

func TestFetcher_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	_, err := NewFetcher(nil, "", time.Second, 0).Fetch(context.Background(), target)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got: %v", err)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("Expected no status code for connection error, got: %d", fetchErr.StatusCode)
	}
}
