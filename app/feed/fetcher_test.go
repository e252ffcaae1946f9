package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchSendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "newsdesk-test/1.0", t.TempDir())

	data, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Unexpected body: %q", data)
	}
	if gotUA != "newsdesk-test/1.0" {
		t.Errorf("Unexpected user agent: %q", gotUA)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "ua", t.TempDir())

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("Expected an error for a 404 response")
	}
}

func TestDownloadImageStoresFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake image bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := NewFetcher(server.Client(), "ua", dir)

	path, err := fetcher.DownloadImage(context.Background(), server.URL+"/pic.png")
	if err != nil {
		t.Fatalf("DownloadImage failed: %v", err)
	}

	if filepath.Ext(path) != ".png" {
		t.Errorf("Expected .png extension, got %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read stored image: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("Stored image content mismatch")
	}

	// Same URL resolves to the same file name.
	again, err := fetcher.DownloadImage(context.Background(), server.URL+"/pic.png")
	if err != nil {
		t.Fatalf("Second DownloadImage failed: %v", err)
	}
	if again != path {
		t.Errorf("Expected a stable path for the same URL, got %q and %q", path, again)
	}
}

func TestStockImage(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewFetcher(&http.Client{}, "ua", dir)

	if got := fetcher.StockImage(); got != "" {
		t.Errorf("Expected empty path for an empty directory, got %q", got)
	}

	stock := filepath.Join(dir, "stock.jpg")
	if err := os.WriteFile(stock, []byte("img"), 0o644); err != nil {
		t.Fatalf("Failed to write stock image: %v", err)
	}

	if got := fetcher.StockImage(); got != stock {
		t.Errorf("Expected %q, got %q", stock, got)
	}
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com/a.jpg", ".jpg"},
		{"https://example.com/a.PNG", ".png"},
		{"https://example.com/a.webp", ".webp"},
		{"https://example.com/a.jpg?size=large", ".jpg"},
		{"https://example.com/a", ".jpg"},
		{"https://example.com/a.exe", ".jpg"},
	}

	for _, tt := range tests {
		if got := imageExtension(tt.url); got != tt.expected {
			t.Errorf("imageExtension(%q) = %q, expected %q", tt.url, got, tt.expected)
		}
	}
}
