package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher downloads feed documents, article pages and enclosure images.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	imagesDir  string
}

func NewFetcher(httpClient *http.Client, userAgent, imagesDir string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		imagesDir:  imagesDir,
	}
}

// Fetch retrieves a URL with the configured user agent. Timeouts come from
// the caller's context.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// DownloadImage stores an enclosure image locally and returns its path. The
// file name is derived from the URL hash so re-downloads overwrite in place.
func (f *Fetcher) DownloadImage(ctx context.Context, url string) (string, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(f.imagesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	hash := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(hash[:8]) + imageExtension(url)
	path := filepath.Join(f.imagesDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return path, nil
}

// StockImage returns a random image from the images directory, used when a
// feed entry carries no usable enclosure. Returns an empty path when the
// directory has none; publishing degrades to text-only in that case.
func (f *Fetcher) StockImage() string {
	entries, err := os.ReadDir(f.imagesDir)
	if err != nil {
		return ""
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(f.imagesDir, entry.Name()))
		}
	}

	if len(files) == 0 {
		return ""
	}

	return files[rand.Intn(len(files))]
}

func imageExtension(url string) string {
	ext := strings.ToLower(filepath.Ext(url))
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
