package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newsdesk/app/moderation"
	"newsdesk/app/retry"
)

var _ moderation.Publisher = (*CMSPublisher)(nil)

// CMSPublisher submits approved items to the site's admin panel as a
// create-content form. The CMS has no typed API: success is judged from the
// HTTP status and keywords in the response body.
type CMSPublisher struct {
	httpClient *http.Client
	baseURL    string
	login      string
	password   string
	policy     retry.Policy
}

// NewCMSPublisher expects an http.Client with a cookie jar; the admin session
// established by login lives in the jar.
func NewCMSPublisher(httpClient *http.Client, baseURL, login, password string, policy retry.Policy) *CMSPublisher {
	return &CMSPublisher{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		login:      login,
		password:   password,
		policy:     policy,
	}
}

func (p *CMSPublisher) Name() string {
	return "site"
}

func (p *CMSPublisher) Publish(ctx context.Context, item moderation.ProcessedItem) error {
	if p.baseURL == "" {
		return fmt.Errorf("site publishing is not configured")
	}

	return p.policy.Do(ctx, "site publish", func() error {
		if err := p.authenticate(ctx); err != nil {
			return err
		}
		return p.submit(ctx, item)
	})
}

// authenticate logs into the admin panel. A page that offers a logout link
// afterwards is taken as a live session.
func (p *CMSPublisher) authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", p.login)
	form.Set("password", p.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/admin/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !strings.Contains(strings.ToLower(string(body)), "logout") {
		return fmt.Errorf("CMS login rejected: status %d", resp.StatusCode)
	}

	return nil
}

func (p *CMSPublisher) submit(ctx context.Context, item moderation.ProcessedItem) error {
	title, body := splitTitleAndBody(item.Text)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":           title,
		"subtitle":        title,
		"body":            body,
		"seo_title":       title,
		"seo_description": truncate(body, 160),
		"seo_keywords":    keywords(title, 5),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}

	if item.ImagePath != "" {
		if err := attachImage(writer, item.ImagePath); err != nil {
			// Missing or unreadable image degrades to a text-only submission.
			slog.Warn("Failed to attach image to CMS form", "path", item.ImagePath, "error", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/admin/news/create", &buf)
	if err != nil {
		return fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CMS returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read submit response: %w", err)
	}

	lower := strings.ToLower(string(data))
	if strings.Contains(lower, "success") || strings.Contains(lower, "успешно") {
		return nil
	}

	// Ambiguous 200: log the page title to help diagnose what came back.
	pageTitle := ""
	if doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(data)); docErr == nil {
		pageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return fmt.Errorf("CMS response carries no success marker (page title: %q)", pageTitle)
}

func attachImage(writer *multipart.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	part, err := writer.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return err
	}

	_, err = io.Copy(part, file)
	return err
}

// splitTitleAndBody treats the first paragraph of the processed text as the
// title, the rest as the body.
func splitTitleAndBody(text string) (string, string) {
	title, body, found := strings.Cut(strings.TrimSpace(text), "\n\n")
	if !found {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title), strings.TrimSpace(body)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func keywords(title string, max int) string {
	words := strings.Fields(title)
	if len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, ", ")
}
