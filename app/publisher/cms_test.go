package publisher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsdesk/app/moderation"
	"newsdesk/app/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

type cmsServer struct {
	*httptest.Server
	loginOK    bool
	createBody string
	gotLogin   bool
	gotCreate  bool
	gotFields  map[string]string
}

func newCMSServer(t *testing.T) *cmsServer {
	t.Helper()

	s := &cmsServer{
		loginOK:    true,
		createBody: "<html><body>Content created successfully</body></html>",
		gotFields:  map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		s.gotLogin = true
		if r.FormValue("username") == "" || r.FormValue("password") == "" {
			http.Error(w, "missing credentials", http.StatusBadRequest)
			return
		}
		if !s.loginOK {
			w.Write([]byte("<html><body>Invalid credentials</body></html>"))
			return
		}
		w.Write([]byte(`<html><body><a href="/admin/logout">Logout</a></body></html>`))
	})
	mux.HandleFunc("/admin/news/create", func(w http.ResponseWriter, r *http.Request) {
		s.gotCreate = true
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		for name, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				s.gotFields[name] = values[0]
			}
		}
		w.Write([]byte(s.createBody))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func testItem() moderation.ProcessedItem {
	return moderation.ProcessedItem{
		Link:          "https://example.com/article",
		Text:          "The Headline Of The Piece\n\nFirst paragraph of the body.\n\nSecond paragraph.",
		OriginalTitle: "The Headline Of The Piece",
	}
}

func TestPublishSubmitsForm(t *testing.T) {
	server := newCMSServer(t)
	pub := NewCMSPublisher(server.Client(), server.URL, "admin", "secret", testPolicy())

	if err := pub.Publish(context.Background(), testItem()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !server.gotLogin {
		t.Error("Expected a login request before the form submit")
	}
	if !server.gotCreate {
		t.Fatal("Expected a create request")
	}

	if got := server.gotFields["title"]; got != "The Headline Of The Piece" {
		t.Errorf("Unexpected title field: %q", got)
	}
	if got := server.gotFields["body"]; !strings.Contains(got, "First paragraph") {
		t.Errorf("Unexpected body field: %q", got)
	}
	if got := server.gotFields["seo_keywords"]; got != "The, Headline, Of, The, Piece" {
		t.Errorf("Unexpected keywords field: %q", got)
	}
	if got := server.gotFields["seo_description"]; len([]rune(got)) > 160 {
		t.Errorf("SEO description over 160 runes: %d", len([]rune(got)))
	}
}

func TestPublishFailsOnRejectedLogin(t *testing.T) {
	server := newCMSServer(t)
	server.loginOK = false
	pub := NewCMSPublisher(server.Client(), server.URL, "admin", "wrong", testPolicy())

	if err := pub.Publish(context.Background(), testItem()); err == nil {
		t.Fatal("Expected Publish to fail when login is rejected")
	}
	if server.gotCreate {
		t.Error("No create request should follow a failed login")
	}
}

func TestPublishFailsWithoutSuccessMarker(t *testing.T) {
	server := newCMSServer(t)
	server.createBody = "<html><head><title>Error page</title></head><body>Something odd</body></html>"
	pub := NewCMSPublisher(server.Client(), server.URL, "admin", "secret", testPolicy())

	err := pub.Publish(context.Background(), testItem())
	if err == nil {
		t.Fatal("Expected Publish to fail on an ambiguous response")
	}
	if !strings.Contains(err.Error(), "Error page") {
		t.Errorf("Expected the page title in the error, got %v", err)
	}
}

func TestPublishRussianSuccessMarker(t *testing.T) {
	server := newCMSServer(t)
	server.createBody = "<html><body>Новость успешно добавлена</body></html>"
	pub := NewCMSPublisher(server.Client(), server.URL, "admin", "secret", testPolicy())

	if err := pub.Publish(context.Background(), testItem()); err != nil {
		t.Errorf("Expected the Russian success marker to be accepted, got %v", err)
	}
}

func TestPublishUnconfigured(t *testing.T) {
	pub := NewCMSPublisher(&http.Client{}, "", "", "", testPolicy())

	if err := pub.Publish(context.Background(), testItem()); err == nil {
		t.Error("Expected an error when the site URL is not configured")
	}
}

func TestSplitTitleAndBody(t *testing.T) {
	title, body := splitTitleAndBody("Headline\n\nBody text.")
	if title != "Headline" || body != "Body text." {
		t.Errorf("Got title=%q body=%q", title, body)
	}

	title, body = splitTitleAndBody("Only one paragraph")
	if title != "Only one paragraph" || body != "" {
		t.Errorf("Single paragraph: got title=%q body=%q", title, body)
	}
}

func TestKeywords(t *testing.T) {
	if got := keywords("one two three four five six seven", 5); got != "one, two, three, four, five" {
		t.Errorf("keywords() = %q", got)
	}
	if got := keywords("short title", 5); got != "short, title" {
		t.Errorf("keywords() = %q", got)
	}
}
