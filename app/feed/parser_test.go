package feed

import (
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Feed</title>
	<link>https://example.com</link>
	<item>
		<title>First article</title>
		<link>https://example.com/first</link>
		<description>Summary of the first article.</description>
		<enclosure url="https://example.com/first.jpg" type="image/jpeg" length="1234"/>
	</item>
	<item>
		<title>Second article</title>
		<link>https://example.com/second</link>
		<description><![CDATA[<p>Summary with <b>markup</b>.</p>]]></description>
	</item>
	<item>
		<title>Linkless entry</title>
		<description>This one has no link and must be dropped.</description>
	</item>
</channel>
</rss>`

func TestParserRun(t *testing.T) {
	parser := NewParser()

	entries, err := parser.Run([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries (linkless dropped), got %d", len(entries))
	}

	first := entries[0]
	if first.Title != "First article" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.Link != "https://example.com/first" {
		t.Errorf("Unexpected link: %q", first.Link)
	}
	if first.Summary != "Summary of the first article." {
		t.Errorf("Unexpected summary: %q", first.Summary)
	}
	if first.ImageURL != "https://example.com/first.jpg" {
		t.Errorf("Expected the enclosure image, got %q", first.ImageURL)
	}

	if entries[1].ImageURL != "" {
		t.Errorf("Expected no image for the second entry, got %q", entries[1].ImageURL)
	}
}

func TestParserRejectsGarbage(t *testing.T) {
	parser := NewParser()

	if _, err := parser.Run([]byte("this is not a feed")); err == nil {
		t.Error("Expected an error for non-feed data")
	}
}

func TestContentExtractorRun(t *testing.T) {
	extractor := NewContentExtractor()

	html := `<html><head><title>Article</title></head><body>
		<nav>Home | About | Contact</nav>
		<article>
			<h1>The Headline</h1>
			<p>The first paragraph of the article body carries enough text to be
			recognized as the main content of the page by the extractor.</p>
			<p>The second paragraph continues the story with additional detail
			and context so the readability heuristics have something to score.</p>
		</article>
		</body></html>`

	text, err := extractor.Run([]byte(html))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if text == "" {
		t.Fatal("Expected extracted text")
	}
}

func TestContentExtractorEmptyInput(t *testing.T) {
	extractor := NewContentExtractor()

	if _, err := extractor.Run(nil); err == nil {
		t.Error("Expected an error for empty input")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	input := "  first line  \n\n\n\n  second line \n\n"
	expected := "first line\n\nsecond line"

	if got := normalizeWhitespace(input); got != expected {
		t.Errorf("normalizeWhitespace(%q) = %q, expected %q", input, got, expected)
	}
}
