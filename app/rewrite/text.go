package rewrite

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	trailSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// CleanText strips HTML tags, unescapes entities and normalizes blank lines.
// Feed summaries and model output both pass through here before anything is
// shown to a moderator.
func CleanText(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = trailSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// LimitWords truncates text to maxWords words, appending an ellipsis when
// anything was cut.
func LimitWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "…"
}

// Fallback is the deterministic degraded text used when the rewrite service
// returns nothing usable: the cleaned original title and body, word-limited.
// The pipeline must still reach final review on rewrite failure.
func Fallback(title, body string, maxWords int) string {
	return LimitWords(CleanText(title+"\n\n"+body), maxWords)
}
