package feed

// Entry is a single normalized feed entry. Absent fields are empty strings,
// never errors; the feed boundary treats missing data as recoverable.
type Entry struct {
	Title    string
	Link     string
	Summary  string
	ImageURL string
}
