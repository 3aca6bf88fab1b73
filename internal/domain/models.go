package domain

import "time"

// Domain contains core models shared by the pipeline stages.

// Issue is one weekly print edition, identified by publication date.
type Issue struct {
	ID          string
	Date        string
	Title       string
	CoverURL    string
	SourceURL   string
	Sections    []Section
	RetrievedAt time.Time
}

// Section is a named group of articles in table-of-contents order.
type Section struct {
	Title    string
	Articles []Article
}

// Article is a single print edition article. Paragraphs and ImageURLs keep
// document order. Images holds whatever the resolver could fetch and may be
// shorter than ImageURLs.
type Article struct {
	URL         string
	Title       string
	Byline      string
	Paragraphs  []string
	TopImageURL string
	ImageURLs   []string
	Images      []Image
}

// Image is an inline image resolved to a local, resized file.
type Image struct {
	SourceURL   string
	Filename    string
	LocalPath   string
	ContentType string
}

// CacheEntry is the durable record for one fetched URL.
type CacheEntry struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ArticleCount reports the number of articles across all sections.
func (i Issue) ArticleCount() int {
	total := 0
	for _, s := range i.Sections {
		total += len(s.Articles)
	}
	return total
}

// OutputName is the file name the built ebook is written under.
func (i Issue) OutputName() string {
	return i.ID + ".epub"
}
