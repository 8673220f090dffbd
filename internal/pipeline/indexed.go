package pipeline

import (
	"strings"
	"time"

	"github.com/sievesearch/sieve/internal/fingerprint"
)

// IndexedPage is the row shape persisted in the pages table, derived from a
// PageRecord at indexing time.
type IndexedPage struct {
	ID          string
	URL         string
	URLHash     string
	Title       string
	Description string
	Author      string
	Headings    []string
	Keywords    []string
	Links       []string
	ScriptLinks []string
	Content     string
	Domain      string
	ContentHash string
	WordCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewIndexedPage derives the store row for a page. The caller must have
// validated the location first. CreatedAt falls back to now when the crawler
// did not stamp the record.
func NewIndexedPage(p PageRecord, now time.Time) (IndexedPage, error) {
	domain, err := p.Domain()
	if err != nil {
		return IndexedPage{}, err
	}
	content := p.ContentText()
	createdAt := now
	if p.CreatedAt > 0 {
		createdAt = time.Unix(p.CreatedAt, 0).UTC()
	}
	return IndexedPage{
		URL:         p.Location,
		URLHash:     fingerprint.URLHash(p.Location),
		Title:       p.Title,
		Description: p.Description,
		Author:      p.Author,
		Headings:    p.Headings,
		Keywords:    p.Keywords,
		Links:       p.Links,
		ScriptLinks: p.ScriptLinks,
		Content:     content,
		Domain:      domain,
		ContentHash: fingerprint.ContentHash(p.Title, p.Content),
		WordCount:   len(strings.Fields(content)),
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}, nil
}
