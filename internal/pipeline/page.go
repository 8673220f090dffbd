// Package pipeline defines the content model and service interfaces shared by
// the classification gate and the batch indexer.
package pipeline

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// wordPattern matches runs of Unicode word characters, mirroring the
// tokenization the classifier vocabulary was fit against.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// PageRecord is the normalized representation of one crawled web page as it
// travels from the crawler through the gate to the indexer.
type PageRecord struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Author        string   `json:"author"`
	Keywords      []string `json:"keywords"`
	Headings      []string `json:"headings"`
	Content       []string `json:"content"`
	Links         []string `json:"links"`
	ScriptLinks   []string `json:"script_links"`
	ScriptContent []string `json:"script_content"`
	Location      string   `json:"location"`
	CreatedAt     int64    `json:"created_at,omitempty"`
}

// DecodePage deserializes a queue payload into a PageRecord. Missing string
// fields default to empty strings and missing list fields to empty slices.
// Only malformed JSON is an error; location validity is checked separately so
// callers can classify the two failure modes differently.
func DecodePage(data []byte) (PageRecord, error) {
	var p PageRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return PageRecord{}, fmt.Errorf("decode page: %w", err)
	}
	p.normalize()
	return p, nil
}

// EncodePage serializes a PageRecord for the indexing queue.
func EncodePage(p PageRecord) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return data, nil
}

func (p *PageRecord) normalize() {
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	if p.Headings == nil {
		p.Headings = []string{}
	}
	if p.Content == nil {
		p.Content = []string{}
	}
	if p.Links == nil {
		p.Links = []string{}
	}
	if p.ScriptLinks == nil {
		p.ScriptLinks = []string{}
	}
	if p.ScriptContent == nil {
		p.ScriptContent = []string{}
	}
}

// ValidateLocation checks that the page location is a well-formed absolute
// http or https URL with a host component.
func (p PageRecord) ValidateLocation() error {
	u, err := url.Parse(p.Location)
	if err != nil {
		return fmt.Errorf("parse location %q: %w", p.Location, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("location %q: scheme must be http or https", p.Location)
	}
	if u.Host == "" {
		return fmt.Errorf("location %q: missing host", p.Location)
	}
	return nil
}

// Domain returns the host component of the page location, including any port,
// which is the unit the blacklist operates on.
func (p PageRecord) Domain() (string, error) {
	u, err := url.Parse(p.Location)
	if err != nil {
		return "", fmt.Errorf("parse location %q: %w", p.Location, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("location %q: missing host", p.Location)
	}
	return u.Host, nil
}

// ContentText joins the content fragments into a single string, the form the
// store persists and the validator measures.
func (p PageRecord) ContentText() string {
	return strings.Join(p.Content, " ")
}

// Tokenize flattens every textual field into one lower-cased token string.
// Tokens are extracted on word boundaries and only purely ASCII-alphabetic
// tokens longer than three characters survive. The classifier vocabulary was
// fit against exactly this normalization, so the field order and filtering
// must not change.
func (p PageRecord) Tokenize() string {
	parts := make([]string, 0, 16)
	appendNonEmpty := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	appendNonEmpty(p.Title)
	appendNonEmpty(p.Description)
	appendNonEmpty(p.Author)
	parts = append(parts, p.Keywords...)
	parts = append(parts, p.Headings...)
	parts = append(parts, p.Content...)
	parts = append(parts, p.Links...)
	parts = append(parts, p.ScriptLinks...)
	parts = append(parts, p.ScriptContent...)
	appendNonEmpty(p.Location)

	combined := strings.ToLower(strings.Join(parts, " "))
	raw := wordPattern.FindAllString(combined, -1)

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) > 3 && isASCIIAlpha(t) {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, " ")
}

func isASCIIAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
