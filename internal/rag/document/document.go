// Package document loads the reference document the index is built from.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnreadable is returned when the document is missing, unreadable or not UTF-8 text.
var ErrUnreadable = errors.New("document: unreadable")

// blockSelector lists elements whose text becomes its own paragraph.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td, th, dt, dd"

// Load reads the document at path and returns its text. HTML files are
// reduced to their readable text, one paragraph per block element.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrUnreadable, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := HTMLText(string(data))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return text, nil
	default:
		return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
	}
}

// HTMLText extracts readable text from an HTML page. Block elements are
// separated by blank lines so the chunker can split on them.
func HTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, aside, noscript").Remove()

	var paragraphs []string
	doc.Find(blockSelector).Each(func(i int, s *goquery.Selection) {
		// Nested blocks (li > p) are picked up by their innermost element.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		if text := strings.Join(strings.Fields(doc.Find("body").Text()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}
