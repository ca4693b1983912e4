// Package jobtext normalizes job descriptions before they are summarized.
package jobtext

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	repeatedDots = regexp.MustCompile(`\.\.+`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// blockElements end a line when the document is flattened to text.
const blockElements = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, section, article, header, footer, tr, table, blockquote, pre, dt, dd"

// Clean drops blank lines, trims every line, collapses runs of dots to a
// single dot and folds all whitespace, newlines included, into single spaces.
func Clean(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	result := strings.Join(cleaned, "\n")
	result = repeatedDots.ReplaceAllString(result, ".")
	return whitespace.ReplaceAllString(result, " ")
}

// FromHTML extracts the visible text of an HTML job posting and cleans it.
func FromHTML(html string) (string, error) {
	return FromHTMLReader(strings.NewReader(html), "")
}

// FromHTMLReader extracts the text of the elements matching selector, or of
// the whole body when selector is empty. Scripts and styles are skipped.
func FromHTMLReader(r io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find(blockElements).AppendHtml("\n")

	root := doc.Find("body")
	if selector != "" {
		root = doc.Find(selector)
	}

	var b strings.Builder
	root.Each(func(_ int, s *goquery.Selection) {
		fragment := strings.TrimSpace(s.Text())
		if fragment == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fragment)
	})
	return Clean(b.String()), nil
}

// LooksLikeHTML reports whether s starts like an HTML document or fragment.
func LooksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype html") || strings.Contains(lower, "</")
}
