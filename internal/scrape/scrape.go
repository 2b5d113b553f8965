// Package scrape pulls full article text from source pages to feed detailed
// summary generation. Extraction is best-effort; callers fall back to the
// feed description when it fails.
package scrape

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxContentChars = 1800

var client = &http.Client{Timeout: 15 * time.Second}

// Extract fetches a page and returns its cleaned main text.
func Extract(url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	content := extractParagraphs(doc)
	if content == "" {
		return "", fmt.Errorf("no content found")
	}
	return CleanContent(content), nil
}

// extractParagraphs tries the common content selectors in order and stops
// once enough paragraphs accumulate.
func extractParagraphs(doc *goquery.Document) string {
	selectors := []string{
		"article p",
		".article-body p",
		".article-content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
		paragraphs = paragraphs[:0]
	}

	if len(paragraphs) == 0 {
		return ""
	}
	return strings.Join(paragraphs, "\n\n")
}

var junkIndicators = []string{
	"cookie", "gdpr", "subscribe", "newsletter", "advertisement",
	"click here", "follow us", "share this", "read more",
	"구독", "광고", "저작권",
}

// CleanContent drops boilerplate lines, collapses whitespace and bounds the
// result to full paragraphs under the length cap.
func CleanContent(content string) string {
	lines := strings.Split(content, "\n")
	var paragraphs []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 8 {
			continue
		}

		lower := strings.ToLower(line)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if junk {
			continue
		}

		paragraphs = append(paragraphs, strings.Join(strings.Fields(line), " "))
	}

	total := 0
	var kept []string
	for _, p := range paragraphs {
		if total+len(p) > maxContentChars {
			break
		}
		kept = append(kept, p)
		total += len(p) + 2
	}

	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}
