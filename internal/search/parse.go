package search

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxSnippetLen bounds the snippet text kept per hit so report size stays
// bounded. Titles and URLs are never truncated.
const MaxSnippetLen = 500

var errNoResultMarkup = errors.New("no recognizable result markup")

// parseHits extracts hits from an HTML result page in the markup used by
// DuckDuckGo's non-JS endpoint. A page that parses but contains no result
// container at all (and no "no results" marker) is reported as unparsable;
// individual results missing both URL and title are skipped silently, since
// partially broken markup is normal when scraping.
func parseHits(queryText string, body []byte, maxSnippet int) ([]Hit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var hits []Hit
	doc.Find("div.result").Each(func(i int, s *goquery.Selection) {
		anchor := s.Find("a.result__a").First()
		title := strings.TrimSpace(anchor.Text())

		href, _ := anchor.Attr("href")
		hitURL := resolveResultURL(href)

		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		snippet = truncate(snippet, maxSnippet)

		if hitURL == "" && title == "" {
			return
		}

		hits = append(hits, Hit{
			Query:   queryText,
			Title:   title,
			URL:     hitURL,
			Snippet: snippet,
		})
	})

	if len(hits) == 0 && !hasResultContainer(doc) {
		return nil, errNoResultMarkup
	}

	return hits, nil
}

// hasResultContainer reports whether the page carries the skeleton of a
// result listing, even an empty one. Zero hits inside a recognizable page
// means "no results", not a parse failure.
func hasResultContainer(doc *goquery.Document) bool {
	if doc.Find("#links, .results, .serp__results").Length() > 0 {
		return true
	}
	return doc.Find(".no-results").Length() > 0
}

// resolveResultURL unwraps the redirect links result pages use
// (//duckduckgo.com/l/?uddg=<target>) back to the destination URL.
// Direct links pass through unchanged.
func resolveResultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}

	return href
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
