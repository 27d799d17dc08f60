package query

import (
	"fmt"
	"strings"

	"github.com/numdox/numdox/internal/phone"
)

// Kind classifies how a query was derived from the target number.
type Kind string

const (
	// KindExact is the quoted canonical E.164 number.
	KindExact Kind = "exact"
	// KindFormatted covers alternative renderings of the same number.
	KindFormatted Kind = "formatted"
	// KindVariant covers keyword and site-scoped expansions.
	KindVariant Kind = "variant"
)

// Query is one search-engine query string plus its derivation kind.
type Query struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// DefaultKeywords are appended to the canonical number to surface social
// profiles and contact pages.
var DefaultKeywords = []string{
	"facebook",
	"twitter",
	"instagram",
	"whatsapp",
	`"contact"`,
	`"phone"`,
}

// DefaultSiteScopes restrict queries to sites where leaked numbers tend to
// surface.
var DefaultSiteScopes = []string{
	"pastebin.com",
	"reddit.com",
	"linkedin.com",
	"disqus.com",
}

// Builder turns a validated phone number into an ordered query list.
// Ordering matters: the most specific queries come first so that capped
// scans collect the best hits before the limit is reached.
type Builder struct {
	keywords   []string
	siteScopes []string
}

// NewBuilder creates a builder with the default keyword and site expansions.
func NewBuilder() *Builder {
	return &Builder{
		keywords:   DefaultKeywords,
		siteScopes: DefaultSiteScopes,
	}
}

// NewBuilderWith creates a builder with custom expansions. Nil slices fall
// back to the defaults; empty non-nil slices disable that expansion class.
func NewBuilderWith(keywords, siteScopes []string) *Builder {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	if siteScopes == nil {
		siteScopes = DefaultSiteScopes
	}
	return &Builder{keywords: keywords, siteScopes: siteScopes}
}

// Build returns the ordered query list for a valid target. The first query
// is always the quoted E.164 number. Duplicate query strings are skipped
// case-insensitively so no network call is spent twice on the same text.
func (b *Builder) Build(t phone.Target) ([]Query, error) {
	if !t.Valid {
		return nil, fmt.Errorf("query: target %q is not validated", t.Raw)
	}

	seen := make(map[string]struct{})
	var out []Query

	add := func(text string, kind Kind) {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, Query{Text: strings.TrimSpace(text), Kind: kind})
	}

	add(fmt.Sprintf("%q", t.E164), KindExact)
	if t.International != "" {
		add(fmt.Sprintf("%q", t.International), KindFormatted)
	}
	if raw := strings.TrimSpace(t.Raw); raw != "" && !strings.EqualFold(raw, t.E164) {
		add(fmt.Sprintf("%q", raw), KindFormatted)
	}

	for _, kw := range b.keywords {
		add(t.E164+" "+kw, KindVariant)
	}
	for _, site := range b.siteScopes {
		add(t.E164+" site:"+site, KindVariant)
	}

	return out, nil
}
