// Package extract turns arbitrary product page HTML into a normalized
// {title, price, availability} record.
//
// Three tiers run in fixed priority order: embedded ld+json, inline
// microdata, then heuristics. Each field is taken from the highest tier that
// found it.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"price_watcher/internal/domain"
)

// Tier inspects a parsed page and reports what it found, or nil.
type Tier func(doc *goquery.Document) *Partial

type Extractor struct {
	tiers []Tier
}

func New() *Extractor {
	return &Extractor{tiers: []Tier{FromLDJSON, FromMicrodata, FromHeuristics}}
}

// Extract never fails: unparseable input yields the zero record.
func (e *Extractor) Extract(html string) domain.ScrapedData {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ScrapedData{}
	}
	return e.ExtractDocument(doc)
}

func (e *Extractor) ExtractDocument(doc *goquery.Document) domain.ScrapedData {
	parts := make([]*Partial, 0, len(e.tiers))
	for _, tier := range e.tiers {
		parts = append(parts, tier(doc))
		if merged := Merge(parts...); merged.Complete() {
			return merged.Record()
		}
	}
	return Merge(parts...).Record()
}
