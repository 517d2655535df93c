package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromMicrodata reads the first itemscope typed as a Product.
func FromMicrodata(doc *goquery.Document) (result *Partial) {
	defer recoverTier(&result)

	scope := doc.Find(`[itemscope][itemtype*="Product"]`).First()
	if scope.Length() == 0 {
		return nil
	}

	part := &Partial{}

	if el := scope.Find(`[itemprop="name"]`).First(); el.Length() > 0 {
		name := strings.TrimSpace(el.AttrOr("content", ""))
		if name == "" {
			name = strings.TrimSpace(el.Text())
		}
		if name != "" {
			part.Title = &name
		}
	}

	offers := scope.Find(`[itemprop="offers"]`).First()
	if offers.Length() > 0 {
		if el := offers.Find(`[itemprop="price"]`).First(); el.Length() > 0 {
			raw := el.AttrOr("content", "")
			if strings.TrimSpace(raw) == "" {
				raw = el.Text()
			}
			if price, ok := parseNumber(raw); ok {
				part.Price = &price
			}
		}

		if el := offers.Find(`[itemprop="availability"]`).First(); el.Length() > 0 {
			raw := el.AttrOr("href", "")
			if raw == "" {
				raw = el.AttrOr("content", "")
			}
			if raw == "" {
				raw = el.Text()
			}
			v := strings.ToLower(raw)
			part.IsAvailable = ptr(strings.Contains(v, "instock") || strings.Contains(v, "available"))
		}
	}

	if part.Empty() {
		return nil
	}
	return part
}
