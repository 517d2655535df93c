package extract

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// FromLDJSON reads schema.org Product data from application/ld+json script
// blocks. The first Product that yields any field wins; blocks are not merged.
func FromLDJSON(doc *goquery.Document) (result *Partial) {
	defer recoverTier(&result)

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}

		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var data any
		if err := dec.Decode(&data); err != nil {
			return true
		}

		for _, item := range ldNodes(data) {
			if !isProductType(item["@type"]) {
				continue
			}
			if part := productFromLD(item); !part.Empty() {
				result = part
				return false
			}
		}
		return true
	})

	return result
}

// ldNodes flattens a decoded block into candidate objects: top-level arrays
// and @graph members are both common.
func ldNodes(data any) []map[string]any {
	var nodes []map[string]any
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, ldNodes(item)...)
		}
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				if m, ok := item.(map[string]any); ok {
					nodes = append(nodes, m)
				}
			}
		}
	}
	return nodes
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return bareType(t) == "Product"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && bareType(s) == "Product" {
				return true
			}
		}
	}
	return false
}

// bareType drops a vocabulary prefix such as "https://schema.org/" or "schema:".
func bareType(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.LastIndexAny(t, "/:"); i >= 0 {
		return t[i+1:]
	}
	return t
}

func productFromLD(item map[string]any) *Partial {
	part := &Partial{}

	if name, ok := item["name"].(string); ok {
		if name = strings.TrimSpace(html.UnescapeString(name)); name != "" {
			part.Title = &name
		}
	}

	offer := firstOffer(item["offers"])
	if offer != nil {
		if price, ok := ldPrice(offer["price"]); ok {
			part.Price = &price
		} else if price, ok := ldPrice(offer["lowPrice"]); ok {
			part.Price = &price
		}

		if availability, ok := offer["availability"].(string); ok && availability != "" {
			part.IsAvailable = ptr(inStockVocabulary(availability))
		}
	}

	return part
}

func firstOffer(v any) map[string]any {
	switch o := v.(type) {
	case map[string]any:
		return o
	case []any:
		if len(o) == 0 {
			return nil
		}
		m, _ := o[0].(map[string]any)
		return m
	}
	return nil
}

func ldPrice(v any) (decimal.Decimal, bool) {
	switch p := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(p.String())
		return d, err == nil
	case string:
		return parseNumber(p)
	}
	return decimal.Decimal{}, false
}

var inStockValues = map[string]bool{
	"instock":             true,
	"limitedavailability": true,
	"instoreonly":         true,
	"onlineonly":          true,
	"available":           true,
}

// inStockVocabulary reports whether a schema.org ItemAvailability value
// (full IRI or bare term) means the item can be bought.
func inStockVocabulary(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if strings.Contains(v, "instock") {
		return true
	}
	return inStockValues[bareType(v)]
}
