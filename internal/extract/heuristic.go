package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

var titleSelectors = []string{
	"h1", "h1.title", "h1.product-title", "h1.product-name",
	".product-title", ".product-name", ".title",
	`[data-testid*="title"]`, `[data-cy*="title"]`,
}

var priceSelectors = []string{
	".price", ".product-price", ".current-price", ".sale-price",
	`[class*="price"]`, `[data-testid*="price"]`, `[data-cy*="price"]`,
	".cost", ".amount", ".value",
}

var availabilitySelectors = []string{
	".availability", ".stock-status", ".inventory-status",
	`[class*="stock"]`, `[class*="availability"]`, `[class*="inventory"]`,
	`[data-testid*="stock"]`, `[data-testid*="availability"]`,
}

var availabilityKeywords = []string{
	"in stock", "available", "out of stock", "unavailable",
	"sold out", "limited stock", "low stock", "back in stock",
}

var (
	inStockKeywords    = []string{"in stock", "available", "limited stock", "low stock", "back in stock"}
	outOfStockKeywords = []string{"out of stock", "unavailable", "sold out"}
)

// A currency symbol on either side of a number such as 1,299.00.
var currencyAmount = regexp.MustCompile(`[$£€¥₹]\s*([0-9,]+\.?[0-9]*)|([0-9,]+\.?[0-9]*)\s*[$£€¥₹]`)

// ParsePriceToken finds the first currency-adjacent amount in text.
// Thousands separators are dropped and only positive values are accepted.
func ParsePriceToken(text string) (decimal.Decimal, bool) {
	m := currencyAmount.FindStringSubmatch(text)
	if m == nil {
		return decimal.Decimal{}, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(raw, "."))
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// FromHeuristics is the best-effort tier: common class names, meta tags and
// visible text. It returns nil only when title, price and availability are all absent.
func FromHeuristics(doc *goquery.Document) (result *Partial) {
	defer recoverTier(&result)

	part := &Partial{}

	if title := heuristicTitle(doc); title != "" {
		part.Title = &title
	}

	if price, ok := heuristicPrice(doc); ok {
		part.Price = &price
	}

	availabilityText := ""
	for _, sel := range availabilitySelectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			availabilityText = strings.ToLower(strings.TrimSpace(el.Text()))
			break
		}
	}
	if availabilityText == "" {
		// keywords are classified against the whole body text
		if body := strings.ToLower(doc.Find("body").Text()); containsAny(body, availabilityKeywords) {
			availabilityText = body
		}
	}

	switch {
	case availabilityText != "":
		part.IsAvailable = ptr(containsAny(availabilityText, inStockKeywords) &&
			!containsAny(availabilityText, outOfStockKeywords))
	case part.Price != nil:
		// no stock signal anywhere: a priced page counts as available
		part.IsAvailable = ptr(true)
	}

	if part.Empty() {
		return nil
	}
	return part
}

func heuristicTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if el := doc.Find(sel).First(); el.Length() > 0 {
			if text := strings.TrimSpace(el.Text()); len([]rune(text)) > 3 {
				return text
			}
		}
	}

	if v := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(doc.Find(`meta[name="title"]`).AttrOr("content", "")); v != "" {
		return v
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func heuristicPrice(doc *goquery.Document) (decimal.Decimal, bool) {
	for _, sel := range priceSelectors {
		var (
			price decimal.Decimal
			found bool
		)
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			price, found = ParsePriceToken(strings.TrimSpace(s.Text()))
			return !found
		})
		if found {
			return price, true
		}
	}

	return ParsePriceToken(doc.Find("body").Text())
}
