package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"price_watcher/internal/domain"
)

// Partial is what a single tier managed to find. A nil field means not found.
type Partial struct {
	Title       *string
	Price       *decimal.Decimal
	IsAvailable *bool
}

func (p *Partial) Empty() bool {
	return p == nil || (p.Title == nil && p.Price == nil && p.IsAvailable == nil)
}

func (p *Partial) Complete() bool {
	return p != nil && p.Title != nil && p.Price != nil && p.IsAvailable != nil
}

// fill copies fields from other that are still missing in p.
func (p *Partial) fill(other *Partial) {
	if other == nil {
		return
	}
	if p.Title == nil && other.Title != nil {
		p.Title = other.Title
	}
	if p.Price == nil && other.Price != nil {
		p.Price = other.Price
	}
	if p.IsAvailable == nil && other.IsAvailable != nil {
		p.IsAvailable = other.IsAvailable
	}
}

// Record converts p into a normalized record, using zero values for missing fields.
func (p Partial) Record() domain.ScrapedData {
	var data domain.ScrapedData
	if p.Title != nil {
		data.Title = *p.Title
	}
	if p.Price != nil {
		data.Price = decimal.NewNullDecimal(*p.Price)
	}
	if p.IsAvailable != nil {
		data.IsAvailable = *p.IsAvailable
	}
	return data
}

// Merge combines tier outputs in priority order. A field is taken from the
// first part that provides it and never overwritten afterwards.
func Merge(parts ...*Partial) Partial {
	var merged Partial
	for _, part := range parts {
		merged.fill(part)
	}
	return merged
}

var leadingNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseNumber reads the first number in raw, dropping thousands separators.
// "25.99." and "19.99 - 24.99" both yield their leading price.
func parseNumber(raw string) (decimal.Decimal, bool) {
	cleaned := leadingNumber.FindString(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func ptr[T any](v T) *T {
	return &v
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// recoverTier turns a panic inside a tier into "tier found nothing".
func recoverTier(out **Partial) {
	if r := recover(); r != nil {
		*out = nil
	}
}
