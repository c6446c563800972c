package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Price accepts a JSON number or a numeric string. Anything else decodes as unset.
type Price struct {
	decimal.NullDecimal
}

func NewPrice(d decimal.Decimal) Price {
	return Price{decimal.NewNullDecimal(d)}
}

func (p *Price) UnmarshalJSON(b []byte) error {
	p.Valid = false
	if string(b) == "null" {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return nil
	}
	p.Decimal = d
	p.Valid = true
	return nil
}

// Event is one report from the checkout extension.
type Event struct {
	Shop           string  `json:"shop"`
	UpsellBlockID  *string `json:"upsellBlockId"`
	ProductID      string  `json:"productId"`
	VariantID      string  `json:"variantId"`
	ProductName    string  `json:"productName"`
	VariantTitle   *string `json:"variantTitle"`
	Price          Price   `json:"price"`
	Placement      string  `json:"placement"`
	CustomerHash   *string `json:"customerHash"`
	SessionID      *string `json:"sessionId"`
	AddedToCart    bool    `json:"addedToCart"`
	UpdateExisting *string `json:"updateExisting"`
}

func (e *Event) complete() bool {
	return strings.TrimSpace(e.Shop) != "" &&
		strings.TrimSpace(e.ProductID) != "" &&
		strings.TrimSpace(e.VariantID) != "" &&
		strings.TrimSpace(e.ProductName) != "" &&
		strings.TrimSpace(e.Placement) != "" &&
		// negative prices are rejected along with zero
		e.Price.Valid && e.Price.Decimal.IsPositive()
}

// conversionTarget returns the row id to flip, or "" when the event is a plain click.
func (e *Event) conversionTarget() string {
	if !e.AddedToCart || e.UpdateExisting == nil {
		return ""
	}
	return strings.TrimSpace(*e.UpdateExisting)
}

// variantTitle drops titles that only repeat the product name.
func (e *Event) variantTitle() *string {
	if e.VariantTitle == nil {
		return nil
	}
	title := strings.TrimSpace(*e.VariantTitle)
	if title == "" || title == e.ProductName {
		return nil
	}
	return &title
}
