package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CartLine is one product entry in an authenticated user's cart.
type CartLine struct {
	ID            string           `json:"id"`
	ProductID     int64            `json:"product_id"`
	Quantity      int              `json:"quantity"`
	Customization *Customization   `json:"customization,omitempty"`
	Product       *ProductSnapshot `json:"product,omitempty"`
}

// Customization is the gift personalization attached to a cart line.
// Extra carries storefront-specific keys that have no dedicated field yet.
type Customization struct {
	GiftMessage  string            `json:"gift_message,omitempty"`
	Recipient    string            `json:"recipient,omitempty"`
	DeliveryDate string            `json:"delivery_date,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// ProductSnapshot is the denormalized product data cached on a line for display.
// It may be stale relative to the catalog.
type ProductSnapshot struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Price  Price    `json:"price"`
	Images []string `json:"images,omitempty"`
}

// Price is the raw textual price of a product snapshot. Upstream payloads
// send it either as a JSON number or a string, so both are accepted verbatim.
type Price string

// UnmarshalJSON accepts numbers and strings verbatim. Any other token
// (null, booleans, objects, arrays) decodes to the empty price, which counts
// as zero, so a bad price never fails the surrounding payload.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*p = ""
			return nil
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*p = ""
		return nil
	}
	*p = Price(n.String())
	return nil
}

// Decimal parses the price. Missing or malformed prices are zero.
func (p Price) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(string(p)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnitPrice returns the line's cached unit price, zero when there is no snapshot.
func (l *CartLine) UnitPrice() decimal.Decimal {
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.Price.Decimal()
}

// Subtotal returns unit price times quantity.
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Clone returns a deep copy of the line.
func (l CartLine) Clone() CartLine {
	if l.Customization != nil {
		c := *l.Customization
		if l.Customization.Extra != nil {
			c.Extra = make(map[string]string, len(l.Customization.Extra))
			for k, v := range l.Customization.Extra {
				c.Extra[k] = v
			}
		}
		l.Customization = &c
	}
	if l.Product != nil {
		p := *l.Product
		p.Images = append([]string(nil), l.Product.Images...)
		l.Product = &p
	}
	return l
}

// FindLineIndex returns the index of the line with the given id, or -1.
func FindLineIndex(lines []CartLine, id string) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// FindProductIndex returns the index of the line holding productID, or -1.
func FindProductIndex(lines []CartLine, productID int64) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
