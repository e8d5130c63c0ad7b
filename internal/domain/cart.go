package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single line. Adds past it are ignored and larger
// requested or persisted quantities are clamped to it.
const MaxQuantity = 999

// LineItem is one menu entry in the cart. The JSON layout is the persisted
// snapshot format.
type LineItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// CatalogEntry is a menu item as offered by the catalog.
type CatalogEntry struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Description string `json:"description,omitempty"`
}

// NewLineItem returns a line item for e with quantity 1. The description
// is a catalog-only field and is not carried into the cart.
func NewLineItem(e CatalogEntry) LineItem {
	return LineItem{
		ID:       e.ID,
		Name:     e.Name,
		Price:    e.Price,
		Image:    e.Image,
		Quantity: 1,
	}
}

// CheckoutStep is the visible phase of the checkout flow.
type CheckoutStep string

const (
	StepCart     CheckoutStep = "cart"
	StepShipping CheckoutStep = "shipping"
)

// ErrInvalidStep is returned by ParseCheckoutStep for unknown values.
var ErrInvalidStep = errors.New("invalid checkout step")

// ParseCheckoutStep converts s into a CheckoutStep.
func ParseCheckoutStep(s string) (CheckoutStep, error) {
	switch CheckoutStep(s) {
	case StepCart, StepShipping:
		return CheckoutStep(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStep, s)
	}
}

// CartState is the read-only projection of a session cart.
type CartState struct {
	Items         []LineItem      `json:"items"`
	IsOpen        bool            `json:"is_open"`
	CheckoutStep  CheckoutStep    `json:"checkout_step"`
	IsCheckingOut bool            `json:"is_checking_out"`
	TotalItems    int             `json:"total_items"`
	TotalPrice    decimal.Decimal `json:"-"`
}

// MarshalJSON renders total_price with exactly two decimals.
func (s CartState) MarshalJSON() ([]byte, error) {
	type alias CartState
	return json.Marshal(struct {
		alias
		TotalPrice string `json:"total_price"`
	}{
		alias:      alias(s),
		TotalPrice: s.TotalPrice.StringFixed(2),
	})
}

// ParsePrice parses a display price such as "$19.99".
func ParsePrice(price string) (decimal.Decimal, error) {
	s := strings.TrimSpace(price)
	s = strings.TrimPrefix(s, "$")
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", price, err)
	}
	return d, nil
}

// TotalItems returns the sum of quantities.
func TotalItems(items []LineItem) int {
	var n int
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// TotalPrice returns the sum of quantity times unit price. Items whose price
// cannot be parsed contribute nothing.
func TotalPrice(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		p, err := ParsePrice(it.Price)
		if err != nil {
			continue
		}
		total = total.Add(p.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ErrMalformedSnapshot wraps every reason a persisted cart is rejected.
var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

// DecodeSnapshot parses a persisted cart. Snapshots with non-positive
// quantities, duplicate ids or unparseable prices are rejected as a whole.
// Quantities above MaxQuantity are clamped.
func DecodeSnapshot(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	seen := make(map[int]struct{}, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has quantity %d", ErrMalformedSnapshot, it.ID, it.Quantity)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %d", ErrMalformedSnapshot, it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.Quantity > MaxQuantity {
			items[i].Quantity = MaxQuantity
		}
		if _, err := ParsePrice(it.Price); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
		}
	}
	return items, nil
}

// EncodeSnapshot serializes items in the persisted layout.
func EncodeSnapshot(items []LineItem) ([]byte, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return data, nil
}
