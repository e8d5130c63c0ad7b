package domain

import "github.com/shopspring/decimal"

// Confirmation describes a completed simulated order.
type Confirmation struct {
	OrderNumber int             `json:"order_number"`
	ShipTo      ShippingInfo    `json:"-"`
	Items       []LineItem      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}
