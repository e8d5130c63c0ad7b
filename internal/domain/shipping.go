package domain

// ShippingInfo is the delivery form submitted at checkout. It is only held
// for the duration of a checkout and never persisted.
type ShippingInfo struct {
	FullName             string `json:"full_name" validate:"required,min=2"`
	Email                string `json:"email" validate:"required,email"`
	Phone                string `json:"phone" validate:"required,min=10"`
	Address              string `json:"address" validate:"required,min=5"`
	City                 string `json:"city" validate:"required,min=2"`
	State                string `json:"state" validate:"required,min=2"`
	PostalCode           string `json:"postal_code" validate:"required,min=4"`
	Country              string `json:"country" validate:"required,min=2"`
	DeliveryInstructions string `json:"delivery_instructions,omitempty" validate:"omitempty,max=500"`
}
