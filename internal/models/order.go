package models

// CheckoutForm holds the billing/contact fields collected at checkout.
type CheckoutForm struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	TransactionCode string `json:"mpesa" validate:"required"` // M-Pesa transaction code
}

// Totals are derived from the cart at checkout time.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Confirmation is the transient result of a completed checkout. It is never persisted.
type Confirmation struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
	Email   string `json:"email"`
}
