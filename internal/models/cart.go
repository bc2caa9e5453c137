package models

// LineItem is one entry of the cart. Name and Price are captured when the
// product is first added.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Type     string `json:"type,omitempty"`
	Quantity int    `json:"quantity"`
}

// CartItem is the product reference handed to AddToCart.
type CartItem struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Price int64  `json:"price" validate:"gte=0"`
	Type  string `json:"type,omitempty"`
}

// CartSummary is what the API exposes for a cart.
type CartSummary struct {
	Items    []LineItem `json:"items"`
	Count    int        `json:"count"`
	Subtotal int64      `json:"subtotal"`
}
