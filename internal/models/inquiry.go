package models

// DesignInquiry is a request for custom CAD work.
type DesignInquiry struct {
	Company string `json:"company" validate:"max=200"`
	Email   string `json:"email" validate:"required,email"`
	Project string `json:"project" validate:"required,max=5000"`
	Budget  string `json:"budget" validate:"max=100"`
}

// PrintQuote is a request for a 3D-printing quote.
type PrintQuote struct {
	Parts    string `json:"parts" validate:"required,max=5000"`
	Material string `json:"material" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
}
