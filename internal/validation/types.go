package validation

import "github.com/shopspring/decimal"

// CreateOrderRequest is the typed part of the POST /orders body.
type CreateOrderRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	BookID    string  `json:"bookId"`
	BookTitle string  `json:"bookTitle" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// CreateBookRequest is the typed part of the POST /books body.
type CreateBookRequest struct {
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Price  float64 `json:"price" validate:"gte=0"`
}

// CreateUserRequest is the typed part of the POST /users body.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url"`
}

// CreateLibrarianRequest is the typed part of the POST /librarians body.
type CreateLibrarianRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// LibrarianStatusRequest is the payload for PATCH /librarians/:id.
// Email names the applicant when the application carries none.
type LibrarianStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// RoleUpdateRequest is the payload for PATCH /users/:id/role.
type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=user librarian admin"`
}

// CheckoutSessionRequest is the payload for POST /payment-checkout-session.
type CheckoutSessionRequest struct {
	Price         decimal.Decimal `json:"price"`
	BookTitle     string          `json:"bookTitle" validate:"required"`
	OrderID       string          `json:"orderId" validate:"required"`
	OrderName     string          `json:"orderName"`
	CustomerEmail string          `json:"customer_email" validate:"omitempty,email"`
}
