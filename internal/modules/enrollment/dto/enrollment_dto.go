package dto

import "github.com/ShahriarTWS/TutorHub-Client/internal/entity"

type EnrollStatus string

const (
	StatusEnrolled         EnrollStatus = "enrolled"
	StatusCheckoutRequired EnrollStatus = "checkout_required"
)

// Checkout carries what the card widget needs to collect a payment.
type Checkout struct {
	SessionID      string  `json:"sessionId"`
	Amount         float64 `json:"amount"`
	ClientSecret   string  `json:"clientSecret"`
	PublishableKey string  `json:"publishableKey"`
}

type EnrollResult struct {
	Status   EnrollStatus    `json:"status"`
	Payment  *entity.Payment `json:"payment,omitempty"`
	Checkout *Checkout       `json:"checkout,omitempty"`
}

type ConfirmPaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required,notblank"`
}

// PaymentHistoryItem is a payment joined with the title of its session.
type PaymentHistoryItem struct {
	entity.Payment
	SessionTitle string `json:"sessionTitle"`
	Free         bool   `json:"free"`
}
