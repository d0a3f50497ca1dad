package entity

// FreeTransactionID is recorded for enrollments in sessions without a fee.
const FreeTransactionID = "free"

// Payment is the enrollment record of a student in a session.
type Payment struct {
	ID            string  `json:"_id,omitempty"`
	Email         string  `json:"email"`
	SessionID     string  `json:"sessionId"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
	Date          Date    `json:"date"`
}
