package models

// PaymentRequest is sent to the payment gateway for a cart checkout
type PaymentRequest struct {
	OrderID        string   `json:"orderId"`
	UserID         string   `json:"userId"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	CourseIDs      []string `json:"courseIds"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

// PaymentResult is the gateway's answer
type PaymentResult struct {
	TransactionID string `json:"transactionId"`
	Approved      bool   `json:"approved"`
	Reason        string `json:"reason,omitempty"`
}

// SkippedItem is a paid cart item that could not be turned into an enrollment
type SkippedItem struct {
	CourseID string `json:"courseId"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// CheckoutResult is returned by a successful checkout
type CheckoutResult struct {
	OrderID       string        `json:"orderId"`
	TransactionID string        `json:"transactionId"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Enrollments   []Enrollment  `json:"enrollments"`
	Skipped       []SkippedItem `json:"skipped"`
}
