package idempotency

import "time"

// Status values for delivery entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// DeliveryRecord is the shape persisted in the idempotency DynamoDB table, one
// per webhook or queue delivery.
type DeliveryRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK, the platform's delivery id
	Topic          string    `dynamodbav:"topic,omitempty"` // e.g. orders/updated
	Status         string    `dynamodbav:"status"`
	OrderIDs       []string  `dynamodbav:"order_ids,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`   // replayed for duplicates
	ResponseStatus int       `dynamodbav:"response_status,omitempty"` // e.g., 200
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}
