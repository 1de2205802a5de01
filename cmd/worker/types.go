package main

import "encoding/json"

// SyncMessage is the payload forwarded from the commerce platform -> SQS -> Worker.
type SyncMessage struct {
	DeliveryID    string          `json:"delivery_id"`
	Topic         string          `json:"topic,omitempty"`
	Payload       json.RawMessage `json:"payload"` // one order, a list, or an {"orders": [...]} envelope
	CorrelationID string          `json:"correlation_id,omitempty"`
}
