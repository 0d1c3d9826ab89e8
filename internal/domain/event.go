package domain

import "time"

const (
	// ReviewEventsSubject is the NATS subject review events are published on
	ReviewEventsSubject = "reviews.events"

	// EventReviewCreated is emitted after a review is stored
	EventReviewCreated = "review.created"
)

// ReviewEvent signals that the derived views of a partition are out of date
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ProductID string    `json:"product_id"`
	Website   string    `json:"website"`
	Review    *Review   `json:"review,omitempty"`
}

// Partition returns the partition the event refers to
func (e *ReviewEvent) Partition() Partition {
	return Partition{ProductID: e.ProductID, Website: e.Website}
}
