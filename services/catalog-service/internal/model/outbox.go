package model

import "time"

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
)

// OutboxRecord is a staged ChangeEvent awaiting (or past) broker acceptance.
// Attempts and LastError are relay bookkeeping and never alter the event.
type OutboxRecord struct {
	RecordID    int64
	Event       ChangeEvent
	Status      OutboxStatus
	CreatedAt   time.Time
	PublishedAt *time.Time
	Attempts    int
	LastError   string
	Traceparent string
	Tracestate  string
}
