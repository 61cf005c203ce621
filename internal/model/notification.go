package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies a notification record
type NotificationKind string

const (
	KindReminder     NotificationKind = "reminder"
	KindAnnouncement NotificationKind = "announcement"
	KindMaterial     NotificationKind = "material"
	KindResult       NotificationKind = "result"
)

// Notification belongs to exactly one (user, exam) pair. Delivered
// transitions false to true exactly once and never reverts; it is the
// sole bookkeeping for the batch sweep's at-most-once guarantee.
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	ExamID      uuid.UUID        `json:"exam_id" db:"exam_id"`
	Message     string           `json:"message" db:"message"`
	Kind        NotificationKind `json:"kind" db:"kind"`
	ScheduledAt time.Time        `json:"scheduled_at" db:"scheduled_at"`
	Delivered   bool             `json:"delivered" db:"delivered"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// NotificationEvent is published to the in-app channel for a user.
type NotificationEvent struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id,omitempty"`
	UserID         uuid.UUID `json:"user_id"`
	Subject        string    `json:"subject"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
