package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Notification channel kinds a user may enable independently
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelInApp = "in-app"
)

// Reminder cadence preferences, consumed by the periodic sweep
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// KnownChannels lists every supported channel kind.
var KnownChannels = []string{ChannelEmail, ChannelSMS, ChannelInApp}

// User represents a student receiving exam notifications. CalendarToken
// is empty until the OAuth flow has completed once; that is a normal
// state, not an error.
type User struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	Email             string         `json:"email" db:"email"`
	PhoneNumber       string         `json:"phone_number" db:"phone_number"`
	Channels          pq.StringArray `json:"notification_preferences" db:"channels"`
	ReminderFrequency string         `json:"reminder_frequency" db:"reminder_frequency"`
	CalendarToken     string         `json:"-" db:"calendar_token"`
	ExamRegistrations []uuid.UUID    `json:"exam_registrations" db:"-"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// HasChannel reports whether the user enabled the given channel kind.
func (u *User) HasChannel(kind string) bool {
	for _, c := range u.Channels {
		if c == kind {
			return true
		}
	}
	return false
}

// HasCalendarToken reports whether a durable calendar credential exists.
func (u *User) HasCalendarToken() bool {
	return u.CalendarToken != ""
}

// IsKnownChannel reports whether kind is one of the supported channels.
func IsKnownChannel(kind string) bool {
	for _, c := range KnownChannels {
		if c == kind {
			return true
		}
	}
	return false
}

// IsKnownFrequency reports whether freq is a supported reminder cadence.
func IsKnownFrequency(freq string) bool {
	switch freq {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Name              string   `json:"name" binding:"required"`
	Email             string   `json:"email" binding:"required,email"`
	PhoneNumber       string   `json:"phone_number"`
	Channels          []string `json:"notification_preferences" binding:"dive,notifychannel"`
	ReminderFrequency string   `json:"reminder_frequency" binding:"omitempty,oneof=daily weekly monthly"`
}

// UpdatePreferencesRequest represents preference update parameters
type UpdatePreferencesRequest struct {
	Channels          []string `json:"notification_preferences" binding:"required,dive,notifychannel"`
	ReminderFrequency string   `json:"reminder_frequency" binding:"required,oneof=daily weekly monthly"`
}
