package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Exam represents a scheduled exam. Materials and announcements are
// append-only over the exam's lifetime.
type Exam struct {
	ID                   uuid.UUID      `json:"id" db:"id"`
	Name                 string         `json:"name" db:"name"`
	Date                 time.Time      `json:"date" db:"date"`
	Venue                string         `json:"venue" db:"venue"`
	PreparationMaterials pq.StringArray `json:"preparation_materials" db:"preparation_materials"`
	Announcements        pq.StringArray `json:"announcements" db:"announcements"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`
}

// CreateExamRequest represents exam creation parameters
type CreateExamRequest struct {
	Name                 string    `json:"name" binding:"required"`
	Date                 time.Time `json:"date" binding:"required"`
	Venue                string    `json:"venue" binding:"required"`
	PreparationMaterials []string  `json:"preparation_materials"`
	Announcements        []string  `json:"announcements"`
}

// RegisterRequest represents an exam registration
type RegisterRequest struct {
	ExamID string `json:"exam_id" binding:"required,uuid"`
}

// AnnouncementRequest appends an announcement to an exam
type AnnouncementRequest struct {
	Announcement string `json:"announcement" binding:"required"`
}

// MaterialRequest appends a preparation material to an exam
type MaterialRequest struct {
	Material string `json:"material" binding:"required"`
}

// RegistrationResult is the registration response: the updated exam
// partitions plus an authorization URL when calendar sync still needs
// user consent.
type RegistrationResult struct {
	Message         string  `json:"message"`
	AuthURL         string  `json:"auth_url,omitempty"`
	AvailableExams  []*Exam `json:"available_exams"`
	RegisteredExams []*Exam `json:"registered_exams"`
}

// CalendarResult is the add-to-calendar response.
type CalendarResult struct {
	Message string `json:"message"`
	AuthURL string `json:"auth_url,omitempty"`
}
