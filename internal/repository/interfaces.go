package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository is the entity store contract for users and their
// exam registrations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	ListRegisteredForExam(ctx context.Context, examID uuid.UUID) ([]*model.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, channels []string, frequency string) error
	UpdateCalendarToken(ctx context.Context, id uuid.UUID, token string) error

	AddRegistration(ctx context.Context, userID, examID uuid.UUID) error
	ListRegistrations(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	IsRegistered(ctx context.Context, userID, examID uuid.UUID) (bool, error)
	LatestRegistration(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// ExamRepository is the entity store contract for exams.
type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	Get(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]*model.Exam, error)
	AppendAnnouncement(ctx context.Context, id uuid.UUID, announcement string) error
	AppendMaterial(ctx context.Context, id uuid.UUID, material string) error
}

// NotificationRepository is the entity store contract for notification
// records.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	ListPending(ctx context.Context) ([]*model.Notification, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	CountReminders(ctx context.Context, userID, examID uuid.UUID) (int, error)
}
