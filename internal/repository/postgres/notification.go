package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, exam_id, message, kind,
			scheduled_at, delivered, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = n.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.ExamID,
		n.Message,
		n.Kind,
		n.ScheduledAt,
		n.Delivered,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY scheduled_at DESC
	`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) ListPending(ctx context.Context) ([]*model.Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE delivered = false
		ORDER BY scheduled_at
	`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	// Delivered only ever transitions false -> true.
	query := `
		UPDATE notifications
		SET delivered = true
		WHERE id = $1 AND delivered = false
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

func (r *notificationRepository) CountReminders(ctx context.Context, userID, examID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND exam_id = $2 AND kind = $3
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, examID, model.KindReminder); err != nil {
		return 0, fmt.Errorf("failed to count reminders: %w", err)
	}
	return count, nil
}
