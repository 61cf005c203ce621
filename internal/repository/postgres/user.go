package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, name, email, phone_number, channels,
			reminder_frequency, calendar_token, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if len(user.Channels) == 0 {
		user.Channels = pq.StringArray{model.ChannelEmail}
	}
	if user.ReminderFrequency == "" {
		user.ReminderFrequency = model.FrequencyDaily
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PhoneNumber,
		user.Channels,
		user.ReminderFrequency,
		user.CalendarToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	regs, err := r.ListRegistrations(ctx, id)
	if err != nil {
		return nil, err
	}
	user.ExamRegistrations = regs

	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	query := `SELECT * FROM users ORDER BY created_at`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListRegisteredForExam(ctx context.Context, examID uuid.UUID) ([]*model.User, error) {
	query := `
		SELECT u.* FROM users u
		JOIN exam_registrations er ON u.id = er.user_id
		WHERE er.exam_id = $1
		ORDER BY er.position
	`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, examID); err != nil {
		return nil, fmt.Errorf("failed to list registered users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdatePreferences(ctx context.Context, id uuid.UUID, channels []string, frequency string) error {
	query := `
		UPDATE users SET
			channels = $1,
			reminder_frequency = $2,
			updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, pq.StringArray(channels), frequency, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *userRepository) UpdateCalendarToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE users SET
			calendar_token = $1,
			updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, token, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update calendar token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *userRepository) AddRegistration(ctx context.Context, userID, examID uuid.UUID) error {
	query := `
		INSERT INTO exam_registrations (user_id, exam_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, exam_id) DO NOTHING
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, userID, examID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to add registration: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("user already registered for exam")
		}
		return nil
	})
}

func (r *userRepository) ListRegistrations(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT exam_id FROM exam_registrations
		WHERE user_id = $1
		ORDER BY position
	`

	var examIDs []uuid.UUID
	if err := r.db.SelectContext(ctx, &examIDs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return examIDs, nil
}

func (r *userRepository) IsRegistered(ctx context.Context, userID, examID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM exam_registrations
			WHERE user_id = $1 AND exam_id = $2
		)
	`

	var registered bool
	if err := r.db.GetContext(ctx, &registered, query, userID, examID); err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return registered, nil
}

func (r *userRepository) LatestRegistration(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT exam_id FROM exam_registrations
		WHERE user_id = $1
		ORDER BY position DESC
		LIMIT 1
	`

	var examID uuid.UUID
	if err := r.db.GetContext(ctx, &examID, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("registration for user %s: %w", userID, repository.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to get latest registration: %w", err)
	}
	return examID, nil
}
