package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
)

type examRepository struct {
	BaseRepository
}

func NewExamRepository(base BaseRepository) repository.ExamRepository {
	return &examRepository{base}
}

func (r *examRepository) Create(ctx context.Context, exam *model.Exam) error {
	query := `
		INSERT INTO exams (
			id, name, date, venue, preparation_materials,
			announcements, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	exam.ID = uuid.New()
	exam.CreatedAt = time.Now()
	exam.UpdatedAt = time.Now()
	if exam.PreparationMaterials == nil {
		exam.PreparationMaterials = pq.StringArray{}
	}
	if exam.Announcements == nil {
		exam.Announcements = pq.StringArray{}
	}

	_, err := r.db.ExecContext(ctx, query,
		exam.ID,
		exam.Name,
		exam.Date,
		exam.Venue,
		exam.PreparationMaterials,
		exam.Announcements,
		exam.CreatedAt,
		exam.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (r *examRepository) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	query := `SELECT * FROM exams WHERE id = $1`

	var exam model.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("exam %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

func (r *examRepository) List(ctx context.Context) ([]*model.Exam, error) {
	query := `SELECT * FROM exams ORDER BY date`

	var exams []*model.Exam
	if err := r.db.SelectContext(ctx, &exams, query); err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (r *examRepository) AppendAnnouncement(ctx context.Context, id uuid.UUID, announcement string) error {
	query := `
		UPDATE exams SET
			announcements = array_append(announcements, $1),
			updated_at = $2
		WHERE id = $3
	`
	return r.appendTo(ctx, query, id, announcement)
}

func (r *examRepository) AppendMaterial(ctx context.Context, id uuid.UUID, material string) error {
	query := `
		UPDATE exams SET
			preparation_materials = array_append(preparation_materials, $1),
			updated_at = $2
		WHERE id = $3
	`
	return r.appendTo(ctx, query, id, material)
}

func (r *examRepository) appendTo(ctx context.Context, query string, id uuid.UUID, value string) error {
	result, err := r.db.ExecContext(ctx, query, value, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to append to exam: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("exam %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
