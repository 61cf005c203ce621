package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
)

type Service interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, req *model.UpdatePreferencesRequest) (*model.User, error)
}

type service struct {
	repo   repository.UserRepository
	logger *logger.Logger
}

func NewService(repo repository.UserRepository, l *logger.Logger) Service {
	return &service{repo: repo, logger: l}
}

func (s *service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if err := validatePreferences(req.Channels, req.ReminderFrequency, false); err != nil {
		return nil, err
	}
	if len(req.Channels) > 0 && req.Channels[0] != "" {
		for _, c := range req.Channels {
			if c == model.ChannelSMS && req.PhoneNumber == "" {
				return nil, apperrors.Validation("sms channel requires a phone number", nil)
			}
		}
	}

	user := &model.User{
		ID:                uuid.New(),
		Name:              req.Name,
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		Channels:          req.Channels,
		ReminderFrequency: req.ReminderFrequency,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperrors.Persistence(err)
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Persistence(err)
	}
	return user, nil
}

func (s *service) UpdatePreferences(ctx context.Context, id uuid.UUID, req *model.UpdatePreferencesRequest) (*model.User, error) {
	if err := validatePreferences(req.Channels, req.ReminderFrequency, true); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePreferences(ctx, id, req.Channels, req.ReminderFrequency); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Persistence(err)
	}
	return s.Get(ctx, id)
}

// validatePreferences checks channel kinds and cadence against the
// supported sets. Creation tolerates empty values (defaults apply at
// the store); preference updates do not.
func validatePreferences(channels []string, frequency string, required bool) error {
	for _, c := range channels {
		if !model.IsKnownChannel(c) {
			return apperrors.Validation(fmt.Sprintf("unknown notification channel %q", c), nil)
		}
	}
	if frequency != "" && !model.IsKnownFrequency(frequency) {
		return apperrors.Validation(fmt.Sprintf("unknown reminder frequency %q", frequency), nil)
	}
	if required && len(channels) == 0 {
		return apperrors.Validation("at least one notification channel is required", nil)
	}
	return nil
}
