package user

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
)

type fakeUserRepo struct {
	repository.UserRepository
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) UpdatePreferences(_ context.Context, id uuid.UUID, channels []string, frequency string) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Channels = channels
	u.ReminderFrequency = frequency
	return nil
}

func newTestService(repo repository.UserRepository) Service {
	return NewService(repo, logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}))
}

func TestCreateRejectsUnknownChannel(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Channels: []string{"carrier-pigeon"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateRejectsSMSWithoutPhoneNumber(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Channels: []string{model.ChannelSMS},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestUpdatePreferences(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePreferences(context.Background(), created.ID, &model.UpdatePreferencesRequest{
		Channels:          []string{model.ChannelEmail, model.ChannelInApp},
		ReminderFrequency: model.FrequencyWeekly,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.ChannelEmail, model.ChannelInApp}, updated.Channels)
	assert.Equal(t, model.FrequencyWeekly, updated.ReminderFrequency)
}

func TestUpdatePreferencesUnknownUser(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.UpdatePreferences(context.Background(), uuid.New(), &model.UpdatePreferencesRequest{
		Channels:          []string{model.ChannelEmail},
		ReminderFrequency: model.FrequencyDaily,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestUpdatePreferencesRejectsEmptyChannels(t *testing.T) {
	svc := newTestService(newFakeUserRepo())

	_, err := svc.UpdatePreferences(context.Background(), uuid.New(), &model.UpdatePreferencesRequest{
		ReminderFrequency: model.FrequencyDaily,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}
