package notification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examnotify/exam-api/internal/channel"
	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/metrics"
)

type fakeNotificationRepo struct {
	records map[uuid.UUID]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{records: make(map[uuid.UUID]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	copied := *n
	r.records[n.ID] = &copied
	return nil
}

func (r *fakeNotificationRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.records {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) ListPending(_ context.Context) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.records {
		if !n.Delivered {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkDelivered(_ context.Context, id uuid.UUID) error {
	n, ok := r.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Delivered = true
	return nil
}

func (r *fakeNotificationRepo) CountReminders(_ context.Context, userID, examID uuid.UUID) (int, error) {
	count := 0
	for _, n := range r.records {
		if n.UserID == userID && n.ExamID == examID && n.Kind == model.KindReminder {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	repository.UserRepository
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type recordingSender struct {
	kind string
	sent []string
	err  error
}

func (s *recordingSender) Kind() string { return s.kind }

func (s *recordingSender) Send(_ context.Context, _ *model.User, _, body string) error {
	s.sent = append(s.sent, body)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry(), "test")
}

func newTestService(repo *fakeNotificationRepo, users *fakeUserRepo, senders ...channel.Sender) Service {
	return NewService(repo, users, senders, testMetrics(), testLogger())
}

func testUser(channels ...string) *model.User {
	return &model.User{
		ID:       uuid.New(),
		Name:     "Ada",
		Email:    "ada@example.com",
		Channels: channels,
	}
}

func TestBuildReminderSchedule(t *testing.T) {
	user := testUser(model.ChannelEmail)
	exam := &model.Exam{
		ID:   uuid.New(),
		Name: "Algebra",
		Date: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	reminders := BuildReminderSchedule(user, exam)
	require.Len(t, reminders, 4)

	wantDates := []time.Time{
		time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 25, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	wantMessages := []string{
		`Your exam "Algebra" is 1 month away.`,
		`Your exam "Algebra" is 1 week away.`,
		`Your exam "Algebra" is 1 day away.`,
		`Your exam "Algebra" is today away.`,
	}

	for i, reminder := range reminders {
		assert.Equal(t, user.ID, reminder.UserID)
		assert.Equal(t, exam.ID, reminder.ExamID)
		assert.Equal(t, model.KindReminder, reminder.Kind)
		assert.False(t, reminder.Delivered)
		assert.True(t, wantDates[i].Equal(reminder.ScheduledAt), "offset %d", i)
		assert.Equal(t, wantMessages[i], reminder.Message)
	}
}

func TestScheduleRemindersIsIdempotent(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, &fakeUserRepo{})
	user := testUser(model.ChannelEmail)
	exam := &model.Exam{ID: uuid.New(), Name: "Algebra", Date: time.Now().AddDate(0, 2, 0)}

	require.NoError(t, svc.ScheduleReminders(context.Background(), user, exam))
	require.NoError(t, svc.ScheduleReminders(context.Background(), user, exam))

	count, err := repo.CountReminders(context.Background(), user.ID, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestDispatchAttemptsAllChannelsDespiteFailure(t *testing.T) {
	email := &recordingSender{kind: model.ChannelEmail, err: errors.New("smtp down")}
	sms := &recordingSender{kind: model.ChannelSMS}
	svc := newTestService(newFakeNotificationRepo(), &fakeUserRepo{}, email, sms)

	user := testUser(model.ChannelEmail, model.ChannelSMS)
	err := svc.Dispatch(context.Background(), user, "subject", "body")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrChannelDelivery))
	assert.Len(t, email.sent, 1, "failing channel must still be attempted")
	assert.Len(t, sms.sent, 1, "later channel must not be skipped")
}

func TestDispatchSkipsUnknownChannel(t *testing.T) {
	email := &recordingSender{kind: model.ChannelEmail}
	svc := newTestService(newFakeNotificationRepo(), &fakeUserRepo{}, email)

	user := testUser(model.ChannelEmail, model.ChannelSMS)
	err := svc.Dispatch(context.Background(), user, "subject", "body")

	require.NoError(t, err)
	assert.Len(t, email.sent, 1)
}

func TestNotifyMarksDeliveredEvenWhenSendFails(t *testing.T) {
	repo := newFakeNotificationRepo()
	email := &recordingSender{kind: model.ChannelEmail, err: errors.New("smtp down")}
	svc := newTestService(repo, &fakeUserRepo{}, email)

	user := testUser(model.ChannelEmail)
	exam := &model.Exam{ID: uuid.New(), Name: "Algebra", Date: time.Now()}

	err := svc.Notify(context.Background(), user, exam, model.KindAnnouncement, "subject", "message")
	require.Error(t, err)

	require.Len(t, repo.records, 1)
	for _, n := range repo.records {
		assert.True(t, n.Delivered)
		assert.Equal(t, "message", n.Message)
	}
}

func TestNotifyWithNoChannelsStillDelivers(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := newTestService(repo, &fakeUserRepo{})

	user := testUser()
	exam := &model.Exam{ID: uuid.New(), Name: "Algebra", Date: time.Now()}

	require.NoError(t, svc.Notify(context.Background(), user, exam, model.KindMaterial, "subject", "message"))
	for _, n := range repo.records {
		assert.True(t, n.Delivered)
	}
}

func TestSendPendingIsSafeToRerun(t *testing.T) {
	repo := newFakeNotificationRepo()
	user := testUser(model.ChannelEmail)
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{user.ID: user}}
	email := &recordingSender{kind: model.ChannelEmail}
	svc := newTestService(repo, users, email)

	exam := &model.Exam{ID: uuid.New(), Name: "Algebra", Date: time.Now().AddDate(0, 1, 0)}
	require.NoError(t, svc.ScheduleReminders(context.Background(), user, exam))

	delivered, err := svc.SendPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, delivered)
	assert.Len(t, email.sent, 4)

	delivered, err = svc.SendPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, delivered, "already-delivered records must be skipped")
	assert.Len(t, email.sent, 4)
}

func TestSendPendingLeavesRecordPendingWhenUserMissing(t *testing.T) {
	repo := newFakeNotificationRepo()
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
	svc := newTestService(repo, users)

	orphan := &model.Notification{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ExamID:      uuid.New(),
		Message:     "orphan",
		Kind:        model.KindReminder,
		ScheduledAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), orphan))

	delivered, err := svc.SendPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)

	pending, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1, "record must stay pending for the next sweep")
}
