package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/channel"
	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/metrics"
)

const sweepSubject = "Exam Notification"

// reminderOffsets is the fixed reminder schedule: days before the exam
// date paired with the label embedded in the message.
var reminderOffsets = []struct {
	days  int
	label string
}{
	{30, "1 month"},
	{7, "1 week"},
	{1, "1 day"},
	{0, "today"},
}

type Service interface {
	// ScheduleReminders persists the reminder schedule for (user, exam).
	// It is a no-op when reminders already exist for the pair.
	ScheduleReminders(ctx context.Context, user *model.User, exam *model.Exam) error

	// Notify creates a notification record and delivers it immediately
	// on every channel the user enabled. The record is marked delivered
	// after all channel attempts, regardless of per-channel failures.
	Notify(ctx context.Context, user *model.User, exam *model.Exam, kind model.NotificationKind, subject, message string) error

	// Dispatch sends a message on every enabled channel without
	// touching any notification record.
	Dispatch(ctx context.Context, user *model.User, subject, body string) error

	// SendPending delivers every undelivered notification and marks it
	// delivered. Safe to re-run: already-delivered records are skipped.
	SendPending(ctx context.Context) (int, error)

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
}

type service struct {
	repo    repository.NotificationRepository
	users   repository.UserRepository
	senders map[string]channel.Sender
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	senders []channel.Sender,
	m *metrics.Metrics,
	l *logger.Logger,
) Service {
	byKind := make(map[string]channel.Sender, len(senders))
	for _, s := range senders {
		byKind[s.Kind()] = s
	}
	return &service{
		repo:    repo,
		users:   users,
		senders: byKind,
		metrics: m,
		logger:  l,
	}
}

// BuildReminderSchedule derives the reminder notifications for an exam:
// one per offset, each dated offset days before the exam, each
// undelivered. Pure; persistence is the caller's concern.
func BuildReminderSchedule(user *model.User, exam *model.Exam) []*model.Notification {
	now := time.Now()
	reminders := make([]*model.Notification, 0, len(reminderOffsets))
	for _, offset := range reminderOffsets {
		reminders = append(reminders, &model.Notification{
			ID:          uuid.New(),
			UserID:      user.ID,
			ExamID:      exam.ID,
			Message:     fmt.Sprintf("Your exam %q is %s away.", exam.Name, offset.label),
			Kind:        model.KindReminder,
			ScheduledAt: exam.Date.AddDate(0, 0, -offset.days),
			Delivered:   false,
			CreatedAt:   now,
		})
	}
	return reminders
}

func (s *service) ScheduleReminders(ctx context.Context, user *model.User, exam *model.Exam) error {
	count, err := s.repo.CountReminders(ctx, user.ID, exam.ID)
	if err != nil {
		return apperrors.Persistence(err)
	}
	if count > 0 {
		s.logger.Debug("reminders already scheduled",
			"user_id", user.ID.String(), "exam_id", exam.ID.String())
		return nil
	}

	for _, reminder := range BuildReminderSchedule(user, exam) {
		if err := s.repo.Create(ctx, reminder); err != nil {
			return apperrors.Persistence(err)
		}
		s.metrics.NotificationsCreated.WithLabelValues(string(reminder.Kind)).Inc()
	}
	return nil
}

func (s *service) Notify(ctx context.Context, user *model.User, exam *model.Exam, kind model.NotificationKind, subject, message string) error {
	n := &model.Notification{
		ID:          uuid.New(),
		UserID:      user.ID,
		ExamID:      exam.ID,
		Message:     message,
		Kind:        kind,
		ScheduledAt: time.Now(),
		Delivered:   false,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return apperrors.Persistence(err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(kind)).Inc()

	dispatchErr := s.Dispatch(ctx, user, subject, message)

	// The delivered flag records that every enabled channel was
	// attempted, not that every attempt succeeded.
	if err := s.repo.MarkDelivered(ctx, n.ID); err != nil {
		return apperrors.Persistence(err)
	}

	return dispatchErr
}

func (s *service) Dispatch(ctx context.Context, user *model.User, subject, body string) error {
	var sendErrs []error

	for _, kind := range user.Channels {
		sender, ok := s.senders[kind]
		if !ok {
			s.logger.Warn("no sender configured for channel",
				"channel", kind, "user_id", user.ID.String())
			s.metrics.ChannelSends.WithLabelValues(kind, "skipped").Inc()
			continue
		}

		// Each channel send is independent; a failure never skips the
		// remaining channels.
		if err := sender.Send(ctx, user, subject, body); err != nil {
			s.logger.Error(err, "channel send failed",
				"channel", kind, "user_id", user.ID.String())
			s.metrics.ChannelSends.WithLabelValues(kind, "error").Inc()
			sendErrs = append(sendErrs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		s.metrics.ChannelSends.WithLabelValues(kind, "success").Inc()
	}

	if len(sendErrs) > 0 {
		return apperrors.ChannelDelivery(
			fmt.Sprintf("delivery failed on %d of %d channels", len(sendErrs), len(user.Channels)),
			errors.Join(sendErrs...),
		)
	}
	return nil
}

func (s *service) SendPending(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}
	s.metrics.SweepBatchSize.Observe(float64(len(pending)))

	delivered := 0
	for _, n := range pending {
		user, err := s.users.Get(ctx, n.UserID)
		if err != nil {
			// Leave the record pending; the next sweep retries it.
			s.logger.Error(err, "failed to load user for pending notification",
				"notification_id", n.ID.String())
			continue
		}

		if err := s.Dispatch(ctx, user, sweepSubject, n.Message); err != nil {
			s.logger.Error(err, "sweep delivery incomplete",
				"notification_id", n.ID.String())
		}

		if err := s.repo.MarkDelivered(ctx, n.ID); err != nil {
			s.logger.Error(err, "failed to mark notification delivered",
				"notification_id", n.ID.String())
			continue
		}
		delivered++
		s.metrics.NotificationsSwept.Inc()
	}

	return delivered, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	notifications, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return notifications, nil
}
