package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	"github.com/examnotify/exam-api/internal/service/calendar"
	"github.com/examnotify/exam-api/internal/service/notification"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/metrics"
)

const dateLayout = "January 2, 2006"

const (
	subjectNewExam      = "New Exam Scheduled"
	subjectConfirmation = "Exam Registration Confirmation"
	subjectAnnouncement = "Exam Announcement"
	subjectMaterial     = "Exam Material"
)

type Service interface {
	CreateExam(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error)
	ListExams(ctx context.Context) ([]*model.Exam, error)
	ListRegistered(ctx context.Context, userID uuid.UUID) ([]*model.Exam, error)

	// Register runs the registration flow: validate, persist, schedule
	// reminders, confirm, and branch on the calendar credential.
	Register(ctx context.Context, userID, examID uuid.UUID) (*model.RegistrationResult, error)

	// AddToCalendar inserts the exam into the user's calendar, or hands
	// back an authorization URL when no credential is on file yet.
	AddToCalendar(ctx context.Context, userID, examID uuid.UUID) (*model.CalendarResult, error)

	AddAnnouncement(ctx context.Context, examID uuid.UUID, announcement string) (*model.Exam, error)
	AddMaterial(ctx context.Context, examID uuid.UUID, material string) (*model.Exam, error)
}

type service struct {
	exams    repository.ExamRepository
	users    repository.UserRepository
	notifier notification.Service
	calendar calendar.Service
	metrics  *metrics.Metrics
	logger   *logger.Logger

	// regMu serializes registration writes per user. Concurrent
	// registrations for different users proceed independently.
	regMu sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(
	exams repository.ExamRepository,
	users repository.UserRepository,
	notifier notification.Service,
	cal calendar.Service,
	m *metrics.Metrics,
	l *logger.Logger,
) Service {
	return &service{
		exams:    exams,
		users:    users,
		notifier: notifier,
		calendar: cal,
		metrics:  m,
		logger:   l,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *service) CreateExam(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		ID:                   uuid.New(),
		Name:                 req.Name,
		Date:                 req.Date,
		Venue:                req.Venue,
		PreparationMaterials: req.PreparationMaterials,
		Announcements:        req.Announcements,
	}

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, apperrors.Persistence(err)
	}

	// Every known user hears about a new exam, registered or not.
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error(err, "failed to list users for new-exam announcement",
			"exam_id", exam.ID.String())
		return exam, nil
	}
	message := fmt.Sprintf("New exam %q has been scheduled for %s.",
		exam.Name, exam.Date.Format(dateLayout))
	s.fanOut(ctx, users, exam, model.KindAnnouncement, subjectNewExam, message)

	return exam, nil
}

func (s *service) ListExams(ctx context.Context) ([]*model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return exams, nil
}

func (s *service) ListRegistered(ctx context.Context, userID uuid.UUID) ([]*model.Exam, error) {
	ids, err := s.users.ListRegistrations(ctx, userID)
	if err != nil {
		return nil, mapStoreErr("user", err)
	}

	registered := make([]*model.Exam, 0, len(ids))
	for _, id := range ids {
		exam, err := s.exams.Get(ctx, id)
		if err != nil {
			return nil, mapStoreErr("exam", err)
		}
		registered = append(registered, exam)
	}
	return registered, nil
}

func (s *service) Register(ctx context.Context, userID, examID uuid.UUID) (*model.RegistrationResult, error) {
	exam, err := s.exams.Get(ctx, examID)
	if err != nil {
		return nil, mapStoreErr("exam", err)
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, mapStoreErr("user", err)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	registered, err := s.users.IsRegistered(ctx, userID, examID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if registered {
		return nil, apperrors.Validation("user already registered for this exam", nil)
	}

	if err := s.users.AddRegistration(ctx, userID, examID); err != nil {
		return nil, apperrors.Persistence(err)
	}

	// The registration is committed. Everything past this point is
	// best effort: failures are logged and reported, never rolled back.
	message := fmt.Sprintf("Successfully registered for %s.", exam.Name)

	if err := s.notifier.ScheduleReminders(ctx, user, exam); err != nil {
		s.logger.Error(err, "failed to schedule reminders",
			"user_id", userID.String(), "exam_id", examID.String())
		message += " Reminder scheduling failed."
	}

	confirmation := fmt.Sprintf("You have successfully registered for the exam: %s on %s.",
		exam.Name, exam.Date.Format(dateLayout))
	if err := s.notifier.Notify(ctx, user, exam, model.KindAnnouncement, subjectConfirmation, confirmation); err != nil {
		s.logger.Error(err, "failed to send registration confirmation",
			"user_id", userID.String(), "exam_id", examID.String())
	}

	result := &model.RegistrationResult{Message: message}

	if user.HasCalendarToken() {
		if err := s.calendar.InsertEvent(ctx, user, exam); err != nil {
			s.logger.Error(err, "failed to insert calendar event",
				"user_id", userID.String(), "exam_id", examID.String())
			result.Message += " Calendar sync failed."
		} else {
			result.Message += " Exam added to your calendar."
		}
	} else {
		authURL, err := s.calendar.AuthURL(userID, examID)
		if err != nil {
			s.logger.Error(err, "failed to mint calendar authorization URL",
				"user_id", userID.String())
		} else {
			result.AuthURL = authURL
			result.Message += " Authorize calendar access to add this exam to your calendar."
		}
	}

	result.AvailableExams, result.RegisteredExams, err = s.partitionExams(ctx, userID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AddToCalendar(ctx context.Context, userID, examID uuid.UUID) (*model.CalendarResult, error) {
	exam, err := s.exams.Get(ctx, examID)
	if err != nil {
		return nil, mapStoreErr("exam", err)
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, mapStoreErr("user", err)
	}

	if !user.HasCalendarToken() {
		authURL, err := s.calendar.AuthURL(userID, examID)
		if err != nil {
			return nil, err
		}
		return &model.CalendarResult{
			Message: "Authorize calendar access to add this exam to your calendar.",
			AuthURL: authURL,
		}, nil
	}

	if err := s.calendar.InsertEvent(ctx, user, exam); err != nil {
		return nil, err
	}
	return &model.CalendarResult{Message: "Exam added to your calendar."}, nil
}

func (s *service) AddAnnouncement(ctx context.Context, examID uuid.UUID, announcement string) (*model.Exam, error) {
	if err := s.exams.AppendAnnouncement(ctx, examID, announcement); err != nil {
		return nil, mapStoreErr("exam", err)
	}
	exam, err := s.exams.Get(ctx, examID)
	if err != nil {
		return nil, mapStoreErr("exam", err)
	}

	s.notifyRegistered(ctx, exam, model.KindAnnouncement, subjectAnnouncement, announcement)
	return exam, nil
}

func (s *service) AddMaterial(ctx context.Context, examID uuid.UUID, material string) (*model.Exam, error) {
	if err := s.exams.AppendMaterial(ctx, examID, material); err != nil {
		return nil, mapStoreErr("exam", err)
	}
	exam, err := s.exams.Get(ctx, examID)
	if err != nil {
		return nil, mapStoreErr("exam", err)
	}

	message := fmt.Sprintf("New preparation material available: %s", material)
	s.notifyRegistered(ctx, exam, model.KindMaterial, subjectMaterial, message)
	return exam, nil
}

// notifyRegistered immediate-sends to every user registered for the exam.
func (s *service) notifyRegistered(ctx context.Context, exam *model.Exam, kind model.NotificationKind, subject, message string) {
	users, err := s.users.ListRegisteredForExam(ctx, exam.ID)
	if err != nil {
		s.logger.Error(err, "failed to list registered users",
			"exam_id", exam.ID.String())
		return
	}
	s.fanOut(ctx, users, exam, kind, subject, message)
}

func (s *service) fanOut(ctx context.Context, users []*model.User, exam *model.Exam, kind model.NotificationKind, subject, message string) {
	for _, user := range users {
		if err := s.notifier.Notify(ctx, user, exam, kind, subject, message); err != nil {
			s.logger.Error(err, "notification fan-out incomplete",
				"user_id", user.ID.String(), "exam_id", exam.ID.String())
		}
	}
}

// partitionExams splits all exams into those the user has registered
// for, in registration order, and the rest.
func (s *service) partitionExams(ctx context.Context, userID uuid.UUID) (available, registered []*model.Exam, err error) {
	all, err := s.exams.List(ctx)
	if err != nil {
		return nil, nil, apperrors.Persistence(err)
	}
	ids, err := s.users.ListRegistrations(ctx, userID)
	if err != nil {
		return nil, nil, apperrors.Persistence(err)
	}

	byID := make(map[uuid.UUID]*model.Exam, len(all))
	for _, exam := range all {
		byID[exam.ID] = exam
	}

	registeredSet := make(map[uuid.UUID]bool, len(ids))
	registered = make([]*model.Exam, 0, len(ids))
	for _, id := range ids {
		registeredSet[id] = true
		if exam, ok := byID[id]; ok {
			registered = append(registered, exam)
		}
	}

	available = make([]*model.Exam, 0, len(all))
	for _, exam := range all {
		if !registeredSet[exam.ID] {
			available = append(available, exam)
		}
	}
	return available, registered, nil
}

func (s *service) userLock(id uuid.UUID) *sync.Mutex {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func mapStoreErr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Persistence(err)
}
