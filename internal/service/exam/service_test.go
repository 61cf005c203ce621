package exam

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	notificationService "github.com/examnotify/exam-api/internal/service/notification"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/metrics"
)

type fakeExamRepo struct {
	exams map[uuid.UUID]*model.Exam
	order []uuid.UUID
}

func newFakeExamRepo(exams ...*model.Exam) *fakeExamRepo {
	r := &fakeExamRepo{exams: make(map[uuid.UUID]*model.Exam)}
	for _, e := range exams {
		r.exams[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

func (r *fakeExamRepo) Create(_ context.Context, exam *model.Exam) error {
	r.exams[exam.ID] = exam
	r.order = append(r.order, exam.ID)
	return nil
}

func (r *fakeExamRepo) Get(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, ok := r.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return exam, nil
}

func (r *fakeExamRepo) List(_ context.Context) ([]*model.Exam, error) {
	out := make([]*model.Exam, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.exams[id])
	}
	return out, nil
}

func (r *fakeExamRepo) AppendAnnouncement(_ context.Context, id uuid.UUID, announcement string) error {
	exam, ok := r.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	exam.Announcements = append(exam.Announcements, announcement)
	return nil
}

func (r *fakeExamRepo) AppendMaterial(_ context.Context, id uuid.UUID, material string) error {
	exam, ok := r.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	exam.PreparationMaterials = append(exam.PreparationMaterials, material)
	return nil
}

type fakeUserRepo struct {
	repository.UserRepository
	users         map[uuid.UUID]*model.User
	registrations map[uuid.UUID][]uuid.UUID
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:         make(map[uuid.UUID]*model.User),
		registrations: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) ListRegisteredForExam(_ context.Context, examID uuid.UUID) ([]*model.User, error) {
	var out []*model.User
	for userID, ids := range r.registrations {
		for _, id := range ids {
			if id == examID {
				out = append(out, r.users[userID])
				break
			}
		}
	}
	return out, nil
}

func (r *fakeUserRepo) AddRegistration(_ context.Context, userID, examID uuid.UUID) error {
	r.registrations[userID] = append(r.registrations[userID], examID)
	return nil
}

func (r *fakeUserRepo) ListRegistrations(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.registrations[userID], nil
}

func (r *fakeUserRepo) IsRegistered(_ context.Context, userID, examID uuid.UUID) (bool, error) {
	for _, id := range r.registrations[userID] {
		if id == examID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCalendar struct {
	authURL  string
	inserted []uuid.UUID
	err      error
}

func (c *fakeCalendar) AuthURL(_, _ uuid.UUID) (string, error) {
	return c.authURL, nil
}

func (c *fakeCalendar) HandleCallback(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

func (c *fakeCalendar) InsertEvent(_ context.Context, _ *model.User, exam *model.Exam) error {
	if c.err != nil {
		return c.err
	}
	c.inserted = append(c.inserted, exam.ID)
	return nil
}

type fakeNotificationRepo struct {
	records []*model.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	copied := *n
	r.records = append(r.records, &copied)
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
	for _, n := range r.records {
		if n.ID == id {
			n.Delivered = true
			return nil
		}
	}
	return repository.ErrNotFound
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

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type fixture struct {
	svc       Service
	exams     *fakeExamRepo
	users     *fakeUserRepo
	calendar  *fakeCalendar
	notifRepo *fakeNotificationRepo
}

func newFixture(t *testing.T, users []*model.User, exams ...*model.Exam) *fixture {
	t.Helper()

	examRepo := newFakeExamRepo(exams...)
	userRepo := newFakeUserRepo(users...)
	notifRepo := &fakeNotificationRepo{}
	cal := &fakeCalendar{authURL: "https://provider.example/auth?state=opaque"}

	m := metrics.New(prometheus.NewRegistry(), "test")
	l := testLogger()
	notifier := notificationService.NewService(notifRepo, userRepo, nil, m, l)

	return &fixture{
		svc:       NewService(examRepo, userRepo, notifier, cal, m, l),
		exams:     examRepo,
		users:     userRepo,
		calendar:  cal,
		notifRepo: notifRepo,
	}
}

func algebraExam() *model.Exam {
	return &model.Exam{
		ID:    uuid.New(),
		Name:  "Algebra",
		Date:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Venue: "Hall A",
	}
}

func TestRegisterUnknownExamFailsFast(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada"}
	f := newFixture(t, []*model.User{user})

	_, err := f.svc.Register(context.Background(), user.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	assert.Empty(t, f.notifRepo.records, "no notifications on failed validation")
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{user}, exam)

	_, err := f.svc.Register(context.Background(), user.ID, exam.ID)
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), user.ID, exam.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestRegisterWithoutCredentialReturnsAuthURL(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{user}, exam)

	result, err := f.svc.Register(context.Background(), user.ID, exam.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, result.AuthURL)
	assert.Empty(t, f.calendar.inserted, "no synchronous insert without a credential")
}

func TestRegisterWithCredentialInsertsEventDirectly(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada", CalendarToken: "refresh-token"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{user}, exam)

	result, err := f.svc.Register(context.Background(), user.ID, exam.ID)
	require.NoError(t, err)

	assert.Empty(t, result.AuthURL)
	assert.Equal(t, []uuid.UUID{exam.ID}, f.calendar.inserted)
}

func TestRegisterCreatesScheduleAndConfirmation(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{user}, exam)

	_, err := f.svc.Register(context.Background(), user.ID, exam.ID)
	require.NoError(t, err)

	require.Len(t, f.notifRepo.records, 5)

	var reminders, confirmations int
	for _, n := range f.notifRepo.records {
		switch n.Kind {
		case model.KindReminder:
			reminders++
			assert.False(t, n.Delivered, "reminders stay pending until the sweep")
		default:
			confirmations++
			assert.True(t, n.Delivered, "confirmation is an immediate send")
			assert.Equal(t,
				"You have successfully registered for the exam: Algebra on June 1, 2025.",
				n.Message)
		}
	}
	assert.Equal(t, 4, reminders)
	assert.Equal(t, 1, confirmations)
}

func TestRegisterPartitionsExams(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Ada"}
	algebra := algebraExam()
	geometry := &model.Exam{ID: uuid.New(), Name: "Geometry", Date: time.Now().AddDate(0, 3, 0)}
	f := newFixture(t, []*model.User{user}, algebra, geometry)

	result, err := f.svc.Register(context.Background(), user.ID, algebra.ID)
	require.NoError(t, err)

	require.Len(t, result.RegisteredExams, 1)
	assert.Equal(t, algebra.ID, result.RegisteredExams[0].ID)
	require.Len(t, result.AvailableExams, 1)
	assert.Equal(t, geometry.ID, result.AvailableExams[0].ID)
}

func TestCreateExamAnnouncesToEveryUser(t *testing.T) {
	ada := &model.User{ID: uuid.New(), Name: "Ada"}
	bob := &model.User{ID: uuid.New(), Name: "Bob"}
	f := newFixture(t, []*model.User{ada, bob})

	exam, err := f.svc.CreateExam(context.Background(), &model.CreateExamRequest{
		Name:  "Algebra",
		Date:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Venue: "Hall A",
	})
	require.NoError(t, err)
	require.NotNil(t, exam)

	require.Len(t, f.notifRepo.records, 2, "one announcement per known user")
	for _, n := range f.notifRepo.records {
		assert.Equal(t, model.KindAnnouncement, n.Kind)
		assert.Equal(t, `New exam "Algebra" has been scheduled for June 1, 2025.`, n.Message)
	}
}

func TestAddMaterialNotifiesOnlyRegisteredUsers(t *testing.T) {
	ada := &model.User{ID: uuid.New(), Name: "Ada"}
	bob := &model.User{ID: uuid.New(), Name: "Bob"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{ada, bob}, exam)

	_, err := f.svc.Register(context.Background(), ada.ID, exam.ID)
	require.NoError(t, err)
	f.notifRepo.records = nil

	updated, err := f.svc.AddMaterial(context.Background(), exam.ID, "chapter-3.pdf")
	require.NoError(t, err)
	assert.Contains(t, updated.PreparationMaterials, "chapter-3.pdf")

	require.Len(t, f.notifRepo.records, 1)
	assert.Equal(t, ada.ID, f.notifRepo.records[0].UserID)
	assert.Equal(t, model.KindMaterial, f.notifRepo.records[0].Kind)
	assert.Equal(t, "New preparation material available: chapter-3.pdf", f.notifRepo.records[0].Message)
}

func TestAddAnnouncementAppendsAndNotifies(t *testing.T) {
	ada := &model.User{ID: uuid.New(), Name: "Ada"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{ada}, exam)

	_, err := f.svc.Register(context.Background(), ada.ID, exam.ID)
	require.NoError(t, err)
	f.notifRepo.records = nil

	updated, err := f.svc.AddAnnouncement(context.Background(), exam.ID, "Venue changed to Hall B")
	require.NoError(t, err)
	assert.Contains(t, updated.Announcements, "Venue changed to Hall B")

	require.Len(t, f.notifRepo.records, 1)
	assert.Equal(t, "Venue changed to Hall B", f.notifRepo.records[0].Message)
}

func TestAddToCalendarBranchesOnCredential(t *testing.T) {
	withToken := &model.User{ID: uuid.New(), Name: "Ada", CalendarToken: "refresh-token"}
	withoutToken := &model.User{ID: uuid.New(), Name: "Bob"}
	exam := algebraExam()
	f := newFixture(t, []*model.User{withToken, withoutToken}, exam)

	result, err := f.svc.AddToCalendar(context.Background(), withToken.ID, exam.ID)
	require.NoError(t, err)
	assert.Empty(t, result.AuthURL)
	assert.Equal(t, []uuid.UUID{exam.ID}, f.calendar.inserted)

	result, err = f.svc.AddToCalendar(context.Background(), withoutToken.ID, exam.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AuthURL)
}
