package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/internal/repository"
	apperrors "github.com/examnotify/exam-api/pkg/errors"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/metrics"
)

// Config holds the OAuth2 client settings and the state-token policy.
type Config struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	StateSecret  string        `mapstructure:"state_secret"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
	LandingURL   string        `mapstructure:"landing_url"`
	ErrorURL     string        `mapstructure:"error_url"`
}

// stateClaims is the opaque state round-tripped through the provider.
// It carries both the user and the exam identity so the callback never
// has to infer which exam triggered the flow.
type stateClaims struct {
	UserID string `json:"uid"`
	ExamID string `json:"eid,omitempty"`
	jwt.RegisteredClaims
}

type Service interface {
	// AuthURL mints the authorization URL for phase 1 of the flow.
	AuthURL(userID, examID uuid.UUID) (string, error)

	// HandleCallback runs phase 2: verify state, exchange the code,
	// persist the credential, insert the event. It returns the URL the
	// browser should be redirected to; on failure that is the error
	// page and err describes what went wrong.
	HandleCallback(ctx context.Context, code, state string) (string, error)

	// InsertEvent adds the exam to the user's calendar using the stored
	// credential.
	InsertEvent(ctx context.Context, user *model.User, exam *model.Exam) error
}

type service struct {
	users    repository.UserRepository
	exams    repository.ExamRepository
	provider Provider
	cfg      Config
	// usedStates tracks consumed state nonces so a state token cannot
	// be replayed within its lifetime.
	usedStates *gocache.Cache
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

func NewService(
	users repository.UserRepository,
	exams repository.ExamRepository,
	provider Provider,
	cfg Config,
	m *metrics.Metrics,
	l *logger.Logger,
) Service {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 15 * time.Minute
	}
	return &service{
		users:      users,
		exams:      exams,
		provider:   provider,
		cfg:        cfg,
		usedStates: gocache.New(cfg.StateTTL, 2*cfg.StateTTL),
		metrics:    m,
		logger:     l,
	}
}

func (s *service) AuthURL(userID, examID uuid.UUID) (string, error) {
	now := time.Now()
	claims := stateClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.StateTTL)),
		},
	}
	if examID != uuid.Nil {
		claims.ExamID = examID.String()
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.StateSecret))
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to sign state token: %w", err))
	}

	return s.provider.AuthCodeURL(state), nil
}

func (s *service) HandleCallback(ctx context.Context, code, state string) (string, error) {
	claims, err := s.decodeState(state)
	if err != nil {
		s.metrics.CalendarSyncs.WithLabelValues("auth_failed").Inc()
		return s.cfg.ErrorURL, apperrors.CalendarAuth("invalid authorization state", err)
	}

	if _, replayed := s.usedStates.Get(claims.ID); replayed {
		s.metrics.CalendarSyncs.WithLabelValues("auth_failed").Inc()
		return s.cfg.ErrorURL, apperrors.CalendarAuth("authorization state already used", nil)
	}
	s.usedStates.Set(claims.ID, struct{}{}, gocache.DefaultExpiration)

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		s.metrics.CalendarSyncs.WithLabelValues("auth_failed").Inc()
		return s.cfg.ErrorURL, apperrors.CalendarAuth("malformed user identity in state", err)
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.metrics.CalendarSyncs.WithLabelValues("auth_failed").Inc()
		return s.cfg.ErrorURL, apperrors.CalendarAuth("authorization code exchange failed", err)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return s.cfg.ErrorURL, mapStoreErr("user", err)
	}

	refresh := token.RefreshToken
	if refresh == "" {
		// The provider omits the refresh token on repeat consent; keep
		// the one already on file.
		refresh = user.CalendarToken
	}
	if refresh == "" {
		s.metrics.CalendarSyncs.WithLabelValues("auth_failed").Inc()
		return s.cfg.ErrorURL, apperrors.CalendarAuth("no durable credential granted", nil)
	}

	if err := s.users.UpdateCalendarToken(ctx, userID, refresh); err != nil {
		return s.cfg.ErrorURL, apperrors.Persistence(err)
	}
	s.metrics.CalendarSyncs.WithLabelValues("authorized").Inc()

	exam, err := s.resolveExam(ctx, claims, userID)
	if err != nil {
		return s.cfg.ErrorURL, err
	}

	if err := s.provider.InsertEvent(ctx, refresh, exam); err != nil {
		s.metrics.CalendarSyncs.WithLabelValues("insert_failed").Inc()
		return s.cfg.ErrorURL, apperrors.Internal(fmt.Errorf("calendar event insertion failed: %w", err))
	}
	s.metrics.CalendarSyncs.WithLabelValues("event_inserted").Inc()

	s.logger.Info("calendar authorization completed",
		"user_id", userID.String(), "exam_id", exam.ID.String())

	return s.cfg.LandingURL, nil
}

func (s *service) InsertEvent(ctx context.Context, user *model.User, exam *model.Exam) error {
	if !user.HasCalendarToken() {
		return apperrors.CalendarAuth("user has no calendar credential", nil)
	}

	if err := s.provider.InsertEvent(ctx, user.CalendarToken, exam); err != nil {
		s.metrics.CalendarSyncs.WithLabelValues("insert_failed").Inc()
		return apperrors.Internal(fmt.Errorf("calendar event insertion failed: %w", err))
	}
	s.metrics.CalendarSyncs.WithLabelValues("event_inserted").Inc()
	return nil
}

func (s *service) decodeState(state string) (*stateClaims, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.StateSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, fmt.Errorf("state token missing required claims")
	}
	return claims, nil
}

// resolveExam prefers the exam identity carried in the state token and
// falls back to the user's most recent registration for states minted
// without one.
func (s *service) resolveExam(ctx context.Context, claims *stateClaims, userID uuid.UUID) (*model.Exam, error) {
	examID, err := uuid.Parse(claims.ExamID)
	if claims.ExamID == "" || err != nil {
		examID, err = s.users.LatestRegistration(ctx, userID)
		if err != nil {
			return nil, mapStoreErr("registration", err)
		}
	}

	exam, err := s.exams.Get(ctx, examID)
	if err != nil {
		return nil, mapStoreErr("exam", err)
	}
	return exam, nil
}

func mapStoreErr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Persistence(err)
}
