package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/examnotify/exam-api/internal/model"
)

// eventDuration is the calendar block reserved per exam.
const eventDuration = 2 * time.Hour

// Provider is the external calendar capability: minting authorization
// URLs, exchanging authorization codes, and inserting events.
// Failures and missing credentials are steady-state conditions here.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	InsertEvent(ctx context.Context, refreshToken string, exam *model.Exam) error
}

type googleProvider struct {
	oauth *oauth2.Config
}

// NewGoogleProvider returns a Provider backed by Google Calendar.
func NewGoogleProvider(cfg Config) Provider {
	return &googleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gcal.CalendarScope},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *googleProvider) AuthCodeURL(state string) string {
	// Offline access so the exchange yields a durable refresh token.
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

func (p *googleProvider) InsertEvent(ctx context.Context, refreshToken string, exam *model.Exam) error {
	client := p.oauth.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("failed to build calendar client: %w", err)
	}

	event := &gcal.Event{
		Summary:     exam.Name,
		Location:    exam.Venue,
		Description: "Exam Date",
		Start: &gcal.EventDateTime{
			DateTime: exam.Date.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: exam.Date.Add(eventDuration).UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	if _, err := svc.Events.Insert("primary", event).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to insert calendar event: %w", err)
	}
	return nil
}
