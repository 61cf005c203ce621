package channel

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/examnotify/exam-api/internal/model"
)

// SMSConfig holds the Twilio transport settings.
type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

type smsSender struct {
	client *twilio.RestClient
	from   string
}

// NewSMSSender returns the SMS channel backed by Twilio.
func NewSMSSender(cfg SMSConfig) Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &smsSender{client: client, from: cfg.From}
}

func (s *smsSender) Kind() string {
	return model.ChannelSMS
}

func (s *smsSender) Send(ctx context.Context, user *model.User, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.PhoneNumber == "" {
		return fmt.Errorf("user %s has no phone number", user.ID)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(user.PhoneNumber)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", user.PhoneNumber, err)
	}
	return nil
}
