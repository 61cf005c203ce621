package channel

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/examnotify/exam-api/internal/model"
)

// SMTPConfig holds the email transport settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type emailSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailSender returns the email channel backed by SMTP.
func NewEmailSender(cfg SMTPConfig) Sender {
	return &emailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *emailSender) Kind() string {
	return model.ChannelEmail
}

func (s *emailSender) Send(ctx context.Context, user *model.User, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", user.ID)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", user.Email, err)
	}
	return nil
}
