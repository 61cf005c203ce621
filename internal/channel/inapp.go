package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examnotify/exam-api/internal/model"
	"github.com/examnotify/exam-api/pkg/messaging"
)

type inAppSender struct {
	broker messaging.Broker
}

// NewInAppSender returns the in-app channel, which publishes
// notification events to the user's broker channel for connected
// clients to pick up.
func NewInAppSender(broker messaging.Broker) Sender {
	return &inAppSender{broker: broker}
}

func (s *inAppSender) Kind() string {
	return model.ChannelInApp
}

func (s *inAppSender) Send(ctx context.Context, user *model.User, subject, body string) error {
	event := &model.NotificationEvent{
		ID:        uuid.New(),
		UserID:    user.ID,
		Subject:   subject,
		Message:   body,
		CreatedAt: time.Now(),
	}

	topic := fmt.Sprintf("notifications:%s", user.ID)
	if err := s.broker.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("failed to publish in-app notification: %w", err)
	}
	return nil
}
