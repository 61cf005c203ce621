package channel

import (
	"context"

	"github.com/examnotify/exam-api/internal/model"
)

// Sender delivers one message over a single transport. One
// implementation exists per channel kind; the dispatcher invokes them
// uniformly.
type Sender interface {
	Kind() string
	Send(ctx context.Context, user *model.User, subject, body string) error
}
