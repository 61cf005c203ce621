package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/examnotify/exam-api/internal/service/notification"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/metrics"
)

// SweeperConfig controls the delivery sweep cadence.
type SweeperConfig struct {
	Interval time.Duration
}

// Sweeper periodically delivers pending notifications. It is the
// scheduled counterpart of the on-demand batch-send endpoint; both run
// the same sweep, which is safe to trigger from either side.
type Sweeper struct {
	notifier notification.Service
	config   SweeperConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewSweeper(
	notifier notification.Service,
	config SweeperConfig,
	l *logger.Logger,
	m *metrics.Metrics,
) *Sweeper {
	if config.Interval <= 0 {
		panic("Interval must be greater than 0")
	}
	return &Sweeper{
		notifier: notifier,
		config:   config,
		logger:   l,
		metrics:  m,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("Starting notification sweeper", "interval", s.config.Interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down notification sweeper")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	timer := prometheus.NewTimer(s.metrics.SweepDuration)
	defer timer.ObserveDuration()

	delivered, err := s.notifier.SendPending(ctx)
	if err != nil {
		s.logger.Error(err, "Sweep failed")
		return
	}
	if delivered > 0 {
		s.logger.Info("Sweep completed", "delivered", delivered)
	}
}
