package services

import (
	"context"
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/observability"
	"log/slog"
	"time"
)

const (
	sweepSucceeded = "success"
	sweepFailed    = "failure"
)

// CleanupService hard-deletes expired messages and reclaims the list entries
// they leave behind. It only ever touches the message store.
type CleanupService struct {
	log      *slog.Logger
	messages storage.IMessageRepository
	metrics  *observability.Metrics
}

func NewCleanupService(log *slog.Logger, messages storage.IMessageRepository, metrics *observability.Metrics) *CleanupService {
	return &CleanupService{log: log, messages: messages, metrics: metrics}
}

// Sweep deletes every message whose expiry is at or before now.
// Only expiries already committed when the sweep starts are considered.
func (s *CleanupService) Sweep(_ context.Context, now time.Time) (int, error) {
	ids, err := s.messages.FindExpired(now)
	if err != nil {
		s.metrics.CleanupSweeps.WithLabelValues(sweepFailed).Inc()
		return 0, err
	}
	deleted, err := s.messages.BulkDelete(ids)
	s.metrics.MessagesExpired.Add(float64(deleted))
	if err != nil {
		s.metrics.CleanupSweeps.WithLabelValues(sweepFailed).Inc()
		return deleted, err
	}
	s.metrics.CleanupSweeps.WithLabelValues(sweepSucceeded).Inc()

	if deleted > 0 {
		s.log.Info("Expired messages deleted", "count", deleted)
	} else {
		s.log.Debug("No expired messages")
	}
	return deleted, nil
}

// Compact drops conversation list entries whose message is gone.
func (s *CleanupService) Compact(_ context.Context) (int, error) {
	removed, err := s.messages.CompactDangling()
	if err != nil {
		return 0, err
	}
	s.metrics.CompactionRemoved.Add(float64(removed))
	if removed > 0 {
		s.log.Info("Dangling message ids compacted", "count", removed)
	}
	return removed, nil
}
