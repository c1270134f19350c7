package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"uniconnect.app/campus/internal/modules/notification/changefeed"
	notifRepo "uniconnect.app/campus/internal/modules/notification/repository"
)

// ExpirySweep signals the change feed when notifications pass their expiry
// time. Expiry is not a store write, so without it live subscriptions would
// keep showing an expired entry until the next unrelated change.
type ExpirySweep struct {
	repo     notifRepo.NotificationRepository
	feed     changefeed.Feed
	log      *zap.Logger
	schedule string
	now      func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func NewExpirySweep(repo notifRepo.NotificationRepository, feed changefeed.Feed, log *zap.Logger, schedule string) *ExpirySweep {
	return newExpirySweep(repo, feed, log, schedule, time.Now)
}

func newExpirySweep(repo notifRepo.NotificationRepository, feed changefeed.Feed, log *zap.Logger, schedule string, now func() time.Time) *ExpirySweep {
	return &ExpirySweep{
		repo:     repo,
		feed:     feed,
		log:      log,
		schedule: schedule,
		now:      now,
		lastSeen: now(),
	}
}

func (s *ExpirySweep) Name() string { return "notification-expiry-sweep" }

func (s *ExpirySweep) Schedule() string { return s.schedule }

// Execute publishes one event naming every notification that expired since
// the previous run.
func (s *ExpirySweep) Execute(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return err
	}

	var expired []string
	for i := range all {
		at := all[i].ExpiresAt
		if at == nil {
			continue
		}
		if at.After(s.lastSeen) && !at.After(now) {
			expired = append(expired, all[i].ID.String())
		}
	}
	s.lastSeen = now

	if len(expired) == 0 {
		return nil
	}
	s.log.Info("notifications expired", zap.Int("count", len(expired)))
	return s.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpExpired, NotificationIDs: expired})
}
