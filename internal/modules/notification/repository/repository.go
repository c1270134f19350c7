package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/changefeed"
	"uniconnect.app/campus/pkg/apperror"
)

// SnapshotFunc receives the complete notification collection after every
// change, or the error that prevented loading it.
type SnapshotFunc func(notifications []entity.Notification, err error)

// NotificationRepository is the shared notification store. Membership marks
// are set-valued: adding an existing mark or removing a missing one is a no-op.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	FindAll(ctx context.Context) ([]entity.Notification, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	AddMark(ctx context.Context, id uuid.UUID, kind entity.MarkKind, userID string) error
	RemoveMark(ctx context.Context, id uuid.UUID, kind entity.MarkKind, userID string) error
	// AddMarks applies AddMark to every id in one transaction. Ids that no
	// longer exist are skipped.
	AddMarks(ctx context.Context, ids []uuid.UUID, kind entity.MarkKind, userID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Subscribe delivers an initial snapshot and then one snapshot per store
	// change. Deliveries for one subscription never overlap.
	Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error)
}

// storeError classifies a driver error into the application taxonomy.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperror.ErrNotFound) {
		return apperror.ErrNotFound
	}
	if errors.Is(err, apperror.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", apperror.ErrStoreUnavailable, err)
}

// Backoff bounds for re-listening after the change feed closes a listener.
var (
	relistenMinBackoff = 100 * time.Millisecond
	relistenMaxBackoff = 5 * time.Second
)

// subscribe runs the snapshot loop shared by every repository implementation.
// When the feed closes its channel the subscriber is told the store is
// unavailable, and the loop re-listens with backoff and resumes with a fresh
// snapshot.
func subscribe(ctx context.Context, feed changefeed.Feed, load func(context.Context) ([]entity.Notification, error), fn SnapshotFunc) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	events, stop, err := feed.Listen(ctx)
	if err != nil {
		cancel()
		return nil, storeError(err)
	}

	go func() {
		defer func() { stop() }()

		emit := func() bool {
			notifications, err := load(ctx)
			if ctx.Err() != nil {
				return false
			}
			fn(notifications, err)
			return true
		}

		relisten := func() bool {
			backoff := relistenMinBackoff
			for {
				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return false
				case <-timer.C:
				}
				next, nextStop, err := feed.Listen(ctx)
				if err == nil {
					events, stop = next, nextStop
					return true
				}
				if backoff *= 2; backoff > relistenMaxBackoff {
					backoff = relistenMaxBackoff
				}
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if ok {
					if !emit() {
						return
					}
					continue
				}
				stop()
				stop = func() {}
				if ctx.Err() != nil {
					return
				}
				fn(nil, fmt.Errorf("%w: change feed closed", apperror.ErrStoreUnavailable))
				if !relisten() || !emit() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
