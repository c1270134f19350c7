package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/changefeed"
	"uniconnect.app/campus/pkg/apperror"
)

var _ NotificationRepository = (*MemoryRepository)(nil)

// MemoryRepository keeps notifications in process. It backs local
// development without postgres and the service tests.
type MemoryRepository struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]entity.Notification
	feed          changefeed.Feed
	failure       error
}

func NewMemoryRepository(feed changefeed.Feed) *MemoryRepository {
	if feed == nil {
		feed = changefeed.NewLocalFeed()
	}
	return &MemoryRepository{
		notifications: make(map[uuid.UUID]entity.Notification),
		feed:          feed,
	}
}

// SetFailure makes every subsequent call fail with err wrapped as a store
// outage. Passing nil restores normal operation.
func (r *MemoryRepository) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = err
}

// Touch signals subscribers without changing any record.
func (r *MemoryRepository) Touch(ctx context.Context) {
	_ = r.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpUpdated})
}

func (r *MemoryRepository) failed() error {
	if r.failure != nil {
		return fmt.Errorf("%w: %v", apperror.ErrStoreUnavailable, r.failure)
	}
	return nil
}

func (r *MemoryRepository) Create(ctx context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	if err := r.failed(); err != nil {
		r.mu.Unlock()
		return err
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	notification.Recipients = dedupe(notification.Recipients)
	if notification.ReadBy == nil {
		notification.ReadBy = []string{}
	}
	if notification.DeletedBy == nil {
		notification.DeletedBy = []string{}
	}
	r.notifications[notification.ID] = notification.Clone()
	r.mu.Unlock()

	return r.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpCreated, NotificationIDs: idStrings([]uuid.UUID{notification.ID})})
}

func (r *MemoryRepository) FindAll(ctx context.Context) ([]entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.failed(); err != nil {
		return nil, err
	}

	out := make([]entity.Notification, 0, len(r.notifications))
	for _, n := range r.notifications {
		out = append(out, n.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.failed(); err != nil {
		return nil, err
	}

	n, ok := r.notifications[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	clone := n.Clone()
	return &clone, nil
}

func (r *MemoryRepository) AddMark(ctx context.Context, id uuid.UUID, kind entity.MarkKind, userID string) error {
	return r.mutate(ctx, id, kind, func(members []string) []string {
		if slices.Contains(members, userID) {
			return members
		}
		return append(members, userID)
	})
}

func (r *MemoryRepository) RemoveMark(ctx context.Context, id uuid.UUID, kind entity.MarkKind, userID string) error {
	return r.mutate(ctx, id, kind, func(members []string) []string {
		return slices.DeleteFunc(members, func(m string) bool { return m == userID })
	})
}

func (r *MemoryRepository) AddMarks(ctx context.Context, ids []uuid.UUID, kind entity.MarkKind, userID string) error {
	r.mu.Lock()
	if err := r.failed(); err != nil {
		r.mu.Unlock()
		return err
	}
	var touched []uuid.UUID
	for _, id := range ids {
		n, ok := r.notifications[id]
		if !ok {
			continue
		}
		members := n.Members(kind)
		if !slices.Contains(members, userID) {
			n.SetMembers(kind, append(slices.Clone(members), userID))
			r.notifications[id] = n
		}
		touched = append(touched, id)
	}
	r.mu.Unlock()

	if len(touched) == 0 {
		return nil
	}
	return r.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpUpdated, NotificationIDs: idStrings(touched)})
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	if err := r.failed(); err != nil {
		r.mu.Unlock()
		return err
	}
	if _, ok := r.notifications[id]; !ok {
		r.mu.Unlock()
		return apperror.ErrNotFound
	}
	delete(r.notifications, id)
	r.mu.Unlock()

	return r.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpDeleted, NotificationIDs: idStrings([]uuid.UUID{id})})
}

func (r *MemoryRepository) Subscribe(ctx context.Context, fn SnapshotFunc) (func(), error) {
	return subscribe(ctx, r.feed, r.FindAll, fn)
}

func (r *MemoryRepository) mutate(ctx context.Context, id uuid.UUID, kind entity.MarkKind, apply func([]string) []string) error {
	r.mu.Lock()
	if err := r.failed(); err != nil {
		r.mu.Unlock()
		return err
	}
	n, ok := r.notifications[id]
	if !ok {
		r.mu.Unlock()
		return apperror.ErrNotFound
	}
	n.SetMembers(kind, apply(slices.Clone(n.Members(kind))))
	r.notifications[id] = n
	r.mu.Unlock()

	return r.feed.Publish(ctx, changefeed.Event{Op: changefeed.OpUpdated, NotificationIDs: idStrings([]uuid.UUID{id})})
}
