package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/dto"
	notifRepo "uniconnect.app/campus/internal/modules/notification/repository"
	search "uniconnect.app/campus/internal/modules/search/service"
	"uniconnect.app/campus/pkg/apperror"
	"uniconnect.app/campus/pkg/metrics"
)

const searchLimit = 50

// Inbox is the per-viewer view over the shared notification feed. One Inbox
// owns the registry of the subscriptions opened through it; DisposeAll
// cancels them on sign-out or shutdown.
type Inbox struct {
	repo        notifRepo.NotificationRepository
	index       search.NotificationIndex
	log         *zap.Logger
	now         func() time.Time
	studentRole string

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
}

type InboxOption func(*Inbox)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) InboxOption {
	return func(s *Inbox) { s.now = now }
}

// WithStudentRole sets the user type that academic level targeting applies to.
func WithStudentRole(role string) InboxOption {
	return func(s *Inbox) {
		if role != "" {
			s.studentRole = role
		}
	}
}

// WithSearchIndex enables Search.
func WithSearchIndex(index search.NotificationIndex) InboxOption {
	return func(s *Inbox) { s.index = index }
}

func NewInbox(repo notifRepo.NotificationRepository, log *zap.Logger, opts ...InboxOption) *Inbox {
	s := &Inbox{
		repo:        repo,
		log:         log,
		now:         time.Now,
		studentRole: DefaultStudentRole,
		subs:        make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Visible reports whether n belongs in viewer's inbox right now: it is
// targeted at the viewer, not soft deleted by them, and not expired.
func (s *Inbox) Visible(n *entity.Notification, viewer entity.Viewer) bool {
	if !isVisibleTo(n, viewer, s.studentRole) {
		return false
	}
	if n.IsDeletedBy(viewer.ID) {
		return false
	}
	return !n.Expired(s.now())
}

// view filters, annotates and orders a raw snapshot for viewer.
func (s *Inbox) view(all []entity.Notification, viewer entity.Viewer) []dto.AnnotatedNotification {
	out := make([]dto.AnnotatedNotification, 0, len(all))
	for i := range all {
		if !s.Visible(&all[i], viewer) {
			continue
		}
		out = append(out, dto.Annotate(all[i], viewer.ID))
	}
	sortNewest(out)
	return out
}

// GetAll returns the viewer's inbox, newest first. On a store failure the
// list is empty, never nil, and the error is returned alongside it.
func (s *Inbox) GetAll(ctx context.Context, viewer entity.Viewer) ([]dto.AnnotatedNotification, error) {
	all, err := s.repo.FindAll(ctx)
	s.record("get_all", err)
	if err != nil {
		s.log.Warn("failed to load notifications", zap.String("viewer_id", viewer.ID), zap.Error(err))
		return []dto.AnnotatedNotification{}, err
	}
	return s.view(all, viewer), nil
}

// Get returns one notification if it is in the viewer's inbox.
func (s *Inbox) Get(ctx context.Context, viewer entity.Viewer, id uuid.UUID) (*dto.AnnotatedNotification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.record("get", err)
		return nil, err
	}
	if !s.Visible(n, viewer) {
		s.record("get", apperror.ErrNotFound)
		return nil, apperror.ErrNotFound
	}
	s.record("get", nil)
	annotated := dto.Annotate(*n, viewer.ID)
	return &annotated, nil
}

// Search returns the visible notifications whose text matches query, in
// index relevance order.
func (s *Inbox) Search(ctx context.Context, viewer entity.Viewer, query string) ([]dto.AnnotatedNotification, error) {
	if s.index == nil {
		return []dto.AnnotatedNotification{}, apperror.New(http.StatusServiceUnavailable, "search is not configured", apperror.ErrStoreUnavailable)
	}

	ids, err := s.index.SearchNotificationIDs(query, searchLimit)
	if err != nil {
		s.log.Warn("notification search failed", zap.String("viewer_id", viewer.ID), zap.Error(err))
		return []dto.AnnotatedNotification{}, apperror.New(http.StatusServiceUnavailable, "search is unavailable", apperror.ErrStoreUnavailable)
	}

	out := make([]dto.AnnotatedNotification, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		n, err := s.Get(ctx, viewer, id)
		if err != nil {
			if apperror.Kind(err) == apperror.KindNotFound {
				continue
			}
			return []dto.AnnotatedNotification{}, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// Subscribe delivers the viewer's inbox to onChange now and after every
// store change. Calls for one subscription never overlap. A store failure is
// delivered as an empty list and the subscription stays open.
//
// The returned func cancels the subscription: once it returns no new
// onChange call starts. It is safe to call more than once and from inside
// onChange.
func (s *Inbox) Subscribe(ctx context.Context, viewer entity.Viewer, onChange func([]dto.AnnotatedNotification)) (func(), error) {
	sub, err := s.Open(ctx, viewer, onChange)
	if err != nil {
		return func() {}, err
	}
	return sub.Cancel, nil
}

// Open is Subscribe returning the subscription handle, whose Done channel
// closes when the subscription ends for any reason: Cancel, DisposeAll, or
// ctx being done.
func (s *Inbox) Open(ctx context.Context, viewer entity.Viewer, onChange func([]dto.AnnotatedNotification)) (*Subscription, error) {
	sub := &Subscription{inbox: s, viewer: viewer, onChange: onChange, done: make(chan struct{})}

	// Registered before the store subscription opens so a concurrent
	// DisposeAll cannot miss it.
	s.mu.Lock()
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	s.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()

	stop, err := s.repo.Subscribe(ctx, sub.deliver)
	s.record("subscribe", err)
	if err != nil {
		sub.Cancel()
		s.log.Warn("failed to open notification subscription",
			zap.String("viewer_id", viewer.ID),
			zap.Error(err),
		)
		onChange([]dto.AnnotatedNotification{})
		return nil, err
	}
	sub.setStop(stop)

	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// ActiveSubscriptions reports how many subscriptions are open.
func (s *Inbox) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// DisposeAll cancels every subscription opened through this inbox.
func (s *Inbox) DisposeAll() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	if len(subs) > 0 {
		s.log.Info("disposed notification subscriptions", zap.Int("count", len(subs)))
	}
}

func (s *Inbox) MarkRead(ctx context.Context, id uuid.UUID, viewerID string) error {
	err := s.repo.AddMark(ctx, id, entity.MarkRead, viewerID)
	return s.mutationResult("mark_read", id, viewerID, err)
}

func (s *Inbox) MarkUnread(ctx context.Context, id uuid.UUID, viewerID string) error {
	err := s.repo.RemoveMark(ctx, id, entity.MarkRead, viewerID)
	return s.mutationResult("mark_unread", id, viewerID, err)
}

// MarkAllRead marks every unread entry of current as read in one batch and
// returns how many entries it covered. Only current is considered:
// notifications that arrived after the caller took that snapshot stay unread.
func (s *Inbox) MarkAllRead(ctx context.Context, viewer entity.Viewer, current []dto.AnnotatedNotification) (int, error) {
	seen := make(map[uuid.UUID]struct{}, len(current))
	ids := make([]uuid.UUID, 0, len(current))
	for _, n := range current {
		if n.Read {
			continue
		}
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		ids = append(ids, n.ID)
	}
	if len(ids) == 0 {
		s.record("mark_all_read", nil)
		return 0, nil
	}

	err := s.repo.AddMarks(ctx, ids, entity.MarkRead, viewer.ID)
	s.record("mark_all_read", err)
	if err != nil {
		s.log.Warn("failed to mark notifications read",
			zap.String("viewer_id", viewer.ID),
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
		return 0, err
	}
	return len(ids), nil
}

// SoftDelete hides the notification from viewerID only.
func (s *Inbox) SoftDelete(ctx context.Context, id uuid.UUID, viewerID string) error {
	err := s.repo.AddMark(ctx, id, entity.MarkDeleted, viewerID)
	return s.mutationResult("soft_delete", id, viewerID, err)
}

// HardDelete removes the notification for everyone. Only its creator may
// do this.
func (s *Inbox) HardDelete(ctx context.Context, id uuid.UUID, requesterID string) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.mutationResult("hard_delete", id, requesterID, err)
	}
	if n.CreatedBy != requesterID {
		return s.mutationResult("hard_delete", id, requesterID, apperror.ErrPermissionDenied)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mutationResult("hard_delete", id, requesterID, err)
	}
	if s.index != nil {
		if err := s.index.DeleteNotification(id.String()); err != nil {
			s.log.Warn("failed to remove notification from search index", zap.String("notification_id", id.String()), zap.Error(err))
		}
	}
	return s.mutationResult("hard_delete", id, requesterID, nil)
}

func (s *Inbox) mutationResult(op string, id uuid.UUID, userID string, err error) error {
	s.record(op, err)
	if err != nil {
		s.log.Debug("notification mutation failed",
			zap.String("op", op),
			zap.String("notification_id", id.String()),
			zap.String("viewer_id", userID),
			zap.Error(err),
		)
	}
	return err
}

func (s *Inbox) record(op string, err error) {
	result := "ok"
	if err != nil {
		result = apperror.Kind(err)
	}
	metrics.RecordInboxOperation(op, result)
}

// Subscription is one live inbox subscription.
type Subscription struct {
	id       uint64
	inbox    *Inbox
	viewer   entity.Viewer
	onChange func([]dto.AnnotatedNotification)
	done     chan struct{}

	stopMu sync.Mutex
	stop   func()

	mu        sync.Mutex
	cancelled atomic.Bool
	once      sync.Once
}

// Done is closed once the subscription has been cancelled.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// setStop attaches the store side of the subscription, releasing it at once
// when the subscription was cancelled while the store was still opening.
func (sub *Subscription) setStop(stop func()) {
	sub.stopMu.Lock()
	if !sub.cancelled.Load() {
		sub.stop = stop
		stop = nil
	}
	sub.stopMu.Unlock()
	if stop != nil {
		stop()
	}
}

func (sub *Subscription) deliver(all []entity.Notification, err error) {
	if sub.cancelled.Load() {
		return
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.cancelled.Load() {
		return
	}

	list := []dto.AnnotatedNotification{}
	if err != nil {
		sub.inbox.log.Warn("notification subscription snapshot failed",
			zap.Uint64("subscription_id", sub.id),
			zap.String("viewer_id", sub.viewer.ID),
			zap.Error(err),
		)
	} else {
		list = sub.inbox.view(all, sub.viewer)
	}
	metrics.ObserveSnapshot(len(list))
	sub.onChange(list)
}

// Cancel ends the subscription. Once it returns no new onChange call starts.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.stopMu.Lock()
		sub.cancelled.Store(true)
		stop := sub.stop
		sub.stopMu.Unlock()
		if stop != nil {
			stop()
		}

		s := sub.inbox
		s.mu.Lock()
		_, registered := s.subs[sub.id]
		delete(s.subs, sub.id)
		s.mu.Unlock()
		if registered {
			metrics.ActiveSubscriptions.Dec()
		}
		close(sub.done)
	})
}
