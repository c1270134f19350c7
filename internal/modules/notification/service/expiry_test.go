package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/changefeed"
	notifRepo "uniconnect.app/campus/internal/modules/notification/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestExpirySweep_SignalsNewlyExpired(t *testing.T) {
	feed := changefeed.NewLocalFeed()
	repo := notifRepo.NewMemoryRepository(feed)
	ctx := context.Background()

	clock := &fakeClock{now: testNow}
	sweep := newExpirySweep(repo, feed, zap.NewNop(), "@every 1m", clock.Now)

	soon := testNow.Add(30 * time.Second)
	later := testNow.Add(time.Hour)
	past := testNow.Add(-time.Hour)
	expiring := seed(t, repo, entity.Notification{ExpiresAt: &soon})
	seed(t, repo, entity.Notification{ExpiresAt: &later})
	seed(t, repo, entity.Notification{ExpiresAt: &past})
	seed(t, repo, entity.Notification{})

	events, stop, err := feed.Listen(ctx)
	require.NoError(t, err)
	defer stop()

	clock.Set(testNow.Add(time.Minute))
	require.NoError(t, sweep.Execute(ctx))

	select {
	case event := <-events:
		assert.Equal(t, changefeed.OpExpired, event.Op)
		assert.Equal(t, []string{expiring.ID.String()}, event.NotificationIDs)
	case <-time.After(time.Second):
		t.Fatal("expected an expiry signal")
	}

	// Nothing new expired since the previous run.
	clock.Set(testNow.Add(2 * time.Minute))
	require.NoError(t, sweep.Execute(ctx))
	select {
	case event := <-events:
		t.Fatalf("unexpected signal %+v", event)
	default:
	}
}

func TestExpirySweep_RefreshesLiveInbox(t *testing.T) {
	feed := changefeed.NewLocalFeed()
	repo := notifRepo.NewMemoryRepository(feed)
	ctx := context.Background()

	clock := &fakeClock{now: testNow}
	inbox := NewInbox(repo, zap.NewNop(), WithClock(clock.Now))
	defer inbox.DisposeAll()
	sweep := newExpirySweep(repo, feed, zap.NewNop(), "", clock.Now)

	soon := testNow.Add(time.Second)
	seed(t, repo, entity.Notification{ExpiresAt: &soon})

	var got snapshots
	_, err := inbox.Subscribe(ctx, student300, got.record)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(got.last()) == 1 }, time.Second, 5*time.Millisecond)

	clock.Set(testNow.Add(time.Minute))
	require.NoError(t, sweep.Execute(ctx))
	require.Eventually(t, func() bool {
		last := got.last()
		return last != nil && len(last) == 0
	}, time.Second, 5*time.Millisecond)
}
