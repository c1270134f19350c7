package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFeed_PublishReachesEveryListener(t *testing.T) {
	feed := NewLocalFeed()
	ctx := context.Background()

	a, stopA, err := feed.Listen(ctx)
	require.NoError(t, err)
	defer stopA()
	b, stopB, err := feed.Listen(ctx)
	require.NoError(t, err)
	defer stopB()

	require.NoError(t, feed.Publish(ctx, Event{Op: OpCreated, NotificationIDs: []string{"n-1"}}))

	for _, ch := range []<-chan Event{a, b} {
		select {
		case event := <-ch:
			assert.Equal(t, OpCreated, event.Op)
			assert.Equal(t, []string{"n-1"}, event.NotificationIDs)
		case <-time.After(time.Second):
			t.Fatal("listener did not receive event")
		}
	}
}

func TestLocalFeed_BurstsCoalesce(t *testing.T) {
	feed := NewLocalFeed()
	ctx := context.Background()

	ch, stop, err := feed.Listen(ctx)
	require.NoError(t, err)
	defer stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, feed.Publish(ctx, Event{Op: OpUpdated}))
	}

	<-ch
	select {
	case <-ch:
		t.Fatal("expected burst to coalesce into one pending signal")
	default:
	}
}

func TestLocalFeed_StopClosesChannel(t *testing.T) {
	feed := NewLocalFeed()
	ctx := context.Background()

	ch, stop, err := feed.Listen(ctx)
	require.NoError(t, err)

	stop()
	stop()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, feed.Publish(ctx, Event{Op: OpDeleted}))
}

func TestNewRedisFeed_DefaultChannel(t *testing.T) {
	feed := NewRedisFeed(nil, "").(*redisFeed)
	assert.Equal(t, DefaultChannel, feed.channel)

	feed = NewRedisFeed(nil, "campus:notifications").(*redisFeed)
	assert.Equal(t, "campus:notifications", feed.channel)
}

func TestDecodeEvent(t *testing.T) {
	event := decodeEvent([]byte(`{"op":"deleted","notification_ids":["a","b"]}`))
	assert.Equal(t, Event{Op: OpDeleted, NotificationIDs: []string{"a", "b"}}, event)

	assert.Equal(t, Event{Op: OpUpdated}, decodeEvent([]byte("not json")))
}
