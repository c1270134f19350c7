// Package changefeed signals notification store writes to live subscribers.
// A signal carries no state: receivers re-read a full snapshot.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "notifications:changed"

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
	OpExpired = "expired"
)

// Event describes the write that produced a signal.
type Event struct {
	Op              string   `json:"op"`
	NotificationIDs []string `json:"notification_ids"`
}

type Feed interface {
	Publish(ctx context.Context, event Event) error
	// Listen returns a channel that receives at least one value after every
	// Publish. Bursts may be coalesced into a single value. The returned func
	// stops delivery and closes the channel.
	Listen(ctx context.Context) (<-chan Event, func(), error)
}

// notify performs a non-blocking send, dropping the event when a signal is
// already pending for the receiver.
func notify(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
	}
}

// decodeEvent parses a remote payload. An unreadable payload still counts as
// a change signal.
func decodeEvent(payload []byte) Event {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{Op: OpUpdated}
	}
	return event
}

type localFeed struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]chan Event
}

// NewLocalFeed returns an in-process feed.
func NewLocalFeed() Feed {
	return &localFeed{listeners: make(map[uint64]chan Event)}
}

func (f *localFeed) Publish(ctx context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.listeners {
		notify(ch, event)
	}
	return nil
}

func (f *localFeed) Listen(ctx context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event, 1)

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = ch
	f.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}

type redisFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisFeed returns a feed backed by a redis pub/sub channel, so writes
// made by any server instance reach subscribers on every instance.
func NewRedisFeed(client *redis.Client, channel string) Feed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &redisFeed{client: client, channel: channel}
}

func (f *redisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

func (f *redisFeed) Listen(ctx context.Context) (<-chan Event, func(), error) {
	pubsub := f.client.Subscribe(ctx, f.channel)

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", f.channel, err)
	}

	ch := make(chan Event, 1)
	msgs := pubsub.Channel()
	done := make(chan struct{})

	go func() {
		defer close(ch)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				notify(ch, decodeEvent([]byte(msg.Payload)))
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}
	return ch, stop, nil
}
