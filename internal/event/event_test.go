package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/victornm/satsquest/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a single subscriber should receive only the event it subscribed to": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.joined"),
						eventWithName("session.left"),
					},
					subscribers: []subscriber{
						{
							name:        "relay",
							subscribeTo: []string{"session.joined"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined")}, out.received["relay"])
			},
		},

		"a single subscriber should receive all dispatched event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.joined"),
						eventWithName("session.joined"),
					},
					subscribers: []subscriber{
						{
							name:        "relay",
							subscribeTo: []string{"session.joined"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined"), eventWithName("session.joined")}, out.received["relay"])
			},
		},

		"an event should be dispatched to all subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.joined"),
					},
					subscribers: []subscriber{
						{
							name:        "relay",
							subscribeTo: []string{"session.joined"},
						},
						{
							name:        "pubsub",
							subscribeTo: []string{"session.joined"},
						},
						{
							name:        "metrics",
							subscribeTo: []string{"session.joined"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined")}, out.received["relay"])
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined")}, out.received["pubsub"])
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined")}, out.received["metrics"])
			},
		},

		"multiple events should be dispatched correctly multiple subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("session.joined"),
						eventWithName("session.left"),
						eventWithName("session.joined"),
						eventWithName("quiz.cached"),
					},
					subscribers: []subscriber{
						{
							name:        "relay",
							subscribeTo: []string{"session.joined"},
						},
						{
							name:        "pubsub",
							subscribeTo: []string{"session.joined", "session.left"},
						},
						{
							name:        "metrics",
							subscribeTo: []string{"quiz.cached", "session.left"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined"), eventWithName("session.joined")}, out.received["relay"])
				assert.ElementsMatch(t, []event.Event{eventWithName("session.joined"), eventWithName("session.joined"), eventWithName("session.left")}, out.received["pubsub"])
				assert.ElementsMatch(t, []event.Event{eventWithName("session.left"), eventWithName("quiz.cached")}, out.received["metrics"])
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}

func TestBus_HandlerContext(t *testing.T) {
	tests := map[string]struct {
		opts        []event.Option
		hasDeadline bool
	}{
		"default bus should give handlers a deadline": {
			hasDeadline: true,
		},
		"zero timeout should give handlers no deadline": {
			opts:        []event.Option{event.WithHandlerTimeout(0)},
			hasDeadline: false,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got bool
			b := event.NewBus(tt.opts...)
			b.Subscribe("e1", func(ctx context.Context, _ event.Event) error {
				_, got = ctx.Deadline()
				return nil
			})

			ctx, cancel := context.WithCancel(context.Background())
			b.Publish(ctx, eventWithName("e1"))
			cancel()
			b.Stop()

			assert.Equal(t, tt.hasDeadline, got)
		})
	}
}

func TestBus_HandlerFailuresAreIsolated(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(1), event.WithHandlerTimeout(time.Second))

	var (
		mu    sync.Mutex
		calls int
	)
	b.Subscribe("e1", func(context.Context, event.Event) error {
		panic("boom")
	})
	b.Subscribe("e1", func(context.Context, event.Event) error {
		return errors.New("failed")
	})
	b.Subscribe("e1", func(context.Context, event.Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), eventWithName("e1"))
	b.Publish(context.Background(), eventWithName("e1"))
	b.Stop()

	assert.Equal(t, 2, calls)
}

func TestBus_TryPublish(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(1))

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var (
		mu    sync.Mutex
		calls int
	)
	b.Subscribe("slow", func(context.Context, event.Event) error {
		started <- struct{}{}
		<-release
		return nil
	})
	b.Subscribe("fast", func(context.Context, event.Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	assert.True(t, b.TryPublish(context.Background(), eventWithName("slow")))
	<-started

	done := make(chan bool)
	go func() {
		done <- b.TryPublish(context.Background(), eventWithName("fast"))
	}()

	select {
	case ok := <-done:
		assert.False(t, ok, "handler skipped while the pool is full")
	case <-time.After(time.Second):
		t.Fatal("TryPublish waited for a pool slot")
	}

	close(release)
	b.Stop()

	assert.True(t, b.TryPublish(context.Background(), eventWithName("fast")))
	b.Stop()

	assert.Equal(t, 1, calls)
}
