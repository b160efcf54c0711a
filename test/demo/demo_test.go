//go:build integration_test

package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/satsquest/internal/api"
	"github.com/victornm/satsquest/internal/domain"
	"github.com/victornm/satsquest/internal/presence"
)

const (
	httpAddr = "localhost:8080"
	grpcAddr = "localhost:9090"
	prefix   = "satsquest"
)

func TestHealth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hc := healthpb.NewHealthClient(conn)
	for _, svc := range []string{"quiz", "presence"} {
		resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status, svc)
	}
}

func TestQuiz(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	wg := new(sync.WaitGroup)
	subscribe(t, makeRedis(t), wg, prefix+":quiz")

	// The first request of a topic is answered from the fallbacks, later ones from the cache
	// once generation finished. Many players asking together must not break anything.
	var eg errgroup.Group
	for i := 0; i < 5; i++ {
		eg.Go(func() error {
			q, err := getQuiz(ctx, "mempool", 3)
			if err != nil {
				return err
			}
			if len(q.Questions) == 0 || len(q.Questions) > 3 {
				return fmt.Errorf("got %d questions", len(q.Questions))
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	time.Sleep(30 * time.Second)

	q, err := getQuiz(ctx, "mempool", 3)
	require.NoError(t, err)
	t.Logf("quiz %q:\n%s", q.Topic, formatQuiz(q))
}

func TestPresence(t *testing.T) {
	wg := new(sync.WaitGroup)
	subscribe(t, makeRedis(t), wg, prefix+":presence")

	a := dial(t)
	snapshot := read(t, a)
	require.Equal(t, presence.MessageTypeCurrentPlayers, snapshot.Type)

	b := dial(t)
	read(t, b)

	joined := read(t, a)
	require.Equal(t, presence.MessageTypeNewPlayer, joined.Type)

	require.NoError(t, b.WriteJSON(map[string]any{"type": "playerMovement", "x": 120.5, "y": 80}))
	moved := read(t, a)
	require.Equal(t, presence.MessageTypePlayerMoved, moved.Type)
	assert.Equal(t, joined.Player.ID, moved.Player.ID)

	require.NoError(t, b.Close())
	left := read(t, a)
	require.Equal(t, presence.MessageTypePlayerDisconnected, left.Type)
	assert.Equal(t, joined.Player.ID, left.ID)
}

func getQuiz(ctx context.Context, topic string, count int) (*domain.Quiz, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/quiz?topic=%s&count=%d", httpAddr, topic, count), nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get quiz: status %d", resp.StatusCode)
	}

	var q domain.Quiz
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

func dial(t *testing.T) *websocket.Conn {
	c, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", httpAddr), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func read(t *testing.T, c *websocket.Conn) presence.Message {
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))

	var m presence.Message
	require.NoError(t, c.ReadJSON(&m))
	return m
}

func subscribe(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, channel string) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := rc.Subscribe(ctx, channel)

	wg.Add(1)
	t.Cleanup(func() {
		cancel()
		sub.Close()
		wg.Wait()
	})

	go func() {
		defer wg.Done()

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				return
			}

			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameQuizCached:
				var q api.QuizCached
				if err := json.Unmarshal(n.Data, &q); err != nil {
					t.Logf("unmarshal quiz cached: %v", err)
					continue
				}
				t.Logf("quiz cached: key=%s versions=%d questions=%d", q.Key, q.Versions, q.Questions)
			default:
				t.Logf("%s: %s", n.Event, n.Data)
			}
		}
	}()
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func formatQuiz(q *domain.Quiz) string {
	var s string
	for _, qq := range q.Questions {
		s += fmt.Sprintf("%s %v (%s)\n", qq.Text, qq.Options, qq.Correct)
	}
	return s
}
