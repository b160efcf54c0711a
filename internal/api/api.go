package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/satsquest/internal/chat"
	"github.com/victornm/satsquest/internal/domain"
	"github.com/victornm/satsquest/internal/event"
	"github.com/victornm/satsquest/internal/presence"
	"github.com/victornm/satsquest/internal/quiz"
)

const (
	defaultQuizCount  = 3
	defaultSendBuffer = 64
)

type Config struct {
	HTTP         *gin.Engine
	GRPC         *grpc.Server
	EventBus     *event.Bus
	Quiz         *quiz.Service
	Chat         *chat.Service
	Relay        *presence.Relay
	Redis        Redis
	PubsubPrefix string

	// AllowOrigins is checked on websocket upgrades. Empty allows every origin.
	AllowOrigins []string
	// QuizCount is used when a quiz request has no count.
	QuizCount int
	// SendBuffer is the number of presence messages queued per connection before it is dropped.
	SendBuffer int
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	qs    *quiz.Service
	cs    *chat.Service
	relay *presence.Relay

	redis  Redis
	prefix string

	upgrader   websocket.Upgrader
	quizCount  int
	sendBuffer int
}

func New(c Config) *API {
	a := &API{
		qs:         c.Quiz,
		cs:         c.Chat,
		relay:      c.Relay,
		redis:      c.Redis,
		prefix:     c.PubsubPrefix,
		quizCount:  c.QuizCount,
		sendBuffer: c.SendBuffer,
	}

	if a.quizCount <= 0 {
		a.quizCount = defaultQuizCount
	}
	if a.sendBuffer <= 0 {
		a.sendBuffer = defaultSendBuffer
	}

	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(c.AllowOrigins),
	}

	// HTTP APIs
	g := c.HTTP.Group("/api")
	g.GET("", a.Hello)
	g.GET("/quiz", a.GetQuiz)
	g.GET("/quiz/generate", a.GenerateQuiz)
	g.POST("/ask-oracle", a.AskOracle)
	c.HTTP.GET("/ws", a.ServePresence)

	// gRPC APIs
	if c.GRPC != nil {
		hs := health.NewServer()
		hs.SetServingStatus("quiz", healthpb.HealthCheckResponse_SERVING)
		hs.SetServingStatus("presence", healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(c.GRPC, hs)
	}

	// Register event handlers
	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameSessionJoined, func(ctx context.Context, e event.Event) error {
			return a.PublishSessionJoined(ctx, e.(domain.EventSessionJoined))
		})
		c.EventBus.Subscribe(domain.EventNameSessionLeft, func(ctx context.Context, e event.Event) error {
			return a.PublishSessionLeft(ctx, e.(domain.EventSessionLeft))
		})
		c.EventBus.Subscribe(domain.EventNameQuizCached, func(ctx context.Context, e event.Event) error {
			return a.PublishQuizCached(ctx, e.(domain.EventQuizCached))
		})
	}

	return a
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}

		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
