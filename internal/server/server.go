package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/satsquest/internal/api"
	"github.com/victornm/satsquest/internal/chat"
	"github.com/victornm/satsquest/internal/event"
	"github.com/victornm/satsquest/internal/ledger"
	"github.com/victornm/satsquest/internal/oracle"
	"github.com/victornm/satsquest/internal/presence"
	"github.com/victornm/satsquest/internal/quiz"
	"github.com/victornm/satsquest/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port         int32
		AllowOrigins []string
	}

	GRPC struct {
		Port int32
	}

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Oracle struct {
		APIKey      string
		Model       string
		Temperature float32
		Timeout     time.Duration
	}

	Quiz struct {
		TTL           time.Duration
		MaxVersions   int
		MaxCount      int
		MaxGenerating int
		DefaultCount  int
	}

	Presence struct {
		Spawn struct {
			MinX   float64
			MinY   float64
			Width  float64
			Height float64
		}
		SendBuffer int
	}

	Chat struct {
		Cost int64
	}
}

// DefaultConfig returns the values used for every key the config file leaves out.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Redis.Addrs = []string{"localhost:6379"}
	c.Redis.Prefix = "satsquest"
	c.Oracle.Model = "gemini-1.5-flash"
	c.Oracle.Temperature = 0.8
	c.Oracle.Timeout = 60 * time.Second
	c.Quiz.TTL = quiz.DefaultTTL
	c.Quiz.MaxVersions = quiz.DefaultMaxVersions
	c.Quiz.MaxCount = quiz.DefaultMaxCount
	c.Quiz.MaxGenerating = quiz.DefaultMaxGenerating
	c.Quiz.DefaultCount = 3
	c.Presence.Spawn.MinX = presence.DefaultSpawn.MinX
	c.Presence.Spawn.MinY = presence.DefaultSpawn.MinY
	c.Presence.Spawn.Width = presence.DefaultSpawn.Width
	c.Presence.Spawn.Height = presence.DefaultSpawn.Height
	c.Presence.SendBuffer = 64
	c.Chat.Cost = 1
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis  redis.UniversalClient
		oracle *oracle.Gemini
	}

	service struct {
		quiz   *quiz.Service
		ledger *ledger.Service
		chat   *chat.Service
		relay  *presence.Relay
	}

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	// Handlers may call the oracle, give them a little more than one oracle call.
	s.eb = event.NewBus(event.WithHandlerTimeout(c.Oracle.Timeout + 10*time.Second))

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initOracle(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initOracle() (err error) {
	s.infra.oracle, err = oracle.NewGemini(context.Background(), oracle.Config{
		APIKey:      s.c.Oracle.APIKey,
		Model:       s.c.Oracle.Model,
		Temperature: s.c.Oracle.Temperature,
		Timeout:     s.c.Oracle.Timeout,
	})
	return err
}

func (s *Server) initService() {
	s.service.quiz = quiz.NewService(quiz.Config{
		EventBus:      s.eb,
		Oracle:        s.infra.oracle,
		TTL:           s.c.Quiz.TTL,
		MaxVersions:   s.c.Quiz.MaxVersions,
		MaxCount:      s.c.Quiz.MaxCount,
		MaxGenerating: s.c.Quiz.MaxGenerating,
	})

	s.service.ledger = ledger.NewService(ledger.Config{
		Redis:  s.infra.redis,
		Prefix: s.c.Redis.Prefix,
	})

	s.service.chat = chat.NewService(chat.Config{
		Ledger: s.service.ledger,
		Oracle: s.infra.oracle,
		Cost:   s.c.Chat.Cost,
	})

	s.service.relay = presence.NewRelay(presence.Config{
		EventBus: s.eb,
		Spawn: presence.Rect{
			MinX:   s.c.Presence.Spawn.MinX,
			MinY:   s.c.Presence.Spawn.MinY,
			Width:  s.c.Presence.Spawn.Width,
			Height: s.c.Presence.Spawn.Height,
		},
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), corsMiddleware(s.c.HTTP.AllowOrigins))

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors()...)

	api.New(api.Config{
		HTTP:         e,
		GRPC:         s.grpc,
		EventBus:     s.eb,
		Quiz:         s.service.quiz,
		Chat:         s.service.chat,
		Relay:        s.service.relay,
		Redis:        s.infra.redis,
		PubsubPrefix: s.c.Redis.Prefix,
		AllowOrigins: s.c.HTTP.AllowOrigins,
		QuizCount:    s.c.Quiz.DefaultCount,
		SendBuffer:   s.c.Presence.SendBuffer,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return cors.New(c)
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if err := s.infra.oracle.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close oracle failed", "error", err)
	}
	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
