package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/victornm/satsquest/internal/domain"
	"github.com/victornm/satsquest/internal/errors"
	"github.com/victornm/satsquest/internal/event"
	"github.com/victornm/satsquest/internal/telemetry"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaxVersions = 10
	DefaultMaxCount    = 10

	// DefaultMaxGenerating bounds the background generations running at the same time.
	DefaultMaxGenerating = 16
)

// Oracle completes a prompt. Every error is treated the same way: the generation is abandoned.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	EventBus    *event.Bus
	Oracle      Oracle
	TTL         time.Duration
	MaxVersions int

	// MaxCount is capped at DefaultMaxCount.
	MaxCount      int
	MaxGenerating int
	Fallbacks     []domain.Quiz
	Now           func() time.Time
}

// Service serves quizzes from an in-memory versioned cache. A miss is answered with a fallback
// quiz right away, and the requested quiz is generated in the background for the next requests.
type Service struct {
	eb        *event.Bus
	oracle    Oracle
	cache     *cache
	ttl       time.Duration
	maxCount  int
	fallbacks []domain.Quiz
	now       func() time.Time

	// inflight collapses concurrent generations of the same cache key into one oracle call.
	inflight singleflight.Group

	// generating holds one slot per background generation, a miss that finds it full generates nothing.
	generating chan struct{}
}

func NewService(c Config) *Service {
	s := &Service{
		eb:        c.EventBus,
		oracle:    c.Oracle,
		ttl:       c.TTL,
		maxCount:  c.MaxCount,
		fallbacks: c.Fallbacks,
		now:       c.Now,
	}

	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.maxCount > DefaultMaxCount {
		slog.Warn("quiz: max count above the limit, capped", "max_count", s.maxCount, "limit", DefaultMaxCount)
	}
	if s.maxCount <= 0 || s.maxCount > DefaultMaxCount {
		s.maxCount = DefaultMaxCount
	}
	if len(s.fallbacks) == 0 {
		s.fallbacks = DefaultFallbacks()
	}
	if s.now == nil {
		s.now = time.Now
	}

	maxVersions := c.MaxVersions
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	s.cache = newCache(maxVersions)

	maxGenerating := c.MaxGenerating
	if maxGenerating <= 0 {
		maxGenerating = DefaultMaxGenerating
	}
	s.generating = make(chan struct{}, maxGenerating)

	s.eb.Subscribe(domain.EventNameQuizMissed, func(ctx context.Context, e event.Event) error {
		defer func() { <-s.generating }()

		m := e.(domain.EventQuizMissed)
		return s.GenerateAndCache(ctx, GenerateRequest{Topic: m.Topic, Count: m.Count})
	})

	return s
}

type GetQuizRequest struct {
	Topic string
	// Count is the number of questions wanted, between 1 and the configured maximum.
	Count int
}

// GetQuiz returns a copy of the newest valid cached quiz for the request, or a fallback quiz cut to
// Count questions on a miss. It never waits for the oracle. The options of every returned question are shuffled.
func (s *Service) GetQuiz(ctx context.Context, req GetQuizRequest) (*domain.Quiz, error) {
	if req.Topic == "" {
		return nil, errors.InvalidArgument("missing 'topic'")
	}

	if req.Count < 1 || req.Count > s.maxCount {
		return nil, errors.InvalidArgument("invalid 'count': must be a number between 1 and %d", s.maxCount)
	}

	key := CacheKey(req.Topic, req.Count)

	if e, ok := s.cache.newest(key, s.now()); ok {
		telemetry.QuizRequests.WithLabelValues("hit").Inc()
		slog.DebugContext(ctx, "quiz: cache hit", "key", key, "fetched_at", e.FetchedAt)

		z := e.Quiz.Clone()
		shuffleOptions(z.Questions)
		return &z, nil
	}

	telemetry.QuizRequests.WithLabelValues("miss").Inc()

	z := s.fallbacks[rand.IntN(len(s.fallbacks))].Clone()
	if len(z.Questions) > req.Count {
		z.Questions = z.Questions[:req.Count]
	}
	shuffleOptions(z.Questions)

	slog.InfoContext(ctx, "quiz: cache miss, serving fallback", "key", key, "fallback", z.ID)

	s.triggerGeneration(ctx, key, req)

	return &z, nil
}

// triggerGeneration starts a background generation for req without waiting. When too many
// generations are running already, or the event bus is saturated, the miss generates nothing
// and a later miss tries again.
func (s *Service) triggerGeneration(ctx context.Context, key string, req GetQuizRequest) {
	select {
	case s.generating <- struct{}{}:
	default:
		telemetry.QuizGenerations.WithLabelValues("skipped").Inc()
		slog.WarnContext(ctx, "quiz: too many generations running, skipped", "key", key)
		return
	}

	ok := s.eb.TryPublish(ctx, domain.EventQuizMissed{
		Topic: req.Topic,
		Count: req.Count,
	})
	if !ok {
		<-s.generating
		telemetry.QuizGenerations.WithLabelValues("skipped").Inc()
	}
}

type GenerateRequest struct {
	Topic string
	Count int
}

// GenerateAndCache asks the oracle for a quiz and caches the valid part of the answer.
// Nothing is cached when the oracle fails or no question survives validation.
func (s *Service) GenerateAndCache(ctx context.Context, req GenerateRequest) error {
	key := CacheKey(req.Topic, req.Count)

	_, err, shared := s.inflight.Do(key, func() (any, error) {
		return nil, s.generate(ctx, key, req)
	})
	if shared {
		slog.DebugContext(ctx, "quiz: joined in-flight generation", "key", key)
	}

	return err
}

func (s *Service) generate(ctx context.Context, key string, req GenerateRequest) error {
	text, err := s.oracle.Complete(ctx, buildPrompt(req.Topic, req.Count))
	if err != nil {
		telemetry.QuizGenerations.WithLabelValues("failed").Inc()
		return fmt.Errorf("quiz: generate %s: %w", key, err)
	}

	questions, err := ParseQuestions(text)
	if err != nil {
		telemetry.QuizGenerations.WithLabelValues("rejected").Inc()
		return errors.Unavailable(err, "quiz: malformed oracle output for %s", key)
	}

	if len(questions) == 0 {
		telemetry.QuizGenerations.WithLabelValues("rejected").Inc()
		return errors.Unavailable(nil, "quiz: no valid question in oracle output for %s", key)
	}

	if len(questions) > req.Count {
		questions = questions[:req.Count]
	}

	if len(questions) < req.Count {
		slog.WarnContext(ctx, "quiz: oracle returned fewer valid questions than requested",
			"key", key,
			"requested", req.Count,
			"valid", len(questions),
		)
	}

	shuffleOptions(questions)

	now := s.now()
	z := domain.Quiz{
		ID:        uuid.NewString(),
		Topic:     req.Topic,
		Questions: questions,
	}

	n := s.cache.insert(key, domain.QuizCacheEntry{
		Quiz:      z,
		FetchedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})

	telemetry.QuizGenerations.WithLabelValues("cached").Inc()
	slog.InfoContext(ctx, "quiz: cached new version", "key", key, "versions", n, "quiz", z.ID)

	s.eb.Publish(ctx, domain.EventQuizCached{
		Key:      key,
		Quiz:     z.Clone(),
		Versions: n,
	})

	return nil
}

// shuffleOptions shuffles the options of every question independently, in place.
func shuffleOptions(qs []domain.Question) {
	for _, q := range qs {
		rand.Shuffle(len(q.Options), func(i, j int) {
			q.Options[i], q.Options[j] = q.Options[j], q.Options[i]
		})
	}
}
