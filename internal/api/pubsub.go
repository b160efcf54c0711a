package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/victornm/satsquest/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	SessionLeft struct {
		ID string `json:"id"`
	}

	QuizCached struct {
		Key       string `json:"key"`
		QuizID    string `json:"quizId"`
		Topic     string `json:"topic"`
		Questions int    `json:"questions"`
		Versions  int    `json:"versions"`
	}
)

// PublishSessionJoined mirrors a join to the presence channel for observers outside the game.
func (a *API) PublishSessionJoined(ctx context.Context, e domain.EventSessionJoined) error {
	return a.publishNotification(ctx, a.presenceChannel(), e.Name(), e.Session)
}

func (a *API) PublishSessionLeft(ctx context.Context, e domain.EventSessionLeft) error {
	return a.publishNotification(ctx, a.presenceChannel(), e.Name(), SessionLeft{ID: e.SessionID})
}

func (a *API) PublishQuizCached(ctx context.Context, e domain.EventQuizCached) error {
	return a.publishNotification(ctx, a.quizChannel(), e.Name(), QuizCached{
		Key:       e.Key,
		QuizID:    e.Quiz.ID,
		Topic:     e.Quiz.Topic,
		Questions: len(e.Quiz.Questions),
		Versions:  e.Versions,
	})
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) presenceChannel() string {
	return fmt.Sprintf("%s:presence", a.prefix)
}

func (a *API) quizChannel() string {
	return fmt.Sprintf("%s:quiz", a.prefix)
}
