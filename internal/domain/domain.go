package domain

import (
	"slices"
	"time"
)

// Session is the server-side presence record of one connected client.
type Session struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Quiz is a set of multiple-choice questions on a topic.
type Quiz struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
}

// Question has exactly 4 distinct options, Correct is always one of them.
type Question struct {
	Text    string   `json:"q"`
	Options []string `json:"a"`
	Correct string   `json:"correct"`
}

const OptionsPerQuestion = 4

// Valid reports whether q is playable: non-empty text, 4 distinct options and a correct option among them.
func (q Question) Valid() bool {
	if q.Text == "" || len(q.Options) != OptionsPerQuestion {
		return false
	}

	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, ok := seen[o]; ok {
			return false
		}
		seen[o] = struct{}{}
	}

	_, ok := seen[q.Correct]
	return ok
}

func (q Question) Clone() Question {
	q.Options = slices.Clone(q.Options)
	return q
}

func (z Quiz) Clone() Quiz {
	qs := make([]Question, 0, len(z.Questions))
	for _, q := range z.Questions {
		qs = append(qs, q.Clone())
	}
	z.Questions = qs
	return z
}

// QuizCacheEntry is one generated version of a quiz for a cache key.
type QuizCacheEntry struct {
	Quiz      Quiz
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry must no longer be served at now.
func (e QuizCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
