package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/victornm/satsquest/internal/domain"
	"github.com/victornm/satsquest/internal/errors"
)

const (
	DefaultGenerateCount = 5
	MaxGenerateCount     = 20
)

type GenerateQuizRequest struct {
	Topic string
	// Count is the number of questions wanted, between 1 and MaxGenerateCount.
	Count int
}

// GenerateQuiz asks the oracle for a quiz and waits for it. The result bypasses the cache and may
// have fewer questions than requested when some of the oracle output is malformed.
func (s *Service) GenerateQuiz(ctx context.Context, req GenerateQuizRequest) (*domain.Quiz, error) {
	if req.Topic == "" {
		return nil, errors.InvalidArgument("missing 'topic'")
	}

	if req.Count < 1 || req.Count > MaxGenerateCount {
		return nil, errors.InvalidArgument("invalid 'numQuestions': must be a number between 1 and %d", MaxGenerateCount)
	}

	text, err := s.oracle.Complete(ctx, buildListPrompt(req.Topic, req.Count))
	if err != nil {
		return nil, errors.Unavailable(err, "failed to generate quiz: oracle unavailable")
	}

	questions, err := ParseQuestionList(text)
	if err != nil {
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("failed to parse quiz data from the oracle response"),
			errors.WithCause(err),
		)
	}

	if len(questions) == 0 {
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("no valid question in the oracle response"),
		)
	}

	if len(questions) > req.Count {
		questions = questions[:req.Count]
	}

	if len(questions) < req.Count {
		slog.WarnContext(ctx, "quiz: oracle returned fewer valid questions than requested",
			"topic", req.Topic,
			"requested", req.Count,
			"valid", len(questions),
		)
	}

	return &domain.Quiz{
		ID:        fmt.Sprintf("quiz_%s", uuid.NewString()),
		Topic:     req.Topic,
		Questions: questions,
	}, nil
}
