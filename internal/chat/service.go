// Package chat answers free-form player questions with the oracle, charging the player's balance.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/victornm/satsquest/internal/errors"
	"github.com/victornm/satsquest/internal/ledger"
	"github.com/victornm/satsquest/internal/telemetry"
)

const DefaultCost = 1

type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Ledger *ledger.Service
	Oracle Oracle
	Cost   int64
}

type Service struct {
	ledger *ledger.Service
	oracle Oracle
	cost   int64
}

func NewService(c Config) *Service {
	s := &Service{
		ledger: c.Ledger,
		oracle: c.Oracle,
		cost:   c.Cost,
	}

	if s.cost <= 0 {
		s.cost = DefaultCost
	}

	return s
}

type AskRequest struct {
	PlayerID string
	Question string
	// FrontendBalance is the balance the client believes the player has.
	FrontendBalance int64
}

type AskResponse struct {
	Answer     string
	NewBalance int64
}

// Ask charges the player, then asks the oracle. The charge is refunded when the oracle fails.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	if strings.TrimSpace(req.PlayerID) == "" {
		return nil, errors.InvalidArgument("missing 'playerId'")
	}

	if strings.TrimSpace(req.Question) == "" {
		return nil, errors.InvalidArgument("missing 'question'")
	}

	if req.FrontendBalance < 0 {
		return nil, errors.InvalidArgument("invalid 'frontendBalance': must not be negative")
	}

	balance, err := s.ledger.Charge(ctx, ledger.ChargeRequest{
		PlayerID: req.PlayerID,
		Seed:     req.FrontendBalance,
		Cost:     s.cost,
	})
	if err != nil {
		telemetry.OracleQuestions.WithLabelValues("refused").Inc()
		return nil, err
	}

	answer, err := s.oracle.Complete(ctx, buildPrompt(req.Question))
	if err != nil {
		telemetry.OracleQuestions.WithLabelValues("failed").Inc()

		if _, rerr := s.ledger.Refund(ctx, req.PlayerID, s.cost); rerr != nil {
			slog.ErrorContext(ctx, "chat: refund failed", "player", req.PlayerID, "error", rerr)
		}

		return nil, errors.Unavailable(err, "the oracle is silent, try again later")
	}

	telemetry.OracleQuestions.WithLabelValues("answered").Inc()

	return &AskResponse{
		Answer:     strings.TrimSpace(answer),
		NewBalance: balance,
	}, nil
}

func buildPrompt(question string) string {
	return fmt.Sprintf(`You are the Oracle of a small educational game about Bitcoin and the Lightning Network.
Answer the player's question in at most three short sentences, in plain language.
If the question is unrelated to Bitcoin, Lightning or money, gently steer the player back to those topics.

Player's question: %s`, question)
}
