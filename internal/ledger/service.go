// Package ledger keeps the per-player balance charged for oracle questions.
package ledger

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/satsquest/internal/errors"
)

// charge seeds the balance when the player is unknown, then decrements it by the cost if it is large enough.
// Returns {charged (0|1), balance}.
var charge = redis.NewScript(`
local balance = redis.call('GET', KEYS[1])
if not balance then
	balance = tonumber(ARGV[1])
	redis.call('SET', KEYS[1], balance)
else
	balance = tonumber(balance)
end

local cost = tonumber(ARGV[2])
if balance < cost then
	return {0, balance}
end

return {1, redis.call('DECRBY', KEYS[1], cost)}
`)

type Config struct {
	Redis  redis.UniversalClient
	Prefix string
}

type Service struct {
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	return &Service{
		redis:  c.Redis,
		prefix: c.Prefix,
	}
}

type ChargeRequest struct {
	PlayerID string
	// Seed is the balance tracked by the client, used only when the ledger has no entry for the player yet.
	Seed int64
	Cost int64
}

// Charge atomically takes Cost from the player's balance and returns the balance left.
// It fails with CodeResourceExhausted, carrying the current balance, when the balance is too low.
func (s *Service) Charge(ctx context.Context, req ChargeRequest) (int64, error) {
	res, err := charge.Run(ctx, s.redis, []string{s.getBalanceKey(req.PlayerID)}, req.Seed, req.Cost).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("ledger: charge: %w", err)
	}

	if len(res) != 2 {
		return 0, fmt.Errorf("ledger: charge: unexpected script result %v", res)
	}

	if res[0] == 0 {
		return res[1], errors.New(errors.CodeResourceExhausted,
			errors.WithMessagef("insufficient balance: need %d, have %d", req.Cost, res[1]),
			errors.WithDetail("currentBalance", res[1]),
		)
	}

	return res[1], nil
}

// Refund gives amount back to the player and returns the new balance.
func (s *Service) Refund(ctx context.Context, playerID string, amount int64) (int64, error) {
	b, err := s.redis.IncrBy(ctx, s.getBalanceKey(playerID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("ledger: refund: %w", err)
	}

	return b, nil
}

// Balance returns the player's balance, CodeNotFound when the player was never charged.
func (s *Service) Balance(ctx context.Context, playerID string) (int64, error) {
	b, err := s.redis.Get(ctx, s.getBalanceKey(playerID)).Int64()
	if stderrors.Is(err, redis.Nil) {
		return 0, errors.New(errors.CodeNotFound, errors.WithMessagef("no balance for player %s", playerID))
	}

	if err != nil {
		return 0, fmt.Errorf("ledger: balance: %w", err)
	}

	return b, nil
}

func (s *Service) getBalanceKey(player string) string {
	return fmt.Sprintf("%s:balance:%s", s.prefix, player)
}
