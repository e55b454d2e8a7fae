package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// MaxCodeAttempts is how many wrong guesses invalidate a stored code.
const MaxCodeAttempts = 5

// consumeScript deletes the code when it matches. A miss increments the
// attempts counter, which expires with the code, and the code is deleted
// once ARGV[2] misses have been counted.
var consumeScript = goredis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
	return 0
end
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
local misses = redis.call("INCR", KEYS[2])
if misses == 1 then
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl > 0 then
		redis.call("PEXPIRE", KEYS[2], ttl)
	end
end
if misses >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1], KEYS[2])
end
return 0`)

// CodeStore keeps one-time verification and reset codes with a TTL.
type CodeStore struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewCodeStore creates a Redis code store.
func NewCodeStore(client *goredis.Client, logger *slog.Logger) *CodeStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeStore{client: client, logger: logger.With(slog.String("component", "code_store"))}
}

func codeKey(purpose, subject string) string {
	return fmt.Sprintf("code:%s:%s", purpose, subject)
}

func attemptsKey(purpose, subject string) string {
	return fmt.Sprintf("code_attempts:%s:%s", purpose, subject)
}

// Save stores code for subject, replacing any previous code for the same
// purpose and clearing its miss counter.
func (s *CodeStore) Save(ctx context.Context, purpose, subject, code string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, codeKey(purpose, subject), code, ttl)
		pipe.Del(ctx, attemptsKey(purpose, subject))
		return nil
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save code",
			slog.String("error", err.Error()),
			slog.String("purpose", purpose))
		return fmt.Errorf("failed to save %s code: %w", purpose, err)
	}
	return nil
}

// Consume reports whether code matches the stored one and deletes it on a
// match or after MaxCodeAttempts wrong guesses.
func (s *CodeStore) Consume(ctx context.Context, purpose, subject, code string) (bool, error) {
	keys := []string{codeKey(purpose, subject), attemptsKey(purpose, subject)}
	n, err := consumeScript.Run(ctx, s.client, keys, code, MaxCodeAttempts).Int()
	if err != nil && !errors.Is(err, goredis.Nil) {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to consume code",
			slog.String("error", err.Error()),
			slog.String("purpose", purpose))
		return false, fmt.Errorf("failed to consume %s code: %w", purpose, err)
	}
	return n > 0, nil
}
