package redis

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goredis "github.com/redis/go-redis/v9"
)

// testClient connects to PANTOGNOSTIS_TEST_REDIS_ADDR or skips the test.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("PANTOGNOSTIS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PANTOGNOSTIS_TEST_REDIS_ADDR not set - skipping redis test")
	}
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: addr}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, testLogger())
	assert.Error(t, err)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	client := testClient(t)
	limiter := NewRateLimiter(client, "test_rl_"+uuid.NewString(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d should pass", i+1)
	}

	ok, retry, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	ok, _, err = limiter.Allow(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other clients have their own window")
}

func TestCodeStore_SingleUse(t *testing.T) {
	client := testClient(t)
	codes := NewCodeStore(client, testLogger())
	ctx := context.Background()
	subject := uuid.NewString() + "@example.com"

	require.NoError(t, codes.Save(ctx, "verify", subject, "1234", time.Minute))

	ok, err := codes.Consume(ctx, "verify", subject, "9999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = codes.Consume(ctx, "reset", subject, "1234")
	require.NoError(t, err)
	assert.False(t, ok, "purposes are separate")

	ok, err = codes.Consume(ctx, "verify", subject, "1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codes.Consume(ctx, "verify", subject, "1234")
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")
}

func TestCodeStore_WrongGuessesInvalidateCode(t *testing.T) {
	client := testClient(t)
	codes := NewCodeStore(client, testLogger())
	ctx := context.Background()
	subject := uuid.NewString() + "@example.com"

	require.NoError(t, codes.Save(ctx, "reset", subject, "4821", time.Minute))
	for i := 0; i < MaxCodeAttempts; i++ {
		ok, err := codes.Consume(ctx, "reset", subject, "0000")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	ok, err := codes.Consume(ctx, "reset", subject, "4821")
	require.NoError(t, err)
	assert.False(t, ok, "the correct code is rejected once the guesses are used up")

	ttl, err := client.TTL(ctx, attemptsKey("reset", subject)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-2), ttl, "attempts counter is removed with the code")

	require.NoError(t, codes.Save(ctx, "reset", subject, "7310", time.Minute))
	ok, err = codes.Consume(ctx, "reset", subject, "0000")
	require.NoError(t, err)
	assert.False(t, ok)
	ttl, err = client.TTL(ctx, attemptsKey("reset", subject)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "attempts counter expires with the code")

	ok, err = codes.Consume(ctx, "reset", subject, "7310")
	require.NoError(t, err)
	assert.True(t, ok, "a fresh code starts with a clean counter")
}
