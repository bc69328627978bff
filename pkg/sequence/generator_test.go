package sequence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"bantudesa/pkg/config"
)

func TestFormatDailyCode(t *testing.T) {
	code, err := formatDailyCode("DON", "250101", 37)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^DON-250101-011[A-Z2-9]{2}$`), code)
}

func TestTimestampGenerator(t *testing.T) {
	g := NewTimestampGenerator("DON")
	g.now = func() time.Time { return time.UnixMilli(1735689600000) }

	a, err := g.NextDonationReference(context.Background())
	require.NoError(t, err)
	b, err := g.NextDonationReference(context.Background())
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^DON-1735689600000-[0-9A-F]{8}$`), a)
	require.NotEqual(t, a, b)
}

func TestNewGeneratorWithoutRedis(t *testing.T) {
	cfg := &config.Config{}
	g := NewGenerator(Params{Config: cfg})

	_, ok := g.(*TimestampGenerator)
	require.True(t, ok)
}

func TestRedisGeneratorFallsBack(t *testing.T) {
	// Nothing listens on this port, so INCR fails immediately.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.Fundraising.ReferencePrefix = "DNS"
	g := NewGenerator(Params{Config: cfg, Redis: rdb})

	ref, err := g.NextDonationReference(context.Background())
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^DNS-\d+-[0-9A-F]{8}$`), ref)
}
