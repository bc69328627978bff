package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"bantudesa/pkg/config"
	"bantudesa/pkg/rediskey"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sequence",
	fx.Provide(NewGenerator),
)

// Generator hands out human-facing donation references. Uniqueness against
// the store is checked by the caller.
type Generator interface {
	NextDonationReference(ctx context.Context) (string, error)
}

type Params struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func NewGenerator(p Params) Generator {
	prefix := p.Config.Fundraising.ReferencePrefix
	if prefix == "" {
		prefix = config.DefaultFundraising().ReferencePrefix
	}

	fallback := NewTimestampGenerator(prefix)
	if p.Redis == nil {
		return fallback
	}

	return &RedisGenerator{
		rdb:      p.Redis,
		prefix:   prefix,
		fallback: fallback,
		now:      time.Now,
	}
}

// RedisGenerator builds PREFIX-yymmdd-SEQ codes from a daily redis counter.
type RedisGenerator struct {
	rdb      *redis.Client
	prefix   string
	fallback Generator
	now      func() time.Time
}

func (g *RedisGenerator) NextDonationReference(ctx context.Context) (string, error) {
	code, err := g.nextDailyCode(ctx, g.prefix)
	if err != nil && g.fallback != nil {
		zap.L().Warn("[Sequence] redis counter unavailable, using timestamp reference", zap.Error(err))
		return g.fallback.NextDonationReference(ctx)
	}
	return code, err
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix string) (string, error) {
	now := g.now().UTC()
	today := now.Format("060102")
	key := rediskey.BuildDonationSequenceKey(prefix, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		expire := time.Until(now.Truncate(24 * time.Hour).Add(24*time.Hour - time.Second))
		_ = g.rdb.Expire(ctx, key, expire).Err()
	}

	return formatDailyCode(prefix, today, seq)
}

func formatDailyCode(prefix, day string, seq int64) (string, error) {
	// Base36 encoding + minimal 3 karakter (padding agar tidak terlalu pendek)
	encodedSeq := strings.ToUpper(strconv.FormatInt(seq, 36))
	if len(encodedSeq) < 3 {
		encodedSeq = strings.Repeat("0", 3-len(encodedSeq)) + encodedSeq
	}

	// Tambah random 2 karakter biar tidak mudah ditebak
	randSuffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s%s", prefix, day, encodedSeq, randSuffix), nil
}

// TimestampGenerator produces PREFIX-<unix millis>-<8 hex> without shared state.
type TimestampGenerator struct {
	prefix string
	now    func() time.Time
}

func NewTimestampGenerator(prefix string) *TimestampGenerator {
	return &TimestampGenerator{prefix: prefix, now: time.Now}
}

func (g *TimestampGenerator) NextDonationReference(ctx context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", g.prefix, g.now().UnixMilli(), suffix), nil
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}
