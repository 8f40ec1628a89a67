// Package signals reads live market signals from Redis.
package signals

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	perrors "escort-pricing/pkg/errors"
)

const surgeKeyPrefix = "surge:%s"

// SurgeStore holds the current surge multiplier per region.
type SurgeStore struct {
	redis *redis.Client
}

func NewSurgeStore(redis *redis.Client) *SurgeStore {
	return &SurgeStore{redis: redis}
}

// NewClient builds a Redis client for addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Multiplier returns the surge multiplier published for region, or nil when
// none is set.
func (s *SurgeStore) Multiplier(ctx context.Context, region string) (*float64, error) {
	if region == "" {
		return nil, nil
	}
	val, err := s.redis.Get(ctx, surgeKey(region)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewLookupError(perrors.ErrCodeSurgeLookup, "region "+region, err)
	}
	m, err := parseMultiplier(val)
	if err != nil {
		return nil, perrors.NewLookupError(perrors.ErrCodeSurgeLookup, "region "+region, err)
	}
	return &m, nil
}

// SetMultiplier publishes a multiplier for region. A zero ttl keeps it until
// overwritten.
func (s *SurgeStore) SetMultiplier(ctx context.Context, region string, multiplier float64, ttl time.Duration) error {
	if multiplier <= 0 {
		return fmt.Errorf("surge multiplier must be positive, got %v", multiplier)
	}
	return s.redis.Set(ctx, surgeKey(region), formatMultiplier(multiplier), ttl).Err()
}

// ClearMultiplier removes the multiplier for region.
func (s *SurgeStore) ClearMultiplier(ctx context.Context, region string) error {
	return s.redis.Del(ctx, surgeKey(region)).Err()
}

func surgeKey(region string) string {
	return fmt.Sprintf(surgeKeyPrefix, strings.ToLower(strings.TrimSpace(region)))
}

func parseMultiplier(val string) (float64, error) {
	m, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed surge multiplier %q: %w", val, err)
	}
	if m <= 0 {
		return 0, fmt.Errorf("surge multiplier must be positive, got %q", val)
	}
	return m, nil
}

func formatMultiplier(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
