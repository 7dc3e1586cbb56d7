package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tgo/usagedash/internal/model"
)

const (
	// ProfileKeyPrefix is the prefix for cached profile summaries
	ProfileKeyPrefix = "usage_profile:"

	// DefaultProfileTTL bounds staleness between a submission on one node
	// and a dashboard read served from cache
	DefaultProfileTTL = time.Minute
)

// ProfileCache holds recently read profile summaries. Submissions invalidate
// the owner's entry, so a cached read is never older than the TTL or the last
// write, whichever comes first.
type ProfileCache struct {
	client *Client
	ttl    time.Duration
}

func NewProfileCache(client *Client, ttl time.Duration) *ProfileCache {
	if ttl == 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

func (c *ProfileCache) Get(ctx context.Context, userID uuid.UUID) (*model.UsageProfile, error) {
	raw, err := c.client.Get(ctx, c.key(userID))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var profile model.UsageProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *ProfileCache) Set(ctx context.Context, userID uuid.UUID, profile *model.UsageProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), raw, c.ttl)
}

func (c *ProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, c.key(userID))
}

func (c *ProfileCache) key(userID uuid.UUID) string {
	return ProfileKeyPrefix + userID.String()
}
