package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/convoroute-backend/internal/domain"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// TenantCache is a TTL-bounded read-through cache for resolved organizations.
// A miss is (nil, nil); resolution falls through to the database.
type TenantCache interface {
	Get(ctx context.Context, orgKey string) (*domain.Organization, error)
	Set(ctx context.Context, orgKey string, org *domain.Organization) error
}

type tenantCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewTenantCache(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) (TenantCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &tenantCache{
		log: log.With("service", "RedisTenantCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func tenantCacheKey(orgKey string) string {
	return "convoroute:tenant:" + orgKey
}

func (c *tenantCache) Get(ctx context.Context, orgKey string) (*domain.Organization, error) {
	raw, err := c.rdb.Get(ctx, tenantCacheKey(orgKey)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var org domain.Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		// Corrupt entry; treat as miss so the resolver repopulates it.
		c.log.Warn("tenant cache entry unreadable, dropping", "org_key", orgKey, "error", err)
		_ = c.rdb.Del(ctx, tenantCacheKey(orgKey)).Err()
		return nil, nil
	}
	return &org, nil
}

func (c *tenantCache) Set(ctx context.Context, orgKey string, org *domain.Organization) error {
	if org == nil {
		return nil
	}
	raw, err := json.Marshal(org)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, tenantCacheKey(orgKey), raw, c.ttl).Err()
}
