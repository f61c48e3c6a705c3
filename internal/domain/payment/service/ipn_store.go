package service

import (
	"context"
	"errors"

	"storefront/internal/pkg/config"
	"storefront/pkg/cache"
)

const ipnCacheKey = "pesapal:ipn_id"

// IPNStore 保存网关下发的 IPN 通知 ID。
// 优先读 Redis，缓存没有时退回配置文件里的静态值
type IPNStore struct {
	cache cache.CacheService
}

func NewIPNStore(c cache.CacheService) *IPNStore {
	return &IPNStore{cache: c}
}

// Get 取当前生效的 IPN ID，两处都没有时返回 ErrIPNNotConfigured
func (s *IPNStore) Get(ctx context.Context) (string, error) {
	if s.cache != nil {
		var id string
		err := s.cache.Get(ctx, ipnCacheKey, &id)
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return "", err
		}
	}
	if id := config.GlobalConfig.Pesapal.IPNID; id != "" {
		return id, nil
	}
	return "", ErrIPNNotConfigured
}

// Save 持久化新注册的 IPN ID，不设过期
func (s *IPNStore) Save(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, ipnCacheKey, id, 0)
}
