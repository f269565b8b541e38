package stream

import (
	"time"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// 流管理器类型
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// NewStreamManager 创建流管理器
func NewStreamManager(cfg *config.StreamManagerConfig) (interfaces.StreamManager, error) {
	if cfg == nil || cfg.Type != TypeRedis {
		return NewMemoryStreamManager(), nil
	}
	ttl := cfg.Redis.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return NewRedisStreamManager(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.Prefix,
		ttl,
	)
}
