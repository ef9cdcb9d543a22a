package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TTLCache 带过期时间的 LRU 缓存（目录接口响应）
type TTLCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache size 是最大缓存条数，ttl 是数据有效期
func NewTTLCache[T any](size int, ttl time.Duration) *TTLCache[T] {
	if size <= 0 {
		size = 1
	}
	// lru.New 是线程安全的
	c, _ := lru.New[string, CacheItem[T]](size)
	return &TTLCache[T]{
		storage: c,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Set 写入（已存在则覆盖）
func (c *TTLCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: c.now().Add(c.ttl),
	})
}

// Get 读取，过期即删除
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.Value, true
}

// Delete 删除
func (c *TTLCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Len 当前条数
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}

// Cooldown 按 key 的发送冷却（同一邮箱短时间内不重复发信）
type Cooldown struct {
	store  *cache.Cache
	window time.Duration
}

// NewCooldown window <= 0 时不做限制
func NewCooldown(window time.Duration) *Cooldown {
	cleanup := window * 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Cooldown{
		store:  cache.New(window, cleanup),
		window: window,
	}
}

// Allow 冷却期内返回 false，否则占位并返回 true
func (c *Cooldown) Allow(key string) bool {
	if c == nil || c.window <= 0 {
		return true
	}
	return c.store.Add(key, struct{}{}, c.window) == nil
}

// Release 发送失败时撤销占位
func (c *Cooldown) Release(key string) {
	if c == nil {
		return
	}
	c.store.Delete(key)
}
