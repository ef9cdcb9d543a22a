package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Sumuditha-Janith/obscura-backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// RateLimiter 按 IP 的令牌桶限流
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	rate     int           // 每个间隔补充的令牌数
	interval time.Duration // 补充间隔
	burst    int           // 桶容量
	now      func() time.Time
}

type clientBucket struct {
	tokens    int
	lastCheck time.Time
}

// NewRateLimiter rate 为每 interval 允许的请求数，burst 为桶容量
func NewRateLimiter(rate int, interval time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*clientBucket),
		rate:     rate,
		interval: interval,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow 判断该 IP 的请求是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	bucket, exists := rl.clients[ip]
	if !exists {
		// 新客户端从满桶开始
		rl.clients[ip] = &clientBucket{
			tokens:    rl.burst - 1,
			lastCheck: now,
		}
		return true
	}

	// 按经过的完整间隔补充令牌，不足一个间隔的时间保留到下次
	intervals := int(now.Sub(bucket.lastCheck) / rl.interval)
	if intervals > 0 {
		bucket.tokens += intervals * rl.rate
		if bucket.tokens > rl.burst {
			bucket.tokens = rl.burst
		}
		bucket.lastCheck = bucket.lastCheck.Add(time.Duration(intervals) * rl.interval)
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// Sweep 删除 idle 时间内没有请求的客户端
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-idle)
	removed := 0
	for ip, bucket := range rl.clients {
		if bucket.lastCheck.Before(threshold) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// Middleware 限流中间件，超限返回 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rl.interval.Seconds()))
			utils.Error(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
