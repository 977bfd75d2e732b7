package ratelimit

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/response"
)

// KeyFunc derives the throttling key for a request. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

// Store keeps one token bucket per key.
type Store struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewStore allows perMinute events per key with an equal burst.
func NewStore(perMinute int) *Store {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Store{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Allow consumes one token for key.
func (s *Store) Allow(key string) bool {
	s.mu.Lock()
	limiter, ok := s.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects requests exceeding the per-key budget with RATE_LIMITED.
func Middleware(store *Store, key KeyFunc, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		k := key(c)
		if k == "" {
			c.Next()
			return
		}
		if !store.Allow(k) {
			logger.Warn("rate limit exceeded", zap.String("key", k), zap.String("path", c.FullPath()))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
