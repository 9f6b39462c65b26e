package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

// ParseRate accepts "<limit>-<duration>" with a Go duration ("100-15m")
// or the limiter letters ("20-M").
func ParseRate(formatted string) (limiter.Rate, error) {
	formatted = strings.TrimSpace(formatted)
	limitPart, periodPart, ok := strings.Cut(formatted, "-")
	if !ok {
		return limiter.Rate{}, fmt.Errorf("rate %q: expected <limit>-<period>", formatted)
	}
	if d, err := time.ParseDuration(periodPart); err == nil {
		n, err := strconv.ParseInt(limitPart, 10, 64)
		if err != nil || n <= 0 || d <= 0 {
			return limiter.Rate{}, fmt.Errorf("rate %q: invalid limit or period", formatted)
		}
		return limiter.Rate{Formatted: formatted, Period: d, Limit: n}, nil
	}
	return limiter.NewRateFromFormatted(formatted)
}

// NewLimiterStore uses redis when a client is given so limits hold across
// instances, memory otherwise.
func NewLimiterStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		}), nil
	}
	return redisstore.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// RateLimit answers 429 with a JSON body once the rate is exhausted.
// Store failures let the request through.
func RateLimit(log *logger.Logger, name string, store limiter.Store, rate limiter.Rate) gin.HandlerFunc {
	l := limiter.New(store, rate)
	mwLog := log.With("middleware", "RateLimit", "limiter", name)
	return ginlimiter.NewMiddleware(l,
		ginlimiter.WithKeyGetter(func(c *gin.Context) string {
			return name + ":" + c.ClientIP()
		}),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			observability.Current().IncRateLimited(name)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorBody{
				Error: "Too many requests, please try again later.",
			})
		}),
		ginlimiter.WithErrorHandler(func(c *gin.Context, err error) {
			mwLog.Warn("rate limiter store failed", "error", err)
			c.Next()
		}),
	)
}
