package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/platform/logger"
)

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	ScrapeInterval time.Duration `yaml:"scrape_interval"`
}

type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	apiErrors    *Counter
	authCallback *CounterVec
	engagement   *CounterVec
	rateLimited  *CounterVec
	pgStats      *GaugeVec
	redisUp      *Gauge
	redisPing    *Gauge

	interval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when disabled. All methods
// accept a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(cfg.ScrapeInterval)
	})
	return instance
}

func newMetrics(interval time.Duration) *Metrics {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Metrics{
		apiRequests: NewCounterVec("vb_http_requests_total", "HTTP requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"vb_http_request_duration_seconds",
			"HTTP request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight:  NewGauge("vb_http_inflight_requests", "In-flight HTTP requests."),
		apiErrors:    NewCounter("vb_http_server_errors_total", "HTTP responses with a 5xx status."),
		authCallback: NewCounterVec("vb_auth_callbacks_total", "Login callbacks by outcome.", []string{"result"}),
		engagement:   NewCounterVec("vb_engagement_total", "Favorites, comments and ratings by action.", []string{"action"}),
		rateLimited:  NewCounterVec("vb_rate_limited_total", "Requests rejected by a rate limiter.", []string{"limiter"}),
		pgStats:      NewGaugeVec("vb_db_pool", "Database pool statistics.", []string{"stat"}),
		redisUp:      NewGauge("vb_redis_up", "1 when the last redis ping succeeded."),
		redisPing:    NewGauge("vb_redis_ping_seconds", "Latency of the last redis ping."),
		interval:     interval,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.authCallback, m.engagement, m.rateLimited,
		m.pgStats, m.redisUp, m.redisPing,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAuthCallback(result string) {
	if m == nil {
		return
	}
	m.authCallback.Inc(result)
}

func (m *Metrics) IncEngagement(action string) {
	if m == nil {
		return
	}
	m.engagement.Inc(action)
}

func (m *Metrics) IncRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.Inc(limiter)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
				m.pgStats.Set(float64(stats.MaxIdleTimeClosed), "max_idle_time_closed")
			}
		}
	}()
}

// StartRedisCollector pings the shared client; it does not own or close it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
