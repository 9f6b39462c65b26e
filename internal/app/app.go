package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/clients/redis"
	"github.com/yungbote/vedablog/internal/data/db"
	vbhttp "github.com/yungbote/vedablog/internal/http"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Redis    *goredis.Client
	Sessions session.Store
	Metrics  *observability.Metrics
	Server   *vbhttp.Server
	Cfg      Config
	Repos    Repos
	Services Services

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.NewWithOptions(cfg.loggerOptions())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.resolveSessionSecret(log); err != nil {
		log.Sync()
		return nil, err
	}
	log.Info("Configuration loaded", "env", cfg.Env, "port", cfg.Port, "base_url", cfg.BaseURL)

	a := &App{Log: log, Cfg: cfg}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, log := a.Cfg, a.Log

	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(cfg.Metrics)

	pg, err := db.NewPostgresService(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.pg = pg
	a.DB = pg.DB()
	if cfg.DB.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.Redis = rdb
		a.Sessions = session.NewRedisStore(rdb, "vedablog:session:", log)
	} else {
		log.Warn("REDIS_ADDR not set, sessions are kept in process memory")
		a.Sessions = session.NewMemoryStore()
	}

	codec := session.NewCookieCodec(session.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secret: []byte(cfg.Session.Secret),
		TTL:    cfg.Session.TTL,
		Secure: cfg.Production(),
	})
	resp := response.Writer{Production: cfg.Production()}

	a.Repos = wireRepos(a.DB, log)
	a.Services, err = wireServices(a.DB, log, cfg, a.Repos, a.Sessions)
	if err != nil {
		return err
	}
	mw, err := wireMiddleware(log, cfg, a.Redis, codec, a.Sessions, resp)
	if err != nil {
		return err
	}
	a.Server, err = wireServer(log, cfg, a.Metrics, mw, wireHandlers(log, cfg, a.Services, codec, resp))
	return err
}

// Start launches the background metrics server and collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		if a.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
	return a.Server.Run(a.Cfg.Addr())
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	var errs []error
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.pg != nil {
		errs = append(errs, a.pg.Close())
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.otelShutdown(ctx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("shutdown finished with errors", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
