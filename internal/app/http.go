package app

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	vbhttp "github.com/yungbote/vedablog/internal/http"
	httpH "github.com/yungbote/vedablog/internal/http/handlers"
	httpMW "github.com/yungbote/vedablog/internal/http/middleware"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/http/views"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

type Middleware struct {
	Session     *httpMW.SessionMiddleware
	Recovery    gin.HandlerFunc
	APILimiter  gin.HandlerFunc
	StrictLimit gin.HandlerFunc
}

type Handlers struct {
	Health *httpH.HealthHandler
	Auth   *httpH.AuthHandler
	Pages  *httpH.PageHandler
	API    *httpH.APIHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, rdb *goredis.Client, codec *session.CookieCodec, store session.Store, resp response.Writer) (Middleware, error) {
	log.Info("Wiring middleware...")
	apiRate, err := httpMW.ParseRate(cfg.HTTP.RateLimitAPI)
	if err != nil {
		return Middleware{}, fmt.Errorf("RATE_LIMIT_API: %w", err)
	}
	strictRate, err := httpMW.ParseRate(cfg.HTTP.RateLimitStrict)
	if err != nil {
		return Middleware{}, fmt.Errorf("RATE_LIMIT_STRICT: %w", err)
	}
	limitStore, err := httpMW.NewLimiterStore(rdb, "vedablog:ratelimit")
	if err != nil {
		return Middleware{}, fmt.Errorf("init rate limit store: %w", err)
	}
	return Middleware{
		Session:     httpMW.NewSessionMiddleware(log, codec, store, resp),
		Recovery:    httpMW.Recovery(log, resp),
		APILimiter:  httpMW.RateLimit(log, "api", limitStore, apiRate),
		StrictLimit: httpMW.RateLimit(log, "strict", limitStore, strictRate),
	}, nil
}

func wireHandlers(log *logger.Logger, cfg Config, svc Services, codec *session.CookieCodec, resp response.Writer) Handlers {
	log.Info("Wiring handlers...")
	auth := httpH.NewAuthHandlerWithDeps(httpH.AuthHandlerDeps{
		Log:        log,
		Bridge:     svc.Identity,
		Profiles:   svc.Profiles,
		Engagement: svc.Engagement,
		Cookies:    codec,
		Response:   resp,
		BaseURL:    cfg.BaseURL,
	})
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Auth:   auth,
		Pages: httpH.NewPageHandlerWithDeps(httpH.PageHandlerDeps{
			Log:          log,
			Destinations: svc.Destinations,
			Engagement:   svc.Engagement,
			Auth:         auth,
			Response:     resp,
		}),
		API: httpH.NewAPIHandlerWithDeps(httpH.APIHandlerDeps{
			Log:          log,
			Destinations: svc.Destinations,
			Engagement:   svc.Engagement,
			Response:     resp,
		}),
	}
}

// loginStore keeps the pre-auth OAuth values in a signed cookie that lives
// only for the length of one login round trip.
func loginStore(cfg Config) sessions.Store {
	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(httpH.LoginStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Production(),
	})
	return store
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, mw Middleware, h Handlers) (*vbhttp.Server, error) {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	tmpl, err := views.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return vbhttp.NewServer(vbhttp.RouterConfig{
		Log:            log,
		Templates:      tmpl,
		Metrics:        metrics,
		ServiceName:    cfg.Otel.ServiceName,
		TracingEnabled: cfg.Otel.Enabled,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		StaticDir:      cfg.HTTP.StaticDir,
		HSTS:           cfg.Production(),
		LoginStore:     loginStore(cfg),
		Session:        mw.Session,
		Recovery:       mw.Recovery,
		APILimiter:     mw.APILimiter,
		StrictLimit:    mw.StrictLimit,
		ModeratorRole:  cfg.Keycloak.ModeratorRole,
		AuthHandler:    h.Auth,
		PageHandler:    h.Pages,
		APIHandler:     h.API,
		HealthHandler:  h.Health,
	}), nil
}
