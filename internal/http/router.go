package http

import (
	"html/template"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/vedablog/internal/http/handlers"
	httpMW "github.com/yungbote/vedablog/internal/http/middleware"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type RouterConfig struct {
	Log       *logger.Logger
	Templates *template.Template
	Metrics   *observability.Metrics

	ServiceName    string
	TracingEnabled bool
	AllowedOrigins []string
	StaticDir      string
	HSTS           bool

	// LoginStore holds the short-lived OAuth state cookie.
	LoginStore sessions.Store

	Session       *httpMW.SessionMiddleware
	Recovery      gin.HandlerFunc
	APILimiter    gin.HandlerFunc
	StrictLimit   gin.HandlerFunc
	ModeratorRole string

	AuthHandler   *httpH.AuthHandler
	PageHandler   *httpH.PageHandler
	APIHandler    *httpH.APIHandler
	HealthHandler *httpH.HealthHandler
}

func passThrough(c *gin.Context) { c.Next() }

func orPass(h gin.HandlerFunc) gin.HandlerFunc {
	if h == nil {
		return passThrough
	}
	return h
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = true
	r.HandleMethodNotAllowed = false

	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(orPass(cfg.Recovery))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.SecurityHeaders(cfg.HSTS))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	if cfg.LoginStore != nil {
		r.Use(sessions.Sessions(httpH.LoginStateCookie, cfg.LoginStore))
	}
	if cfg.Session != nil {
		r.Use(cfg.Session.Load())
	}
	if cfg.Templates != nil {
		r.SetHTMLTemplate(cfg.Templates)
	}
	if dir := strings.TrimSpace(cfg.StaticDir); dir != "" {
		r.Static("/static", dir)
	}

	requireAuth := passThrough
	requireModerator := passThrough
	if cfg.Session != nil {
		requireAuth = cfg.Session.RequireAuth()
		requireModerator = cfg.Session.RequireRole(cfg.ModeratorRole)
	}
	strict := orPass(cfg.StrictLimit)

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	// Auth
	if cfg.AuthHandler != nil {
		auth := r.Group("/auth")
		{
			auth.GET("/login", cfg.AuthHandler.Login)
			auth.GET("/callback", cfg.AuthHandler.Callback)
			auth.GET("/logout", cfg.AuthHandler.Logout)
			auth.GET("/profile", requireAuth, cfg.AuthHandler.Profile)
			auth.POST("/profile", requireAuth, cfg.AuthHandler.UpdateProfile)
			auth.GET("/dashboard", requireAuth, cfg.AuthHandler.Dashboard)
		}
	}

	api := r.Group("/api")
	api.Use(orPass(cfg.APILimiter))
	{
		if cfg.HealthHandler != nil {
			api.GET("/health", cfg.HealthHandler.APIHealthCheck)
		}
		if h := cfg.APIHandler; h != nil {
			api.GET("/destinations", h.ListDestinations)
			api.GET("/destinations/:slug", h.GetDestination)

			api.GET("/favorites", requireAuth, h.ListFavorites)
			api.POST("/favorites/:destinationId", strict, requireAuth, h.AddFavorite)
			api.DELETE("/favorites/:destinationId", strict, requireAuth, h.RemoveFavorite)

			api.POST("/comments", strict, requireAuth, h.AddComment)
			api.GET("/comments/pending", requireAuth, requireModerator, h.PendingComments)
			api.GET("/comments/:id", h.ListComments)
			api.POST("/comments/:id/approve", requireAuth, requireModerator, h.ApproveComment)

			api.POST("/ratings", strict, requireAuth, h.Rate)
			api.GET("/ratings/:destinationId", h.Ratings)
		}
	}

	// Web pages
	if h := cfg.PageHandler; h != nil {
		r.GET("/", h.Home)
		r.GET("/search", h.Search)
		r.GET("/favorites", requireAuth, h.Favorites)
		r.GET("/:page", h.Page)
		r.NoRoute(h.NotFound)
	}

	return r
}
