package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vedablog/internal/http/middleware"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/services"
)

const pageSuffix = "-page.html"

var continents = []string{"Africa", "Asia", "Europe", "North America", "Oceania", "South America"}

type PageHandlerDeps struct {
	Log          *logger.Logger
	Destinations services.DestinationService
	Engagement   services.EngagementService
	Auth         *AuthHandler
	Response     response.Writer
}

type PageHandler struct {
	log          *logger.Logger
	destinations services.DestinationService
	engagement   services.EngagementService
	auth         *AuthHandler
	resp         response.Writer
}

func NewPageHandlerWithDeps(deps PageHandlerDeps) *PageHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &PageHandler{
		log:          log.With("handler", "PageHandler"),
		destinations: deps.Destinations,
		engagement:   deps.Engagement,
		auth:         deps.Auth,
		resp:         deps.Response,
	}
}

func (h *PageHandler) Home(c *gin.Context) {
	if c.Query("code") != "" && c.Query("iss") != "" && h.auth != nil {
		h.auth.HomeCallback(c)
		return
	}
	home, err := h.destinations.Home(c.Request.Context())
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.resp.Page(c, http.StatusOK, "index.html", "Veda's Travel Diary - Explore the World", gin.H{
		"Featured": home.Featured,
		"All":      home.All,
		"Login":    c.Query("login"),
		"Logout":   c.Query("logout") == "success",
	})
}

func (h *PageHandler) Search(c *gin.Context) {
	q, continent := strings.TrimSpace(c.Query("q")), strings.TrimSpace(c.Query("continent"))
	rows, err := h.destinations.Search(c.Request.Context(), q, continent)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.resp.Page(c, http.StatusOK, "search.html", "Search Results", gin.H{
		"Destinations": rows,
		"Query":        q,
		"Continent":    continent,
		"Continents":   continents,
	})
}

// Page serves /<slug>-page.html and redirects the bare /<slug> form.
func (h *PageHandler) Page(c *gin.Context) {
	page := c.Param("page")
	if slug, ok := strings.CutSuffix(page, pageSuffix); ok {
		h.destination(c, slug)
		return
	}
	dest, err := h.destinations.Get(c.Request.Context(), page)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	if dest == nil {
		h.resp.NotFound(c)
		return
	}
	c.Redirect(http.StatusMovedPermanently, dest.PageURL())
}

func (h *PageHandler) destination(c *gin.Context, slug string) {
	detail, err := h.destinations.Detail(c.Request.Context(), slug, middleware.PrincipalFrom(c))
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	if detail == nil {
		h.resp.NotFound(c)
		return
	}
	h.resp.Page(c, http.StatusOK, "destination.html", detail.Destination.Title+" | Veda's Travel Diary", gin.H{
		"Detail": detail,
	})
}

func (h *PageHandler) Favorites(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	rows, err := h.engagement.ListFavorites(c.Request.Context(), p.Subject)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.resp.Page(c, http.StatusOK, "favorites.html", "My Favorites", gin.H{"Favorites": rows})
}

func (h *PageHandler) NotFound(c *gin.Context) {
	h.resp.NotFound(c)
}
