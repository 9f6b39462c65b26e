package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/http/middleware"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/services"
)

type APIHandlerDeps struct {
	Log          *logger.Logger
	Destinations services.DestinationService
	Engagement   services.EngagementService
	Response     response.Writer
}

type APIHandler struct {
	log          *logger.Logger
	destinations services.DestinationService
	engagement   services.EngagementService
	resp         response.Writer
}

func NewAPIHandlerWithDeps(deps APIHandlerDeps) *APIHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &APIHandler{
		log:          log.With("handler", "APIHandler"),
		destinations: deps.Destinations,
		engagement:   deps.Engagement,
		resp:         deps.Response,
	}
}

type destinationBody struct {
	types.Destination
	Ratings       types.RatingAggregate `json:"ratings"`
	FavoriteCount int64                 `json:"favoriteCount"`
}

func (h *APIHandler) GetDestination(c *gin.Context) {
	sum, err := h.destinations.Summary(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	if sum == nil {
		h.resp.JSONError(c, apperr.NotFoundf("APIHandler.GetDestination", "Destination not found"))
		return
	}
	response.OK(c, destinationBody{
		Destination:   sum.Destination,
		Ratings:       sum.Ratings,
		FavoriteCount: sum.FavoriteCount,
	})
}

func (h *APIHandler) ListDestinations(c *gin.Context) {
	rows, err := h.destinations.List(c.Request.Context(), services.ListQuery{
		Q:         c.Query("q"),
		Continent: c.Query("continent"),
		Limit:     intQuery(c, "limit", services.DefaultListLimit),
		Offset:    intQuery(c, "offset", 0),
	})
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"destinations": rows, "total": len(rows)})
}

func (h *APIHandler) AddFavorite(c *gin.Context) {
	id, err := idParam(c, "destinationId")
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	fav, err := h.engagement.AddFavorite(c.Request.Context(), middleware.PrincipalFrom(c).Subject, id)
	if err != nil {
		if apperr.IsCode(err, apperr.DuplicateFavorite) {
			c.AbortWithStatusJSON(http.StatusConflict, response.ErrorBody{Error: "Destination already in favorites"})
			return
		}
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "favorite": fav})
}

func (h *APIHandler) RemoveFavorite(c *gin.Context) {
	id, err := idParam(c, "destinationId")
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	if _, err := h.engagement.RemoveFavorite(c.Request.Context(), middleware.PrincipalFrom(c).Subject, id); err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *APIHandler) ListFavorites(c *gin.Context) {
	rows, err := h.engagement.ListFavorites(c.Request.Context(), middleware.PrincipalFrom(c).Subject)
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"favorites": rows})
}

type commentRequest struct {
	DestinationID int64  `json:"destination_id"`
	Content       string `json:"content"`
}

func (h *APIHandler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.JSONError(c, apperr.Validation("APIHandler.AddComment", "Invalid comment data"))
		return
	}
	row, err := h.engagement.AddComment(c.Request.Context(), middleware.PrincipalFrom(c).Subject, req.DestinationID, req.Content)
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "comment": row})
}

func (h *APIHandler) ListComments(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	rows, err := h.engagement.ListComments(c.Request.Context(), id)
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"comments": rows})
}

func (h *APIHandler) PendingComments(c *gin.Context) {
	rows, err := h.engagement.PendingComments(c.Request.Context(), middleware.PrincipalFrom(c), intQuery(c, "limit", 0))
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"comments": rows})
}

func (h *APIHandler) ApproveComment(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	row, err := h.engagement.ApproveComment(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "comment": row})
}

type ratingRequest struct {
	DestinationID int64 `json:"destination_id"`
	Rating        int   `json:"rating"`
}

func (h *APIHandler) Rate(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.JSONError(c, apperr.Validation("APIHandler.Rate", "Invalid rating data"))
		return
	}
	res, err := h.engagement.Rate(c.Request.Context(), middleware.PrincipalFrom(c).Subject, req.DestinationID, req.Rating)
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "rating": res.Rating, "aggregateRatings": res.Aggregate})
}

func (h *APIHandler) Ratings(c *gin.Context) {
	id, err := idParam(c, "destinationId")
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	agg, err := h.engagement.Ratings(c.Request.Context(), id)
	if err != nil {
		h.resp.JSONError(c, err)
		return
	}
	response.OK(c, agg)
}
