package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/session"
)

const genericMessage = "Something went wrong!"

type ErrorBody struct {
	Error string `json:"error"`
}

// Status maps an error to the HTTP status a caller sees.
func Status(err error) int {
	e, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case apperr.BadInput, apperr.MissingCode, apperr.StateMismatch:
		return http.StatusBadRequest
	case apperr.DuplicateFavorite:
		return http.StatusConflict
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.SessionAbsent:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Writer renders errors and pages. Production hides 5xx detail.
type Writer struct {
	Production bool
}

func (w Writer) Message(err error, status int) string {
	if status >= 500 && w.Production {
		return genericMessage
	}
	if status >= 500 && !hasAppError(err) {
		if err == nil {
			return genericMessage
		}
		return err.Error()
	}
	return apperr.PublicMessage(err)
}

func hasAppError(err error) bool {
	_, ok := apperr.As(err)
	return ok
}

func IsAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.URL.Path == "/api"
}

// Error picks the JSON or HTML form by route.
func (w Writer) Error(c *gin.Context, err error) {
	if IsAPI(c) {
		w.JSONError(c, err)
		return
	}
	w.PageError(c, err)
}

func (w Writer) JSONError(c *gin.Context, err error) {
	status := Status(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: w.Message(err, status)})
}

func (w Writer) PageError(c *gin.Context, err error) {
	status := Status(err)
	_ = c.Error(err)
	if status == http.StatusNotFound {
		w.NotFound(c)
		return
	}
	w.Page(c, status, "error.html", "Error", gin.H{
		"Status":  status,
		"Message": w.Message(err, status),
	})
	c.Abort()
}

func (w Writer) NotFound(c *gin.Context) {
	if IsAPI(c) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: "Not found"})
		return
	}
	w.Page(c, http.StatusNotFound, "404.html", "Page Not Found", gin.H{"Path": c.Request.URL.Path})
	c.Abort()
}

// Page renders a template with the shared layout fields filled in.
func (w Writer) Page(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["User"] = session.PrincipalFrom(c.Request.Context())
	c.HTML(status, name, data)
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Unauthorized is the API answer for a missing session.
func Unauthorized(c *gin.Context) {
	err := apperr.Auth(apperr.SessionAbsent, "", "Authentication required", nil)
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: apperr.PublicMessage(err)})
}

var ErrPanic = errors.New("internal error")
