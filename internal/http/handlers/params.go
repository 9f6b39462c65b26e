package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vedablog/internal/domain/apperr"
)

func idParam(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("params."+name, "Invalid %s", name)
	}
	return id, nil
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// safeReturnTo keeps only local absolute paths, so a crafted link cannot
// bounce a fresh login to another site.
func safeReturnTo(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p[0] != '/' {
		return ""
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return ""
	}
	if strings.HasPrefix(p, "/auth/login") || strings.HasPrefix(p, "/auth/callback") || strings.HasPrefix(p, "/auth/logout") {
		return ""
	}
	return p
}
