package views

import (
	"embed"
	"html/template"
	"math"
	"strings"
	"time"
)

//go:embed templates/*.html
var FS embed.FS

var funcs = template.FuncMap{
	// safeHTML marks trusted, server-side page bodies.
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		if n > 5 {
			n = 5
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"round":       func(f float64) int { return int(math.Round(f)) },
	"ratingRange": func() []int { return []int{1, 2, 3, 4, 5} },
}

// Load parses every page. Each page file defines a template named after
// the file and shares the "header" and "footer" blocks from layout.html.
func Load() (*template.Template, error) {
	return template.New("pages").Funcs(funcs).ParseFS(FS, "templates/*.html")
}
