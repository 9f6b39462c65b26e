package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// LegacyContent serves the hand-written page bodies that predate the
// database-backed destination pages.
type LegacyContent interface {
	// Load returns "" with a nil error when no page exists for slug.
	Load(slug string) (string, error)
}

var (
	legacySlugRE = regexp.MustCompile(`^[a-z0-9-]+$`)
	legacyBodyRE = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	legacyNavRE  = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	legacyBarRE  = regexp.MustCompile(`(?is)<div[^>]*class="nav-bar"[^>]*>.*?</div>`)
)

type legacyDir struct {
	fsys fs.FS
}

// NewLegacyContent reads <slug>-page.html files from dir. An empty dir
// returns nil, which callers treat as "no legacy content".
func NewLegacyContent(dir string) LegacyContent {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	return &legacyDir{fsys: os.DirFS(filepath.Clean(dir))}
}

func newLegacyContentFS(fsys fs.FS) LegacyContent {
	return &legacyDir{fsys: fsys}
}

func (l *legacyDir) Load(slug string) (string, error) {
	if !legacySlugRE.MatchString(slug) {
		return "", nil
	}
	raw, err := fs.ReadFile(l.fsys, slug+"-page.html")
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return extractLegacyBody(string(raw)), nil
}

func extractLegacyBody(page string) string {
	m := legacyBodyRE.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	body := legacyNavRE.ReplaceAllString(m[1], "")
	body = legacyBarRE.ReplaceAllString(body, "")
	return strings.TrimSpace(body)
}
