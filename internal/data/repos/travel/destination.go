package travel

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/db"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

// Listing order: featured first, then title, with id as the tie-break.
const listOrder = "featured DESC, title ASC, id ASC"

type DestinationRepo interface {
	GetBySlug(dbc dbctx.Context, slug string) (*types.Destination, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Destination, error)
	List(dbc dbctx.Context, limit, offset int) ([]types.Destination, error)
	Count(dbc dbctx.Context) (int64, error)
	ListFeatured(dbc dbctx.Context) ([]types.Destination, error)
	ListByContinent(dbc dbctx.Context, continent string) ([]types.Destination, error)
	// Search matches term case-insensitively as a literal substring of
	// title, description or country. An empty term matches everything.
	Search(dbc dbctx.Context, term string) ([]types.Destination, error)
}

type destinationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDestinationRepo(db *gorm.DB, baseLog *logger.Logger) DestinationRepo {
	return &destinationRepo{db: db, log: baseLog.With("repo", "DestinationRepo")}
}

func (r *destinationRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Destination, error) {
	return r.first(dbc, "DestinationRepo.GetBySlug", "slug = ?", slug)
}

func (r *destinationRepo) GetByID(dbc dbctx.Context, id int64) (*types.Destination, error) {
	if id <= 0 {
		return nil, nil
	}
	return r.first(dbc, "DestinationRepo.GetByID", "id = ?", id)
}

func (r *destinationRepo) first(dbc dbctx.Context, op string, query string, arg interface{}) (*types.Destination, error) {
	var rows []types.Destination
	if err := dbc.DB(r.db).Where(query, arg).Limit(1).Find(&rows).Error; err != nil {
		return nil, db.MapError(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *destinationRepo) List(dbc dbctx.Context, limit, offset int) ([]types.Destination, error) {
	rows := make([]types.Destination, 0)
	q := dbc.DB(r.db).Order(listOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, db.MapError("DestinationRepo.List", err)
	}
	return rows, nil
}

func (r *destinationRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.Destination{}).Count(&n).Error; err != nil {
		return 0, db.MapError("DestinationRepo.Count", err)
	}
	return n, nil
}

func (r *destinationRepo) ListFeatured(dbc dbctx.Context) ([]types.Destination, error) {
	rows := make([]types.Destination, 0)
	if err := dbc.DB(r.db).Where("featured = ?", true).Order("title ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, db.MapError("DestinationRepo.ListFeatured", err)
	}
	return rows, nil
}

func (r *destinationRepo) ListByContinent(dbc dbctx.Context, continent string) ([]types.Destination, error) {
	rows := make([]types.Destination, 0)
	if err := dbc.DB(r.db).Where("continent = ?", continent).Order("title ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, db.MapError("DestinationRepo.ListByContinent", err)
	}
	return rows, nil
}

func (r *destinationRepo) Search(dbc dbctx.Context, term string) ([]types.Destination, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	rows := make([]types.Destination, 0)
	err := dbc.DB(r.db).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(country) LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
		Order(listOrder).
		Find(&rows).Error
	if err != nil {
		return nil, db.MapError("DestinationRepo.Search", err)
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
