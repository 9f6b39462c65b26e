package travel

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/vedablog/internal/data/db"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type FavoriteRepo interface {
	// Add fails with DataError(DuplicateFavorite) when the pair already exists.
	Add(dbc dbctx.Context, userID string, destinationID int64) (*types.Favorite, error)
	// Remove returns the deleted row, or nil when there was none.
	Remove(dbc dbctx.Context, userID string, destinationID int64) (*types.Favorite, error)
	Exists(dbc dbctx.Context, userID string, destinationID int64) (bool, error)
	CountByDestination(dbc dbctx.Context, destinationID int64) (int64, error)
	CountByUser(dbc dbctx.Context, userID string) (int64, error)
	ListByUser(dbc dbctx.Context, userID string) ([]types.FavoriteView, error)
}

type favoriteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFavoriteRepo(db *gorm.DB, baseLog *logger.Logger) FavoriteRepo {
	return &favoriteRepo{db: db, log: baseLog.With("repo", "FavoriteRepo")}
}

func (r *favoriteRepo) Add(dbc dbctx.Context, userID string, destinationID int64) (*types.Favorite, error) {
	row := &types.Favorite{UserID: userID, DestinationID: destinationID}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Data(apperr.DuplicateFavorite, "FavoriteRepo.Add", err)
		}
		return nil, db.MapError("FavoriteRepo.Add", err)
	}
	return row, nil
}

func (r *favoriteRepo) Remove(dbc dbctx.Context, userID string, destinationID int64) (*types.Favorite, error) {
	var removed []types.Favorite
	err := dbc.DB(r.db).
		Clauses(clause.Returning{}).
		Where("user_id = ? AND destination_id = ?", userID, destinationID).
		Delete(&removed).Error
	if err != nil {
		return nil, db.MapError("FavoriteRepo.Remove", err)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return &removed[0], nil
}

func (r *favoriteRepo) Exists(dbc dbctx.Context, userID string, destinationID int64) (bool, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Favorite{}).
		Where("user_id = ? AND destination_id = ?", userID, destinationID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, db.MapError("FavoriteRepo.Exists", err)
	}
	return n > 0, nil
}

func (r *favoriteRepo) CountByDestination(dbc dbctx.Context, destinationID int64) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.Favorite{}).Where("destination_id = ?", destinationID).Count(&n).Error; err != nil {
		return 0, db.MapError("FavoriteRepo.CountByDestination", err)
	}
	return n, nil
}

func (r *favoriteRepo) CountByUser(dbc dbctx.Context, userID string) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.Favorite{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, db.MapError("FavoriteRepo.CountByUser", err)
	}
	return n, nil
}

func (r *favoriteRepo) ListByUser(dbc dbctx.Context, userID string) ([]types.FavoriteView, error) {
	rows := make([]types.FavoriteView, 0)
	err := dbc.DB(r.db).
		Table("favorites AS f").
		Select("f.id, f.user_id, f.destination_id, f.created_at, d.slug, d.title, d.image_url, d.country").
		Joins("JOIN destinations d ON d.id = f.destination_id").
		Where("f.user_id = ?", userID).
		Order("f.created_at DESC, f.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, db.MapError("FavoriteRepo.ListByUser", err)
	}
	return rows, nil
}
