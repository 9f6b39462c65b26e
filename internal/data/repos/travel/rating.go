package travel

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/vedablog/internal/data/db"
	types "github.com/yungbote/vedablog/internal/domain"
	traveldomain "github.com/yungbote/vedablog/internal/domain/travel"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type RatingRepo interface {
	// Upsert inserts or overwrites the caller's rating and returns the stored
	// row, so an overwrite keeps the original created_at. The value must
	// already be range-checked.
	Upsert(dbc dbctx.Context, userID string, destinationID int64, value int) (*types.Rating, error)
	GetByUser(dbc dbctx.Context, userID string, destinationID int64) (*types.Rating, error)
	Aggregate(dbc dbctx.Context, destinationID int64) (types.RatingAggregate, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (r *ratingRepo) Upsert(dbc dbctx.Context, userID string, destinationID int64, value int) (*types.Rating, error) {
	now := time.Now().UTC()
	row := &types.Rating{UserID: userID, DestinationID: destinationID, Rating: value, CreatedAt: now, UpdatedAt: now}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "destination_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}, clause.Returning{}).
		Create(row).Error
	if err != nil {
		return nil, db.MapError("RatingRepo.Upsert", err)
	}
	return row, nil
}

func (r *ratingRepo) GetByUser(dbc dbctx.Context, userID string, destinationID int64) (*types.Rating, error) {
	var rows []types.Rating
	err := dbc.DB(r.db).
		Where("user_id = ? AND destination_id = ?", userID, destinationID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, db.MapError("RatingRepo.GetByUser", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *ratingRepo) Aggregate(dbc dbctx.Context, destinationID int64) (types.RatingAggregate, error) {
	var out struct {
		Average *float64
		Count   int64
	}
	err := dbc.DB(r.db).
		Model(&types.Rating{}).
		Select("CAST(AVG(rating) AS DOUBLE PRECISION) AS average, COUNT(*) AS count").
		Where("destination_id = ?", destinationID).
		Scan(&out).Error
	if err != nil {
		return types.RatingAggregate{}, db.MapError("RatingRepo.Aggregate", err)
	}
	return traveldomain.NewRatingAggregate(out.Average, out.Count), nil
}
