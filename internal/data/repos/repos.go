package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/repos/travel"
	"github.com/yungbote/vedablog/internal/data/repos/user"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type PreferencesRepo = user.PreferencesRepo

type DestinationRepo = travel.DestinationRepo
type FavoriteRepo = travel.FavoriteRepo
type CommentRepo = travel.CommentRepo
type RatingRepo = travel.RatingRepo

func NewPreferencesRepo(db *gorm.DB, baseLog *logger.Logger) PreferencesRepo {
	return user.NewPreferencesRepo(db, baseLog)
}

func NewDestinationRepo(db *gorm.DB, baseLog *logger.Logger) DestinationRepo {
	return travel.NewDestinationRepo(db, baseLog)
}
func NewFavoriteRepo(db *gorm.DB, baseLog *logger.Logger) FavoriteRepo {
	return travel.NewFavoriteRepo(db, baseLog)
}
func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return travel.NewCommentRepo(db, baseLog)
}
func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return travel.NewRatingRepo(db, baseLog)
}
