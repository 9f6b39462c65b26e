package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/repos"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type Repos struct {
	Preferences  repos.PreferencesRepo
	Destinations repos.DestinationRepo
	Favorites    repos.FavoriteRepo
	Comments     repos.CommentRepo
	Ratings      repos.RatingRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Preferences:  repos.NewPreferencesRepo(db, log),
		Destinations: repos.NewDestinationRepo(db, log),
		Favorites:    repos.NewFavoriteRepo(db, log),
		Comments:     repos.NewCommentRepo(db, log),
		Ratings:      repos.NewRatingRepo(db, log),
	}
}
