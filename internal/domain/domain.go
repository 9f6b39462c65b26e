package domain

import (
	"github.com/yungbote/vedablog/internal/domain/travel"
	"github.com/yungbote/vedablog/internal/domain/user"
)

type (
	UserPreferences = user.Preferences

	Destination     = travel.Destination
	Favorite        = travel.Favorite
	FavoriteView    = travel.FavoriteView
	Comment         = travel.Comment
	CommentView     = travel.CommentView
	Rating          = travel.Rating
	RatingAggregate = travel.RatingAggregate
)

// Models lists every persisted entity, in dependency order.
func Models() []any {
	return []any{
		&user.Preferences{},
		&travel.Destination{},
		&travel.Favorite{},
		&travel.Comment{},
		&travel.Rating{},
	}
}
