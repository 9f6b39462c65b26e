package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/db"
	"github.com/yungbote/vedablog/internal/data/repos"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/domain/travel"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

const defaultPendingLimit = 50

type RatingResult struct {
	Rating    *types.Rating
	Aggregate types.RatingAggregate
}

// EngagementService covers the authenticated writes on destinations:
// favorites, comments (with moderation) and ratings.
type EngagementService interface {
	AddFavorite(ctx context.Context, userID string, destinationID int64) (*types.Favorite, error)
	RemoveFavorite(ctx context.Context, userID string, destinationID int64) (*types.Favorite, error)
	ListFavorites(ctx context.Context, userID string) ([]types.FavoriteView, error)

	AddComment(ctx context.Context, userID string, destinationID int64, content string) (*types.Comment, error)
	ListComments(ctx context.Context, destinationID int64) ([]types.CommentView, error)
	PendingComments(ctx context.Context, moderator *session.Principal, limit int) ([]types.CommentView, error)
	ApproveComment(ctx context.Context, moderator *session.Principal, commentID int64) (*types.Comment, error)

	Rate(ctx context.Context, userID string, destinationID int64, value int) (*RatingResult, error)
	Ratings(ctx context.Context, destinationID int64) (types.RatingAggregate, error)
}

type engagementService struct {
	db            *gorm.DB
	log           *logger.Logger
	dests         repos.DestinationRepo
	favorites     repos.FavoriteRepo
	comments      repos.CommentRepo
	ratings       repos.RatingRepo
	moderatorRole string
}

func NewEngagementService(
	db *gorm.DB,
	log *logger.Logger,
	dests repos.DestinationRepo,
	favorites repos.FavoriteRepo,
	comments repos.CommentRepo,
	ratings repos.RatingRepo,
	moderatorRole string,
) EngagementService {
	if strings.TrimSpace(moderatorRole) == "" {
		moderatorRole = "moderator"
	}
	return &engagementService{
		db:            db,
		log:           log.With("service", "EngagementService"),
		dests:         dests,
		favorites:     favorites,
		comments:      comments,
		ratings:       ratings,
		moderatorRole: moderatorRole,
	}
}

func (s *engagementService) requireDestination(dbc dbctx.Context, op string, id int64) error {
	if id <= 0 {
		return apperr.Validation(op, "destination_id is required")
	}
	dest, err := s.dests.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if dest == nil {
		return apperr.NotFoundf(op, "Destination not found")
	}
	return nil
}

func (s *engagementService) AddFavorite(ctx context.Context, userID string, destinationID int64) (*types.Favorite, error) {
	const op = "EngagementService.AddFavorite"
	var fav *types.Favorite
	err := db.WithTx(dbctx.New(ctx), s.db, func(dbc dbctx.Context) error {
		if err := s.requireDestination(dbc, op, destinationID); err != nil {
			return err
		}
		row, err := s.favorites.Add(dbc, userID, destinationID)
		fav = row
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncEngagement("favorite_add")
	return fav, nil
}

func (s *engagementService) RemoveFavorite(ctx context.Context, userID string, destinationID int64) (*types.Favorite, error) {
	const op = "EngagementService.RemoveFavorite"
	if destinationID <= 0 {
		return nil, apperr.Validation(op, "destination_id is required")
	}
	fav, err := s.favorites.Remove(dbctx.New(ctx), userID, destinationID)
	if err != nil {
		return nil, err
	}
	if fav == nil {
		return nil, apperr.NotFoundf(op, "Favorite not found")
	}
	observability.Current().IncEngagement("favorite_remove")
	return fav, nil
}

func (s *engagementService) ListFavorites(ctx context.Context, userID string) ([]types.FavoriteView, error) {
	return s.favorites.ListByUser(dbctx.New(ctx), userID)
}

// ValidateComment trims content and enforces the length bounds: the trimmed
// text must reach the minimum and the submitted text must not exceed the
// maximum, both counted in characters.
func ValidateComment(op, content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if utf8.RuneCountInString(trimmed) < travel.CommentMinLength {
		return "", apperr.Validation(op, "Invalid comment data")
	}
	if utf8.RuneCountInString(content) > travel.CommentMaxLength {
		return "", apperr.Validationf(op, "Comment too long (max %d characters)", travel.CommentMaxLength)
	}
	return trimmed, nil
}

func (s *engagementService) AddComment(ctx context.Context, userID string, destinationID int64, content string) (*types.Comment, error) {
	const op = "EngagementService.AddComment"
	if destinationID <= 0 {
		return nil, apperr.Validation(op, "Invalid comment data")
	}
	text, err := ValidateComment(op, content)
	if err != nil {
		return nil, err
	}
	row := &types.Comment{UserID: userID, DestinationID: destinationID, Content: text}
	err = db.WithTx(dbctx.New(ctx), s.db, func(dbc dbctx.Context) error {
		if err := s.requireDestination(dbc, op, destinationID); err != nil {
			return err
		}
		return s.comments.Create(dbc, row)
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncEngagement("comment_add")
	return row, nil
}

func (s *engagementService) ListComments(ctx context.Context, destinationID int64) ([]types.CommentView, error) {
	return s.comments.ListByDestination(dbctx.New(ctx), destinationID, true)
}

func (s *engagementService) requireModerator(op string, p *session.Principal) error {
	if p == nil {
		return apperr.Auth(apperr.SessionAbsent, op, "Authentication required", nil)
	}
	if !p.HasRole(s.moderatorRole) {
		return apperr.Auth(apperr.Forbidden, op, "Moderator role required", nil)
	}
	return nil
}

func (s *engagementService) PendingComments(ctx context.Context, moderator *session.Principal, limit int) ([]types.CommentView, error) {
	const op = "EngagementService.PendingComments"
	if err := s.requireModerator(op, moderator); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = defaultPendingLimit
	}
	return s.comments.ListPending(dbctx.New(ctx), limit)
}

func (s *engagementService) ApproveComment(ctx context.Context, moderator *session.Principal, commentID int64) (*types.Comment, error) {
	const op = "EngagementService.ApproveComment"
	if err := s.requireModerator(op, moderator); err != nil {
		return nil, err
	}
	if commentID <= 0 {
		return nil, apperr.Validation(op, "comment id is required")
	}
	row, err := s.comments.Approve(dbctx.New(ctx), commentID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.NotFoundf(op, "Comment not found")
	}
	s.log.Info("comment approved", "comment_id", commentID, "user_id", moderator.Subject)
	observability.Current().IncEngagement("comment_approve")
	return row, nil
}

func (s *engagementService) Rate(ctx context.Context, userID string, destinationID int64, value int) (*RatingResult, error) {
	const op = "EngagementService.Rate"
	if destinationID <= 0 || !travel.ValidRating(value) {
		return nil, apperr.Validation(op, "Invalid rating data")
	}
	out := &RatingResult{}
	err := db.WithTx(dbctx.New(ctx), s.db, func(dbc dbctx.Context) error {
		if err := s.requireDestination(dbc, op, destinationID); err != nil {
			return err
		}
		row, err := s.ratings.Upsert(dbc, userID, destinationID, value)
		if err != nil {
			return err
		}
		agg, err := s.ratings.Aggregate(dbc, destinationID)
		if err != nil {
			return err
		}
		out.Rating = row
		out.Aggregate = agg
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Current().IncEngagement("rating_upsert")
	return out, nil
}

func (s *engagementService) Ratings(ctx context.Context, destinationID int64) (types.RatingAggregate, error) {
	return s.ratings.Aggregate(dbctx.New(ctx), destinationID)
}
