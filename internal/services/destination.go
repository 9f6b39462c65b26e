package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/vedablog/internal/data/repos"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type HomeListing struct {
	Featured []types.Destination
	All      []types.Destination
}

// DestinationDetail is everything the detail page shows. IsFavorite and
// UserRating are only filled for an authenticated viewer.
type DestinationDetail struct {
	Destination   types.Destination
	Comments      []types.CommentView
	Ratings       types.RatingAggregate
	FavoriteCount int64
	IsFavorite    bool
	UserRating    *types.Rating
	LegacyContent string
}

type DestinationSummary struct {
	Destination   types.Destination
	Ratings       types.RatingAggregate
	FavoriteCount int64
}

type ListQuery struct {
	Q         string
	Continent string
	Limit     int
	Offset    int
}

// Normalize applies the default page size and clamps limit and offset.
func (q ListQuery) Normalize() ListQuery {
	q.Q = strings.TrimSpace(q.Q)
	q.Continent = strings.TrimSpace(q.Continent)
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

type DestinationService interface {
	Home(ctx context.Context) (*HomeListing, error)
	// Search prefers q over continent; with neither it lists everything.
	Search(ctx context.Context, q, continent string) ([]types.Destination, error)
	// Get returns (nil, nil) when the slug is unknown.
	Get(ctx context.Context, slug string) (*types.Destination, error)
	Detail(ctx context.Context, slug string, viewer *session.Principal) (*DestinationDetail, error)
	Summary(ctx context.Context, slug string) (*DestinationSummary, error)
	// List is the JSON listing; only the unfiltered form is paginated.
	List(ctx context.Context, q ListQuery) ([]types.Destination, error)
}

type destinationService struct {
	log       *logger.Logger
	dests     repos.DestinationRepo
	favorites repos.FavoriteRepo
	comments  repos.CommentRepo
	ratings   repos.RatingRepo
	legacy    LegacyContent
}

func NewDestinationService(
	log *logger.Logger,
	dests repos.DestinationRepo,
	favorites repos.FavoriteRepo,
	comments repos.CommentRepo,
	ratings repos.RatingRepo,
	legacy LegacyContent,
) DestinationService {
	return &destinationService{
		log:       log.With("service", "DestinationService"),
		dests:     dests,
		favorites: favorites,
		comments:  comments,
		ratings:   ratings,
		legacy:    legacy,
	}
}

func (s *destinationService) Home(ctx context.Context) (*HomeListing, error) {
	out := &HomeListing{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.dests.ListFeatured(dbctx.New(gctx))
		out.Featured = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.dests.List(dbctx.New(gctx), 0, 0)
		out.All = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *destinationService) Search(ctx context.Context, q, continent string) ([]types.Destination, error) {
	dbc := dbctx.New(ctx)
	q = strings.TrimSpace(q)
	continent = strings.TrimSpace(continent)
	switch {
	case q != "":
		return s.dests.Search(dbc, q)
	case continent != "":
		return s.dests.ListByContinent(dbc, continent)
	default:
		return s.dests.List(dbc, 0, 0)
	}
}

func (s *destinationService) Get(ctx context.Context, slug string) (*types.Destination, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	return s.dests.GetBySlug(dbctx.New(ctx), slug)
}

func (s *destinationService) Detail(ctx context.Context, slug string, viewer *session.Principal) (*DestinationDetail, error) {
	dest, err := s.Get(ctx, slug)
	if err != nil || dest == nil {
		return nil, err
	}

	out := &DestinationDetail{Destination: *dest}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.comments.ListByDestination(dbctx.New(gctx), dest.ID, true)
		out.Comments = rows
		return err
	})
	g.Go(func() error {
		agg, err := s.ratings.Aggregate(dbctx.New(gctx), dest.ID)
		out.Ratings = agg
		return err
	})
	g.Go(func() error {
		n, err := s.favorites.CountByDestination(dbctx.New(gctx), dest.ID)
		out.FavoriteCount = n
		return err
	})
	if viewer != nil && viewer.Subject != "" {
		g.Go(func() error {
			ok, err := s.favorites.Exists(dbctx.New(gctx), viewer.Subject, dest.ID)
			out.IsFavorite = ok
			return err
		})
		g.Go(func() error {
			r, err := s.ratings.GetByUser(dbctx.New(gctx), viewer.Subject, dest.ID)
			out.UserRating = r
			return err
		})
	}
	if s.legacy != nil {
		g.Go(func() error {
			html, err := s.legacy.Load(dest.Slug)
			if err != nil {
				s.log.Warn("legacy content unreadable", "slug", dest.Slug, "error", err)
				return nil
			}
			out.LegacyContent = html
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *destinationService) Summary(ctx context.Context, slug string) (*DestinationSummary, error) {
	dest, err := s.Get(ctx, slug)
	if err != nil || dest == nil {
		return nil, err
	}
	out := &DestinationSummary{Destination: *dest}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agg, err := s.ratings.Aggregate(dbctx.New(gctx), dest.ID)
		out.Ratings = agg
		return err
	})
	g.Go(func() error {
		n, err := s.favorites.CountByDestination(dbctx.New(gctx), dest.ID)
		out.FavoriteCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *destinationService) List(ctx context.Context, q ListQuery) ([]types.Destination, error) {
	q = q.Normalize()
	if q.Q != "" || q.Continent != "" {
		return s.Search(ctx, q.Q, q.Continent)
	}
	return s.dests.List(dbctx.New(ctx), q.Limit, q.Offset)
}
