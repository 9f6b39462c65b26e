package travel

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/vedablog/internal/data/db"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type CommentRepo interface {
	Create(dbc dbctx.Context, row *types.Comment) error
	// ListByDestination returns newest first, with the author's display name
	// when a preferences row exists.
	ListByDestination(dbc dbctx.Context, destinationID int64, approvedOnly bool) ([]types.CommentView, error)
	ListPending(dbc dbctx.Context, limit int) ([]types.CommentView, error)
	// Approve returns nil when no comment has that id.
	Approve(dbc dbctx.Context, id int64) (*types.Comment, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (r *commentRepo) Create(dbc dbctx.Context, row *types.Comment) error {
	if row == nil {
		return nil
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return db.MapError("CommentRepo.Create", err)
	}
	return nil
}

func (r *commentRepo) withAuthor(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db).
		Table("comments AS c").
		Select("c.id, c.user_id, c.destination_id, c.content, c.approved, c.created_at, up.display_name").
		Joins("LEFT JOIN user_preferences up ON c.user_id = up.external_user_id")
}

func (r *commentRepo) ListByDestination(dbc dbctx.Context, destinationID int64, approvedOnly bool) ([]types.CommentView, error) {
	rows := make([]types.CommentView, 0)
	q := r.withAuthor(dbc).Where("c.destination_id = ?", destinationID)
	if approvedOnly {
		q = q.Where("c.approved = ?", true)
	}
	if err := q.Order("c.created_at DESC, c.id DESC").Scan(&rows).Error; err != nil {
		return nil, db.MapError("CommentRepo.ListByDestination", err)
	}
	return rows, nil
}

func (r *commentRepo) ListPending(dbc dbctx.Context, limit int) ([]types.CommentView, error) {
	rows := make([]types.CommentView, 0)
	q := r.withAuthor(dbc).Where("c.approved = ?", false).Order("c.created_at ASC, c.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, db.MapError("CommentRepo.ListPending", err)
	}
	return rows, nil
}

func (r *commentRepo) Approve(dbc dbctx.Context, id int64) (*types.Comment, error) {
	var rows []types.Comment
	res := dbc.DB(r.db).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("approved", true)
	if res.Error != nil {
		return nil, db.MapError("CommentRepo.Approve", res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
