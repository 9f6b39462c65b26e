package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/vedablog/internal/data/db"
	types "github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

type PreferencesRepo interface {
	GetByExternalID(dbc dbctx.Context, externalUserID string) (*types.UserPreferences, error)
	// FindOrCreate returns the row for defaults.ExternalUserID, inserting defaults
	// when none exists. created reports whether this call inserted it.
	FindOrCreate(dbc dbctx.Context, defaults *types.UserPreferences) (row *types.UserPreferences, created bool, err error)
	// Update returns nil when no row exists for externalUserID. A nil
	// displayName keeps the stored name.
	Update(dbc dbctx.Context, externalUserID string, displayName *string, emailNotifications bool) (*types.UserPreferences, error)
}

type preferencesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferencesRepo(db *gorm.DB, baseLog *logger.Logger) PreferencesRepo {
	return &preferencesRepo{db: db, log: baseLog.With("repo", "PreferencesRepo")}
}

func (r *preferencesRepo) GetByExternalID(dbc dbctx.Context, externalUserID string) (*types.UserPreferences, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, nil
	}
	var rows []types.UserPreferences
	if err := dbc.DB(r.db).Where("external_user_id = ?", externalUserID).Limit(1).Find(&rows).Error; err != nil {
		return nil, db.MapError("PreferencesRepo.GetByExternalID", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *preferencesRepo) FindOrCreate(dbc dbctx.Context, defaults *types.UserPreferences) (*types.UserPreferences, bool, error) {
	if defaults == nil || strings.TrimSpace(defaults.ExternalUserID) == "" {
		return nil, false, nil
	}
	var (
		out     *types.UserPreferences
		created bool
	)
	err := db.WithTx(dbc, r.db, func(txc dbctx.Context) error {
		existing, err := r.GetByExternalID(txc, defaults.ExternalUserID)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}
		row := *defaults
		res := txc.DB(r.db).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_user_id"}}, DoNothing: true}).
			Create(&row)
		if res.Error != nil {
			return db.MapError("PreferencesRepo.FindOrCreate", res.Error)
		}
		if res.RowsAffected == 1 {
			created = true
			out = &row
			return nil
		}
		// lost a race with a concurrent first login
		out, err = r.GetByExternalID(txc, defaults.ExternalUserID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *preferencesRepo) Update(dbc dbctx.Context, externalUserID string, displayName *string, emailNotifications bool) (*types.UserPreferences, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, nil
	}
	updates := map[string]interface{}{
		"email_notifications": emailNotifications,
		"updated_at":          time.Now().UTC(),
	}
	if displayName != nil {
		updates["display_name"] = *displayName
	}
	var rows []types.UserPreferences
	res := dbc.DB(r.db).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("external_user_id = ?", externalUserID).
		Updates(updates)
	if res.Error != nil {
		return nil, db.MapError("PreferencesRepo.Update", res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
