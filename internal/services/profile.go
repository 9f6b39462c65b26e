package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/vedablog/internal/data/repos"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/domain/user"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

const maxDisplayNameLength = 255

type ProfileUpdate struct {
	DisplayName        string
	EmailNotifications bool
}

type ProfileService interface {
	Get(ctx context.Context, p *session.Principal) (*user.Preferences, error)
	// Update writes the preferences row and refreshes the copy held in the session.
	Update(ctx context.Context, sess *session.Session, in ProfileUpdate) (*user.Preferences, error)
}

type profileService struct {
	log      *logger.Logger
	prefs    repos.PreferencesRepo
	sessions session.Store
}

func NewProfileService(log *logger.Logger, prefs repos.PreferencesRepo, sessions session.Store) ProfileService {
	return &profileService{
		log:      log.With("service", "ProfileService"),
		prefs:    prefs,
		sessions: sessions,
	}
}

func (s *profileService) Get(ctx context.Context, p *session.Principal) (*user.Preferences, error) {
	const op = "ProfileService.Get"
	if p == nil {
		return nil, apperr.Auth(apperr.SessionAbsent, op, "Authentication required", nil)
	}
	row, err := s.prefs.GetByExternalID(dbctx.New(ctx), p.Subject)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.NotFoundf(op, "Profile not found")
	}
	return row, nil
}

func (s *profileService) Update(ctx context.Context, sess *session.Session, in ProfileUpdate) (*user.Preferences, error) {
	const op = "ProfileService.Update"
	if sess == nil {
		return nil, apperr.Auth(apperr.SessionAbsent, op, "Authentication required", nil)
	}
	name := strings.TrimSpace(in.DisplayName)
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return nil, apperr.Validationf(op, "Display name too long (max %d characters)", maxDisplayNameLength)
	}
	var namePtr *string
	if name != "" {
		namePtr = &name
	}

	row, err := s.prefs.Update(dbctx.New(ctx), sess.Principal.Subject, namePtr, in.EmailNotifications)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperr.NotFoundf(op, "Profile not found")
	}

	sess.Principal.Preferences = row
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.Warn("session refresh after profile update failed", "session_id", sess.ID, "error", err)
	}
	return row, nil
}
