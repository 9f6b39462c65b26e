package app

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/services"
	"github.com/yungbote/vedablog/internal/session"
)

type Services struct {
	Identity     services.IdentityBridge
	Destinations services.DestinationService
	Engagement   services.EngagementService
	Profiles     services.ProfileService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, sessions session.Store) (Services, error) {
	log.Info("Wiring services...")

	idpClient := &http.Client{Timeout: cfg.Keycloak.Timeout}
	identityCfg := services.IdentityConfig{
		PublicURL:     cfg.Keycloak.PublicURL,
		InternalURL:   cfg.Keycloak.URL,
		Realm:         cfg.Keycloak.Realm,
		ClientID:      cfg.Keycloak.ClientID,
		ClientSecret:  cfg.Keycloak.ClientSecret,
		RedirectURL:   cfg.RedirectURL(),
		PostLogoutURL: cfg.PostLogoutURL(),
		Scopes:        cfg.Keycloak.Scopes,
		Timeout:       cfg.Keycloak.Timeout,
		SessionTTL:    cfg.Session.TTL,
	}
	verifier, err := services.NewOIDCVerifier(idpClient, services.OIDCVerifierConfig{
		JWKSURL:       identityCfg.JWKSURL(),
		Issuers:       identityCfg.Issuers(),
		ClientID:      identityCfg.ClientID,
		SkipSignature: !cfg.Keycloak.VerifySignature,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init id token verifier: %w", err)
	}
	if !cfg.Keycloak.VerifySignature {
		log.Warn("IDP_VERIFY_SIGNATURE=false: identity tokens are decoded without verification")
	}

	identity, err := services.NewIdentityBridge(log, identityCfg, idpClient, verifier, reposet.Preferences, sessions)
	if err != nil {
		return Services{}, fmt.Errorf("init identity bridge: %w", err)
	}

	legacy := services.NewLegacyContent(cfg.HTTP.LegacyContentDir)

	return Services{
		Identity: identity,
		Destinations: services.NewDestinationService(
			log, reposet.Destinations, reposet.Favorites, reposet.Comments, reposet.Ratings, legacy,
		),
		Engagement: services.NewEngagementService(
			db, log, reposet.Destinations, reposet.Favorites, reposet.Comments, reposet.Ratings, cfg.Keycloak.ModeratorRole,
		),
		Profiles: services.NewProfileService(log, reposet.Preferences, sessions),
	}, nil
}
