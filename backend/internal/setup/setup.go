package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/modpolicy/backend/internal/handler"
	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/backend/internal/storage/pg"
	"github.com/itchan-dev/modpolicy/backend/internal/utils/email"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/crypto"
	"github.com/itchan-dev/modpolicy/shared/jwt"
	"github.com/itchan-dev/modpolicy/shared/logger"
	"github.com/itchan-dev/modpolicy/shared/markup"
	mw "github.com/itchan-dev/modpolicy/shared/middleware"
	"github.com/itchan-dev/modpolicy/shared/sanction"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Storage        *pg.Storage
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth
	Sanctions      *sanction.Cache
	Roles          service.RolesService
}

// SetupDependencies initializes all dependencies required for the application.
// The sanction cache refreshes in the background until ctx is done.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(cfg)
	if err != nil {
		return nil, err
	}

	pii, err := crypto.NewPII(cfg.Private.EncryptionKey)
	if err != nil {
		storage.Cleanup()
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	sanctions := sanction.NewCache(storage, cfg.JwtTTL())
	if err := sanctions.Update(ctx); err != nil {
		storage.Cleanup()
		return nil, fmt.Errorf("initial sanction cache load: %w", err)
	}
	sanctions.StartBackgroundUpdate(ctx, cfg.Public.SanctionCacheInterval)

	email := email.New(&cfg.Private.Email)
	jwt := jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	markup := markup.New()
	public := &cfg.Public

	services := handler.Services{
		Auth:       service.NewAuth(storage, email, jwt, pii, public),
		Members:    service.NewMembers(storage, sanctions, public),
		Roles:      service.NewRoles(storage, public),
		Moderation: service.NewModeration(storage, markup, public),
		Appeals:    service.NewAppeals(storage, markup, public),
		Reports:    service.NewReports(storage, markup, public),
		Posts:      service.NewPosts(storage, markup, public),
		Compliance: service.NewCompliance(storage, markup, sanctions, public),
		Audit:      service.NewAudit(storage, public),
	}
	h := handler.New(services, markup.RenderNarrative, storage, cfg)

	logger.Log.Info("dependencies ready", "page_size", public.PageSize, "post_deletion_window", public.PostDeletionWindow)

	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		Handler:        h,
		AuthMiddleware: mw.NewAuth(jwt, sanctions, cfg.Public.SecureCookies),
		Sanctions:      sanctions,
		Roles:          services.Roles,
	}, nil
}
