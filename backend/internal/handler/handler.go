package handler

import (
	"context"
	"net/http"

	"github.com/itchan-dev/modpolicy/backend/internal/service"
	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// HealthChecker is satisfied by the storage.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services groups every policy service the handlers call.
type Services struct {
	Auth       service.AuthService
	Members    service.MembersService
	Roles      service.RolesService
	Moderation service.ModerationService
	Appeals    service.AppealsService
	Reports    service.ReportsService
	Posts      service.PostsService
	Compliance service.ComplianceService
	Audit      service.AuditService
}

type Handler struct {
	auth       service.AuthService
	members    service.MembersService
	roles      service.RolesService
	moderation service.ModerationService
	appeals    service.AppealsService
	reports    service.ReportsService
	posts      service.PostsService
	compliance service.ComplianceService
	audit      service.AuditService
	render     api.Renderer
	health     HealthChecker
	cfg        *config.Config
}

func New(s Services, render api.Renderer, health HealthChecker, cfg *config.Config) *Handler {
	return &Handler{
		auth:       s.Auth,
		members:    s.Members,
		roles:      s.Roles,
		moderation: s.Moderation,
		appeals:    s.Appeals,
		reports:    s.Reports,
		posts:      s.Posts,
		compliance: s.Compliance,
		audit:      s.Audit,
		render:     render,
		health:     health,
		cfg:        cfg,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	utils.WriteJSON(w, http.StatusOK, v)
}

func writeCreated(w http.ResponseWriter, v any) {
	utils.WriteJSON(w, http.StatusCreated, v)
}
