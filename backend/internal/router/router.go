package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/itchan-dev/modpolicy/backend/internal/setup"
	"github.com/itchan-dev/modpolicy/shared/csrf"
	mw "github.com/itchan-dev/modpolicy/shared/middleware"
	"github.com/itchan-dev/modpolicy/shared/middleware/metrics"
	rl "github.com/itchan-dev/modpolicy/shared/middleware/ratelimiter"
)

// New creates the chi router with all the routes.
// IMPORTANT! ratelimiters set with .Use limit requests for all endpoints of that group combined
func New(deps *setup.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", csrf.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeaders(deps.Config.Public.SecureCookies, mw.APIContentSecurityPolicy))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(chimiddleware.Timeout(30 * time.Second))

		v1.Route("/auth", func(auth chi.Router) {
			// Endpoints sending email
			auth.Group(func(g chi.Router) {
				g.Use(mw.RateLimit(rl.New(1.0/10, 1, time.Hour), mw.GetEmailFromBody))
				g.Use(mw.RateLimit(rl.New(1.0/10, 1, time.Hour), mw.GetIP))
				g.Use(mw.GlobalRateLimit(rl.Rps(100)))
				g.Post("/register", h.Register)
			})

			// Confirmation codes are short, so brute force is limited harder
			auth.Group(func(g chi.Router) {
				g.Use(mw.RateLimit(rl.New(5.0/600.0, 5, time.Hour), mw.GetEmailFromBody))
				g.Use(mw.RateLimit(rl.New(1, 1, time.Hour), mw.GetIP))
				g.Use(mw.GlobalRateLimit(rl.Rps(100)))
				g.Post("/confirm", h.ConfirmEmail)
			})

			auth.Group(func(g chi.Router) {
				g.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetIP))
				g.Use(mw.GlobalRateLimit(rl.Rps(1000)))
				g.Post("/login", h.Login)
				g.Post("/refresh", h.Refresh)
			})

			auth.Post("/logout", h.Logout)
		})

		// Any signed-in actor. Services decide what each role may see or do.
		v1.Group(func(g chi.Router) {
			g.Use(authMw.NeedAuth())
			g.Use(csrf.Protect)
			g.Use(mw.RateLimit(rl.Rps(100), mw.GetMemberIDFromContext))

			g.Get("/members/{memberId}", h.GetMember)

			g.With(mw.RateLimit(rl.OnceInMinute(), mw.GetMemberIDFromContext)).Post("/posts", h.CreatePost)
			g.Get("/posts/{postId}", h.GetPost)
			g.Delete("/posts/{postId}", h.DeletePost)
			g.With(mw.RateLimit(rl.OnceInSecond(), mw.GetMemberIDFromContext)).Post("/posts/{postId}/comments", h.CreateComment)
			g.Get("/posts/{postId}/comments", h.ListComments)
			g.Delete("/comments/{commentId}", h.DeleteComment)

			g.Post("/reports", h.SubmitReport)
			g.Get("/reports", h.ListReports)
			g.Get("/reports/{reportId}", h.GetReport)
			g.Delete("/reports/{reportId}", h.DeleteReport)

			g.Post("/appeals", h.FileAppeal)
			g.Get("/appeals", h.ListAppeals)
			g.Get("/appeals/{appealId}", h.GetAppeal)
			g.Delete("/appeals/{appealId}", h.WithdrawAppeal)

			g.Get("/moderation/actions/{actionId}", h.GetAction)

			g.Route("/compliance", func(c chi.Router) {
				c.Post("/erasure-requests", h.SubmitErasureRequest)
				c.Get("/erasure-requests", h.ListErasureRequests)
				c.Get("/erasure-requests/{requestId}", h.GetErasureRequest)
				c.Delete("/erasure-requests/{requestId}", h.DeleteErasureRequest)

				c.With(mw.RateLimit(rl.OnceInMinute(), mw.GetMemberIDFromContext)).Post("/dashboards", h.RequestDashboard)
				c.Get("/dashboards/{dashboardId}", h.GetDashboard)
				c.Delete("/dashboards/{dashboardId}", h.DeleteDashboard)
			})
		})

		// Moderator routes
		v1.Group(func(g chi.Router) {
			g.Use(authMw.ModeratorOnly())
			g.Use(csrf.Protect)

			g.Get("/members", h.ListMembers)
			g.Put("/members/{memberId}/status", h.SetMemberStatus)

			g.Get("/roles", h.ListRoles)
			g.Get("/roles/{assignmentId}", h.GetRole)

			g.Post("/reports/{reportId}/review", h.ReviewReport)
			g.Post("/appeals/{appealId}/transition", h.TransitionAppeal)

			g.Post("/moderation/actions", h.CreateAction)
			g.Get("/moderation/actions", h.ListActions)
			g.Patch("/moderation/actions/{actionId}", h.UpdateAction)
			g.Delete("/moderation/actions/{actionId}", h.DeleteAction)
			g.Post("/moderation/actions/{actionId}/logs", h.AppendLog)
			g.Get("/moderation/actions/{actionId}/logs", h.ListLogs)
			g.Patch("/moderation/logs/{logId}", h.UpdateLog)
			g.Delete("/moderation/logs/{logId}", h.DeleteLog)
		})

		// Admin routes
		v1.Group(func(g chi.Router) {
			g.Use(authMw.AdminOnly())
			g.Use(csrf.Protect)

			g.Post("/roles", h.EscalateRole)
			g.Delete("/roles/{assignmentId}", h.RevokeRole)
			g.Post("/roles/{assignmentId}/reactivate", h.ReactivateRole)

			g.Route("/admin", func(a chi.Router) {
				a.Post("/members", h.CreateMember)
				a.Delete("/members/{memberId}", h.DeleteMember)
				a.Delete("/moderation/actions/{actionId}", h.HardDeleteAction)
				a.Get("/audit", h.ListAudit)

				a.Patch("/compliance/erasure-requests/{requestId}", h.UpdateErasureRequest)
				a.Post("/compliance/events", h.RecordEvent)
				a.Get("/compliance/events", h.ListEvents)
				a.Post("/compliance/events/{eventId}/resolve", h.ResolveEvent)
				a.Patch("/compliance/dashboards/{dashboardId}", h.UpdateDashboard)
			})
		})
	})

	return r
}
