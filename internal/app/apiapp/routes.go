package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	redisrepo "github.com/somospye/pyebot-sub000/internal/repo/redis"
	authsvc "github.com/somospye/pyebot-sub000/internal/services/auth"
	"github.com/somospye/pyebot-sub000/internal/services/permissions"
	ratesvc "github.com/somospye/pyebot-sub000/internal/services/rate"
	"github.com/somospye/pyebot-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	RoleStore  handlers.RoleStore
	Resolver   *permissions.Service
	Limiter    *ratesvc.Limiter
	Dashboard  *redisrepo.DashboardRepo
	JWTManager *authsvc.JWTManager
	Logger     *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	rolesHandler := handlers.NewRolesHandler(deps.RoleStore)
	permissionsHandler := handlers.NewPermissionsHandler(deps.Resolver)
	limitsHandler := handlers.NewLimitsHandler(deps.Limiter)
	var dashboardHandler *handlers.DashboardHandler
	if deps.Dashboard != nil {
		permissionsHandler.AttachObserver(deps.Dashboard)
		limitsHandler.AttachObserver(deps.Dashboard)
		dashboardHandler = handlers.NewDashboardHandler(deps.Dashboard)
	} else {
		dashboardHandler = handlers.NewDashboardHandler(nil)
	}

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	adminRoleMW := RequireRole("admin")
	readRoleMW := RequireRole("admin", "viewer")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/guilds/{guild_id}", func(r chi.Router) {
		r.Use(authMW)
		r.With(readRoleMW).Get("/roles", rolesHandler.List)
		r.With(readRoleMW).Get("/roles/{key}", rolesHandler.Get)
		r.With(adminRoleMW).Put("/roles/{key}", rolesHandler.Upsert)
		r.With(readRoleMW).Post("/permissions/resolve", permissionsHandler.Resolve)
		r.With(adminRoleMW).Post("/limits/consume", limitsHandler.Consume)
	})

	r.With(authMW, readRoleMW).Get("/admin/dashboard", dashboardHandler.Get)
}
