package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/diggingyuhak/community-api/docs"
	"github.com/diggingyuhak/community-api/internal/api/handler"
	"github.com/diggingyuhak/community-api/internal/api/middleware"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

const requestBodyLimit = "1M"

// Deps carries everything the router needs to build handlers and guards.
type Deps struct {
	BasePath   string
	Production bool
	Logger     zerolog.Logger
	Policy     *policy.Policy

	Auth     ports.AuthService
	Users    ports.UserService
	Posts    ports.PostService
	Articles ports.ArticleService

	// Health checks keyed by dependency name, e.g. "mongodb".
	Checks map[string]handler.Check

	// Registry receives the HTTP request metrics. Nil uses the default
	// Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger, d.Production)

	// --- Global middleware ---
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Recover())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsConfig(d.Registry)))
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))

	// --- Operational routes ---
	health := handler.NewHealthHandler(d.Checks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	p := d.Policy
	authn := middleware.Authenticate(d.Auth)
	optional := middleware.OptionalAuthenticate(d.Auth, d.Logger)

	base := e.Group(d.BasePath)

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Auth, p)
	auth := base.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me, authn)
	auth.POST("/refresh", authHandler.Refresh, authn)
	auth.POST("/logout", authHandler.Logout, authn)

	// --- Users ---
	userHandler := handler.NewUserHandler(d.Users, p)
	users := base.Group("/api/users", authn)
	manage := middleware.RequirePermission(p, domain.PermManageUsers)
	changeRoles := middleware.RequirePermission(p, domain.PermChangeRoles)
	users.GET("", userHandler.List, manage)
	users.GET("/pending", userHandler.Pending, manage)
	users.GET("/roles", userHandler.Roles, manage)
	users.PUT("/permissions", userHandler.UpdatePermissions, middleware.RequirePermission(p, domain.PermSystemSettings))
	users.PUT("/me/profile", userHandler.UpdateProfile)
	users.PUT("/me/password", userHandler.ChangePassword)
	users.PUT("/:userId/approve", userHandler.Approve, changeRoles)
	users.PUT("/:userId/approve-simple", userHandler.ApproveSimple, changeRoles)
	users.PUT("/:userId/role", userHandler.ChangeRole, changeRoles)
	users.PUT("/:userId/status", userHandler.SetStatus, manage)
	users.DELETE("/:userId/reject", userHandler.Reject, manage)
	users.DELETE("/:userId", userHandler.Delete, manage)

	// --- Community ---
	postHandler := handler.NewPostHandler(d.Posts)
	community := base.Group("/api/community")
	ownPost := middleware.RequireOwnershipOrPermission(p, "id", d.Posts.Owner, domain.PermModerateCommunity)
	community.GET("", postHandler.List)
	community.GET("/:id", postHandler.Get, optional)
	community.POST("", postHandler.Create, authn, middleware.CanCreatePosts(p))
	community.PUT("/:id", postHandler.Update, authn, ownPost)
	community.DELETE("/:id", postHandler.Delete, authn, ownPost)

	// --- Magazine ---
	articleHandler := handler.NewArticleHandler(d.Articles)
	magazines := base.Group("/api/magazines")
	magazines.GET("", articleHandler.List)
	magazines.GET("/:id", articleHandler.Get, optional)
	magazines.POST("", articleHandler.Create, authn, middleware.RequirePermission(p, domain.PermWriteMagazine))
	magazines.PUT("/:id", articleHandler.Update, authn,
		middleware.RequireOwnershipOrPermission(p, "id", d.Articles.Owner, domain.PermEditMagazine))
	magazines.DELETE("/:id", articleHandler.Delete, authn,
		middleware.RequireOwnershipOrPermission(p, "id", d.Articles.Owner, domain.PermDeleteMagazine))

	return e
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			} else if v.Status >= 400 {
				ev = log.Warn()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func metricsConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{Subsystem: "community"}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
