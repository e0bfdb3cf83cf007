package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/beacon-attendance/internal/config"
    "github.com/iliyamo/beacon-attendance/internal/handler"
    "github.com/iliyamo/beacon-attendance/internal/middleware"
    "github.com/iliyamo/beacon-attendance/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health
// check, used by load balancers and monitoring to verify the service
// is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth; /v1/me demonstrates
// a protected endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole(model.RoleMember, model.RoleOfficer))
    auth.GET("/me", a.Me)
}

// RegisterSessions registers the session lifecycle and attendance
// routes.  All of them require a valid access token; write operations
// on sessions additionally require the OFFICER role.  When a Redis
// client is available the check-in and create endpoints sit behind a
// token-bucket rate limiter; with rdb nil the limiter middleware is
// skipped and the API degrades to unlimited.
func RegisterSessions(e *echo.Echo, s *handler.SessionHandler, at *handler.AttendanceHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole(model.RoleMember, model.RoleOfficer))

    var limited echo.MiddlewareFunc
    if rdb != nil && rlCfg.Enabled {
        limited = middleware.NewTokenBucket(rlCfg, rdb)
    }

    // Officer-only lifecycle endpoints.
    officer := e.Group("/v1")
    officer.Use(middleware.JWTAuth(jwtSecret))
    officer.Use(middleware.RequireRole(model.RoleOfficer))
    if limited != nil {
        officer.POST("/sessions", s.Create, limited)
    } else {
        officer.POST("/sessions", s.Create)
    }
    officer.DELETE("/sessions/:token", s.Terminate)
    officer.POST("/sessions/cleanup", s.Cleanup)
    officer.GET("/sessions/:token/attendance", at.List)

    // Any authenticated member of the organization.
    auth.GET("/sessions", s.ListActive)
    auth.GET("/sessions/beacon", s.FindByBeacon)
    auth.GET("/sessions/:token", s.Resolve)
    auth.GET("/sessions/:token/status", s.Status)
    if limited != nil {
        auth.POST("/attendance", at.CheckIn, limited)
    } else {
        auth.POST("/attendance", at.CheckIn)
    }
}
