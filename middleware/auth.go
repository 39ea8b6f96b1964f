package middleware

import (
	"errors"
	"net/http"
	"strings"

	"legalflow/config"
	"legalflow/db"
	"legalflow/models"
	"legalflow/services"
	"legalflow/tenant"

	"github.com/labstack/echo/v4"
)

const (
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeyScope is the context key for the resolved tenant scope
	ContextKeyScope = "scope"
	// ContextKeyConfig is set by the server for every request
	ContextKeyConfig = "config"
)

// RequireAuth validates the Bearer access token, loads the active user and
// resolves the tenant scope. Users without an office are refused.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			cfg := GetConfig(c)
			if cfg == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Configuration not available")
			}

			claims, err := services.ParseToken(cfg, raw, services.TokenTypeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			var user models.User
			if err := db.DB.First(&user, "id = ?", claims.UserID).Error; err != nil || !user.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			scope, err := tenant.Resolve(&user)
			if errors.Is(err, tenant.ErrNoOffice) {
				return echo.NewHTTPError(http.StatusForbidden, "User is not attached to an office")
			}

			c.Set(ContextKeyUser, &user)
			c.Set(ContextKeyScope, scope)
			return next(c)
		}
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass the token as a query parameter.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket") {
		return c.QueryParam("token")
	}
	return ""
}

// RequireCapability allows only users whose role grants capability.
func RequireCapability(capability models.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			if !user.Can(capability) {
				return echo.NewHTTPError(http.StatusForbidden, "Missing permission: "+string(capability))
			}
			return next(c)
		}
	}
}

// RequireSuperuser restricts a route to superusers.
func RequireSuperuser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			if !user.IsSuperuser {
				return echo.NewHTTPError(http.StatusForbidden, "Superuser access required")
			}
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetScope returns the tenant scope of the request. Requests that never went
// through RequireAuth see nothing.
func GetScope(c echo.Context) tenant.Scope {
	scope, ok := c.Get(ContextKeyScope).(tenant.Scope)
	if !ok {
		return tenant.None()
	}
	return scope
}

// GetConfig retrieves the application config from context
func GetConfig(c echo.Context) *config.Config {
	cfg, ok := c.Get(ContextKeyConfig).(*config.Config)
	if !ok {
		return nil
	}
	return cfg
}

// WithConfig exposes cfg to every handler.
func WithConfig(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyConfig, cfg)
			return next(c)
		}
	}
}
