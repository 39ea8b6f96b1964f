package middleware

import (
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyAuditActor = "audit_actor"

// AuditContext captures who is acting for the audit log. Runs after RequireAuth.
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := services.ActorFor(GetCurrentUser(c), c.RealIP(), c.Request().UserAgent())
			c.Set(ContextKeyAuditActor, actor)
			return next(c)
		}
	}
}

// GetAuditActor retrieves the audit actor from the request
func GetAuditActor(c echo.Context) services.AuditActor {
	if actor, ok := c.Get(ContextKeyAuditActor).(services.AuditActor); ok {
		return actor
	}
	return services.ActorFor(GetCurrentUser(c), c.RealIP(), c.Request().UserAgent())
}
