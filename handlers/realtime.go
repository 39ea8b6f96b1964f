package handlers

import (
	"net/http"
	"strings"

	"legalflow/middleware"
	"legalflow/realtime"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// allowedOrigin accepts same-host requests and the configured origins.
func allowedOrigin(c echo.Context) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		cfg := middleware.GetConfig(c)
		if cfg == nil {
			return false
		}
		for _, allowed := range cfg.AllowedOrigins {
			allowed = strings.TrimSpace(allowed)
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return strings.HasSuffix(origin, "://"+r.Host)
	}
}

// RealtimeHandler upgrades to a websocket that receives the office's events.
// Superusers choose the office with ?office_id=.
func RealtimeHandler(hub *realtime.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := middleware.GetCurrentUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		officeID, ok := middleware.GetScope(c).OfficeID()
		if !ok {
			officeID = c.QueryParam("office_id")
		}
		if officeID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "office_id is required")
		}

		up := upgrader
		up.CheckOrigin = allowedOrigin(c)
		conn, err := up.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("Websocket upgrade failed")
			return nil
		}

		realtime.NewClient(hub, conn, officeID, user.ID).Serve()
		return nil
	}
}
