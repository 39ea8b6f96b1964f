package handlers

import (
	"time"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// ListAuditLogsHandler returns the office audit trail, newest first.
func ListAuditLogsHandler(c echo.Context) error {
	filters := services.AuditLogFilters{
		UserID:       c.QueryParam("user_id"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   c.QueryParam("resource_id"),
		Action:       c.QueryParam("action"),
		Search:       c.QueryParam("search"),
	}

	dateFrom, err := queryDate(c, "date_from")
	if err != nil {
		return HTTPError(err)
	}
	if dateFrom != nil {
		filters.DateFrom = *dateFrom
	}
	dateTo, err := queryDate(c, "date_to")
	if err != nil {
		return HTTPError(err)
	}
	if dateTo != nil {
		filters.DateTo = dateTo.Add(24*time.Hour - time.Second) // End of day
	}

	page := pageFromQuery(c)
	logs, total, err := services.ListAuditLogs(db.DB, middleware.GetScope(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, logs, total, page)
}
