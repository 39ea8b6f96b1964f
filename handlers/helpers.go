package handlers

import (
	"net/http"
	"strconv"
	"time"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// Now is the clock used by handlers; tests pin it.
var Now = time.Now

// UseLocation makes Now report the office time zone, so business hours and
// "today" match what the scheduled sweeps see.
func UseLocation(loc *time.Location) {
	base := Now
	Now = func() time.Time { return base().In(loc) }
}

// PageResponse is the envelope of every list endpoint.
type PageResponse struct {
	Results    interface{} `json:"results"`
	Count      int64       `json:"count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func pageFromQuery(c echo.Context) services.Page {
	number, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size == 0 {
		if cfg := middleware.GetConfig(c); cfg != nil && cfg.PageSize > 0 {
			size = cfg.PageSize
		}
	}
	return services.NewPage(number, size)
}

func paginated(c echo.Context, results interface{}, total int64, page services.Page) error {
	return c.JSON(http.StatusOK, PageResponse{
		Results:    results,
		Count:      total,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages(total),
	})
}

// bindAndValidate decodes the JSON body into dest and runs struct validation.
func bindAndValidate(c echo.Context, dest interface{}) error {
	if err := c.Bind(dest); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return HTTPError(c.Validate(dest))
}

func queryBool(c echo.Context, name string) *bool {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	return services.ParseOptionalDate(name, c.QueryParam(name))
}

// audit records a change in the background with the request's actor.
func audit(c echo.Context, action models.AuditAction, officeID, resourceType, resourceID, resourceName string, old, new interface{}) {
	services.RecordAuditAsync(db.DB, middleware.GetAuditActor(c), services.AuditRecord{
		Action:       action,
		OfficeID:     officeID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Old:          old,
		New:          new,
	})
}

func noContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
