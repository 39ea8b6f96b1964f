package handlers

import (
	"net/http"
	"strconv"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

func ListDeadlinesHandler(c echo.Context) error {
	page := pageFromQuery(c)
	dueFrom, err := queryDate(c, "due_from")
	if err != nil {
		return HTTPError(err)
	}
	dueTo, err := queryDate(c, "due_to")
	if err != nil {
		return HTTPError(err)
	}
	filters := services.DeadlineFilters{
		CaseID:        c.QueryParam("case_id"),
		Status:        c.QueryParam("status"),
		Priority:      c.QueryParam("priority"),
		ResponsibleID: c.QueryParam("responsible_id"),
		DueFrom:       dueFrom,
		DueTo:         dueTo,
	}
	deadlines, total, err := services.ListDeadlines(db.DB, middleware.GetScope(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, services.NewDeadlineViews(deadlines, Now()), total, page)
}

func GetDeadlineHandler(c echo.Context) error {
	deadline, err := services.GetDeadline(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewDeadlineView(*deadline, Now()))
}

func CreateDeadlineHandler(c echo.Context) error {
	var in services.DeadlineInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	deadline, err := services.CreateDeadline(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), in, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, deadline.OfficeID, "Deadline", deadline.ID, deadline.Title, nil, deadline)
	return c.JSON(http.StatusCreated, services.NewDeadlineView(*deadline, Now()))
}

func UpdateDeadlineHandler(c echo.Context) error {
	var in services.DeadlineInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetDeadline(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	deadline, err := services.UpdateDeadline(db.DB, scope, old.ID, in, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, deadline.OfficeID, "Deadline", deadline.ID, deadline.Title, old, deadline)
	return c.JSON(http.StatusOK, services.NewDeadlineView(*deadline, Now()))
}

func DeleteDeadlineHandler(c echo.Context) error {
	deadline, err := services.DeleteDeadline(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, deadline.OfficeID, "Deadline", deadline.ID, deadline.Title, deadline, nil)
	return noContent(c)
}

// CompleteDeadlineHandler marks a deadline done today.
func CompleteDeadlineHandler(c echo.Context) error {
	deadline, err := services.CompleteDeadline(db.DB, middleware.GetScope(c), c.Param("id"), Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, deadline.OfficeID, "Deadline", deadline.ID, deadline.Title, nil, map[string]string{"status": deadline.Status})
	return c.JSON(http.StatusOK, services.NewDeadlineView(*deadline, Now()))
}

// UpcomingDeadlinesHandler lists pending deadlines due in the next ?days= (7).
func UpcomingDeadlinesHandler(c echo.Context) error {
	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 365 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be between 0 and 365")
		}
		days = n
	}
	deadlines, err := services.UpcomingDeadlines(db.DB, middleware.GetScope(c), days, Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewDeadlineViews(deadlines, Now()))
}
