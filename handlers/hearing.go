package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

func ListHearingsHandler(c echo.Context) error {
	page := pageFromQuery(c)
	hearings, total, err := services.ListHearings(db.DB, middleware.GetScope(c), c.QueryParam("case_id"), c.QueryParam("status"), page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, hearings, total, page)
}

func GetHearingHandler(c echo.Context) error {
	hearing, err := services.GetHearing(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, hearing)
}

func CreateHearingHandler(c echo.Context) error {
	var in services.HearingInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	hearing, err := services.CreateHearing(db.DB, middleware.GetScope(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, hearing.OfficeID, "Hearing", hearing.ID, hearing.Type, nil, hearing)
	return c.JSON(http.StatusCreated, hearing)
}

func UpdateHearingHandler(c echo.Context) error {
	var in services.HearingInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetHearing(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	hearing, err := services.UpdateHearing(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, hearing.OfficeID, "Hearing", hearing.ID, hearing.Type, old, hearing)
	return c.JSON(http.StatusOK, hearing)
}

func DeleteHearingHandler(c echo.Context) error {
	hearing, err := services.DeleteHearing(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, hearing.OfficeID, "Hearing", hearing.ID, hearing.Type, hearing, nil)
	return noContent(c)
}

// UpcomingHearingsHandler returns the next ten scheduled or confirmed hearings.
func UpcomingHearingsHandler(c echo.Context) error {
	hearings, err := services.UpcomingHearings(db.DB, middleware.GetScope(c), Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, hearings)
}
