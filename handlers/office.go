package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// ListOfficesHandler lists offices visible to the caller. Members see their own.
func ListOfficesHandler(c echo.Context) error {
	page := pageFromQuery(c)
	offices, total, err := services.ListOffices(db.DB, middleware.GetScope(c), page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, offices, total, page)
}

func GetOfficeHandler(c echo.Context) error {
	office, err := services.GetOffice(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, office)
}

// CreateOfficeHandler is superuser only.
func CreateOfficeHandler(c echo.Context) error {
	var in services.OfficeInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	office, err := services.CreateOffice(db.DB, middleware.GetScope(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, office.ID, "Office", office.ID, office.Name, nil, office)
	return c.JSON(http.StatusCreated, office)
}

func UpdateOfficeHandler(c echo.Context) error {
	var in services.OfficeInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetOffice(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	office, err := services.UpdateOffice(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, office.ID, "Office", office.ID, office.Name, old, office)
	return c.JSON(http.StatusOK, office)
}

func DeleteOfficeHandler(c echo.Context) error {
	office, err := services.DeleteOffice(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, "", "Office", office.ID, office.Name, office, nil)
	return noContent(c)
}

// OfficeStatsHandler returns the dashboard counters of one office.
func OfficeStatsHandler(c echo.Context) error {
	stats, err := services.GetOfficeStats(db.DB, middleware.GetScope(c), c.Param("id"), Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
