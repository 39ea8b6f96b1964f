package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

func ListCasesHandler(c echo.Context) error {
	page := pageFromQuery(c)
	filters := services.CaseFilters{
		Situation:     c.QueryParam("situation"),
		Type:          c.QueryParam("type"),
		ClientID:      c.QueryParam("client_id"),
		ResponsibleID: c.QueryParam("responsible_id"),
		Search:        c.QueryParam("search"),
	}
	cases, total, err := services.ListCases(db.DB, middleware.GetScope(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	now := Now()
	views := make([]services.CaseView, len(cases))
	for i, kase := range cases {
		views[i] = services.NewCaseView(kase, now)
	}
	return paginated(c, views, total, page)
}

func GetCaseHandler(c echo.Context) error {
	kase, err := services.GetCase(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewCaseView(*kase, Now()))
}

func CreateCaseHandler(c echo.Context) error {
	var in services.CaseInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	kase, err := services.CreateCase(db.DB, middleware.GetScope(c), in, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, kase.OfficeID, "Case", kase.ID, kase.FilingNumber, nil, kase)
	return c.JSON(http.StatusCreated, services.NewCaseView(*kase, Now()))
}

func UpdateCaseHandler(c echo.Context) error {
	var in services.CaseInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetCase(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	kase, err := services.UpdateCase(db.DB, scope, old.ID, in, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, kase.OfficeID, "Case", kase.ID, kase.FilingNumber, old, kase)
	return c.JSON(http.StatusOK, services.NewCaseView(*kase, Now()))
}

func DeleteCaseHandler(c echo.Context) error {
	kase, err := services.DeleteCase(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, kase.OfficeID, "Case", kase.ID, kase.FilingNumber, kase, nil)
	return noContent(c)
}

// FilingNumberRequest assembles a CNJ number from its parts
type FilingNumberRequest struct {
	Sequence int    `json:"sequence" validate:"gte=0"`
	Year     int    `json:"year" validate:"required"`
	Segment  string `json:"segment" validate:"required,len=1"`
	Court    int    `json:"court" validate:"gte=0"`
	Origin   int    `json:"origin" validate:"gte=0"`
}

// BuildFilingNumberHandler returns the masked number with its check digits.
func BuildFilingNumberHandler(c echo.Context) error {
	var req FilingNumberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	number, err := services.BuildFilingNumber(req.Sequence, req.Year, req.Segment, req.Court, req.Origin)
	if err != nil {
		return HTTPError(err)
	}
	parts, err := services.ParseFilingNumber(number)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"filing_number": number,
		"segment_name":  parts.SegmentName(),
		"components":    parts,
	})
}
