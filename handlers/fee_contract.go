package handlers

import (
	"fmt"
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

func ListFeeContractsHandler(c echo.Context) error {
	page := pageFromQuery(c)
	contracts, total, err := services.ListFeeContracts(db.DB, middleware.GetScope(c), c.QueryParam("client_id"), page)
	if err != nil {
		return HTTPError(err)
	}
	views := make([]services.FeeContractView, len(contracts))
	for i, f := range contracts {
		views[i] = services.NewFeeContractView(f)
	}
	return paginated(c, views, total, page)
}

func GetFeeContractHandler(c echo.Context) error {
	contract, err := services.GetFeeContract(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewFeeContractView(*contract))
}

func CreateFeeContractHandler(c echo.Context) error {
	var in services.FeeContractInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	contract, err := services.CreateFeeContract(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), in, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, contract.OfficeID, "FeeContract", contract.ID, contract.Type, nil, contract)
	return c.JSON(http.StatusCreated, services.NewFeeContractView(*contract))
}

func UpdateFeeContractHandler(c echo.Context) error {
	var in services.FeeContractInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetFeeContract(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	contract, err := services.UpdateFeeContract(db.DB, scope, old.ID, in, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, contract.OfficeID, "FeeContract", contract.ID, contract.Type, old, contract)
	return c.JSON(http.StatusOK, services.NewFeeContractView(*contract))
}

func DeleteFeeContractHandler(c echo.Context) error {
	contract, err := services.DeleteFeeContract(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, contract.OfficeID, "FeeContract", contract.ID, contract.Type, contract, nil)
	return noContent(c)
}

// GenerateInstallmentsHandler replaces the contract's installments.
func GenerateInstallmentsHandler(c echo.Context) error {
	scope := middleware.GetScope(c)
	entries, err := services.GenerateInstallments(db.DB, scope, middleware.GetCurrentUser(c), c.Param("id"), Now())
	if err != nil {
		return HTTPError(err)
	}
	if len(entries) > 0 {
		audit(c, models.AuditActionGenerate, entries[0].OfficeID, "FeeContract", c.Param("id"), "", nil, map[string]int{"installments": len(entries)})
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"count":        len(entries),
		"installments": services.NewFinancialEntryViews(entries, Now()),
	})
}

// FeeContractPDFHandler renders and stores the contract summary, then
// returns it inline.
func FeeContractPDFHandler(c echo.Context) error {
	contract, pdf, err := services.GenerateFeeContractPDF(c.Request().Context(), db.DB, services.Storage, services.PDF, middleware.GetScope(c), c.Param("id"), Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionGenerate, contract.OfficeID, "FeeContract", contract.ID, "pdf", nil, nil)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", "contrato_"+contract.ID+".pdf"))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
