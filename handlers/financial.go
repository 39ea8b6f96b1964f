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

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Method string  `json:"method"`
}

func financialFilters(c echo.Context) (services.FinancialFilters, error) {
	dueFrom, err := queryDate(c, "due_from")
	if err != nil {
		return services.FinancialFilters{}, err
	}
	dueTo, err := queryDate(c, "due_to")
	if err != nil {
		return services.FinancialFilters{}, err
	}
	overdue := queryBool(c, "overdue")
	return services.FinancialFilters{
		Type:        c.QueryParam("type"),
		Status:      c.QueryParam("status"),
		Category:    c.QueryParam("category"),
		ClientID:    c.QueryParam("client_id"),
		CaseID:      c.QueryParam("case_id"),
		Search:      c.QueryParam("search"),
		DueFrom:     dueFrom,
		DueTo:       dueTo,
		OverdueOnly: overdue != nil && *overdue,
	}, nil
}

func ListFinancialEntriesHandler(c echo.Context) error {
	filters, err := financialFilters(c)
	if err != nil {
		return HTTPError(err)
	}
	page := pageFromQuery(c)
	entries, total, err := services.ListFinancialEntries(db.DB, middleware.GetScope(c), filters, page, Now())
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, services.NewFinancialEntryViews(entries, Now()), total, page)
}

func GetFinancialEntryHandler(c echo.Context) error {
	entry, err := services.GetFinancialEntry(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewFinancialEntryView(*entry, Now()))
}

func CreateFinancialEntryHandler(c echo.Context) error {
	var in services.FinancialEntryInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	entry, err := services.CreateFinancialEntry(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, entry.OfficeID, "FinancialEntry", entry.ID, entry.Description, nil, entry)
	return c.JSON(http.StatusCreated, services.NewFinancialEntryView(*entry, Now()))
}

func UpdateFinancialEntryHandler(c echo.Context) error {
	var in services.FinancialEntryInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetFinancialEntry(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	entry, err := services.UpdateFinancialEntry(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, entry.OfficeID, "FinancialEntry", entry.ID, entry.Description, old, entry)
	return c.JSON(http.StatusOK, services.NewFinancialEntryView(*entry, Now()))
}

func DeleteFinancialEntryHandler(c echo.Context) error {
	entry, err := services.DeleteFinancialEntry(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, entry.OfficeID, "FinancialEntry", entry.ID, entry.Description, entry, nil)
	return noContent(c)
}

// RegisterPaymentHandler adds a (partial) payment to an entry.
func RegisterPaymentHandler(c echo.Context) error {
	var req paymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := services.RegisterPayment(db.DB, middleware.GetScope(c), c.Param("id"), req.Amount, req.Method, Now())
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, entry.OfficeID, "FinancialEntry", entry.ID, entry.Description, nil, map[string]interface{}{
		"payment": req.Amount,
		"status":  entry.Status,
	})
	return c.JSON(http.StatusOK, services.NewFinancialEntryView(*entry, Now()))
}

// FinancialSummaryHandler returns the current month totals.
func FinancialSummaryHandler(c echo.Context) error {
	summary, err := services.GetFinancialSummary(db.DB, middleware.GetScope(c), Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ExportFinancialEntriesHandler streams the filtered entries as XLSX.
func ExportFinancialEntriesHandler(c echo.Context) error {
	filters, err := financialFilters(c)
	if err != nil {
		return HTTPError(err)
	}
	buf, err := services.ExportFinancialEntries(db.DB, middleware.GetScope(c), filters, Now())
	if err != nil {
		return HTTPError(err)
	}
	filename := fmt.Sprintf("financeiro_%s.xlsx", Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
