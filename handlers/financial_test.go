package handlers

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"legalflow/models"
	"legalflow/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func seedEntry(t *testing.T, database *gorm.DB, f fixture, typ, status string, amount float64, due time.Time) {
	t.Helper()
	entry := &models.FinancialEntry{
		OfficeID:    f.office.ID,
		ClientID:    &f.client.ID,
		Type:        typ,
		Category:    "fees",
		Description: typ + " " + status,
		Amount:      amount,
		DueDate:     due,
		Status:      status,
	}
	require.NoError(t, database.Create(entry).Error)
}

func TestFinancialSummary(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	pinClock(t, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	seedEntry(t, database, f, models.EntryRevenue, models.EntryPending, 1000, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))
	seedEntry(t, database, f, models.EntryRevenue, models.EntryCanceled, 5000, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))
	seedEntry(t, database, f, models.EntryExpense, models.EntryPending, 300, time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC))
	seedEntry(t, database, f, models.EntryRevenue, models.EntryPending, 700, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC))

	rec := do(t, e, http.MethodGet, "/api/financial-entries/summary", f.finance, nil)
	expectStatus(t, rec, http.StatusOK)

	var summary services.FinancialSummary
	decode(t, rec, &summary)
	assert.Equal(t, "2026-10", summary.Month)
	assert.InDelta(t, 1000, summary.RevenueMonth, 0.001)
	assert.InDelta(t, 300, summary.ExpenseMonth, 0.001)
	assert.InDelta(t, 700, summary.BalanceMonth, 0.001)
	// September revenue and the expense due on the 5th are past due
	assert.Equal(t, int64(2), summary.OverdueCount)
	assert.InDelta(t, 1000, summary.OverdueAmount, 0.001)
	assert.InDelta(t, 1700, summary.ReceivableOpen, 0.001)
}

func TestFinancialRequiresCapability(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")

	rec := do(t, e, http.MethodGet, "/api/financial-entries", f.lawyer, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = do(t, e, http.MethodGet, "/api/financial-entries", f.finance, nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestExportFinancialEntries(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	pinClock(t, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	seedEntry(t, database, f, models.EntryRevenue, models.EntryPending, 1250.75, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))
	seedEntry(t, database, f, models.EntryExpense, models.EntryPaid, 80, time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC))

	rec := do(t, e, http.MethodGet, "/api/financial-entries/export", f.admin, nil)
	expectStatus(t, rec, http.StatusOK)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "financeiro_20261016.xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Financeiro")
	require.NoError(t, err)
	assert.Len(t, rows, 3) // header plus two entries
	assert.Equal(t, "Vencimento", rows[0][0])
}

func TestRegisterPayment(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	pinClock(t, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	rec := do(t, e, http.MethodPost, "/api/financial-entries", f.finance, map[string]interface{}{
		"type":        models.EntryRevenue,
		"description": "Honorários iniciais",
		"amount":      1000,
		"due_date":    "2026-10-30",
		"client_id":   f.client.ID,
	})
	expectStatus(t, rec, http.StatusCreated)
	var entry models.FinancialEntry
	decode(t, rec, &entry)
	assert.Equal(t, models.EntryPending, entry.Status)

	rec = do(t, e, http.MethodPost, "/api/financial-entries/"+entry.ID+"/payments", f.finance, map[string]interface{}{
		"amount": 400,
	})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &entry)
	assert.Equal(t, models.EntryPartial, entry.Status)
	assert.InDelta(t, 400, entry.AmountPaid, 0.001)

	rec = do(t, e, http.MethodPost, "/api/financial-entries/"+entry.ID+"/payments", f.finance, map[string]interface{}{
		"amount": 600,
	})
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &entry)
	assert.Equal(t, models.EntryPaid, entry.Status)
	require.NotNil(t, entry.PaidAt)
}

func TestGenerateInstallments(t *testing.T) {
	database := setupTestDB(t)
	e, _ := newServer(t)
	f := seedOffice(t, database, "Silva")
	kase := seedCase(t, database, f, "0001234-56.2026.8.26.0100")
	pinClock(t, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	rec := do(t, e, http.MethodPost, "/api/fee-contracts", f.finance, map[string]interface{}{
		"case_id":      kase.ID,
		"type":         "fixed",
		"total_amount": 1000,
		"installments": 3,
		"due_day":      10,
	})
	expectStatus(t, rec, http.StatusCreated)
	var contract models.FeeContract
	decode(t, rec, &contract)

	rec = do(t, e, http.MethodPost, "/api/fee-contracts/"+contract.ID+"/generate-installments", f.finance, nil)
	expectStatus(t, rec, http.StatusCreated)
	var body struct {
		Count        int                     `json:"count"`
		Installments []models.FinancialEntry `json:"installments"`
	}
	decode(t, rec, &body)
	require.Equal(t, 3, body.Count)
	assert.InDelta(t, 333.33, body.Installments[0].Amount, 0.001)
	assert.InDelta(t, 333.34, body.Installments[2].Amount, 0.001)
	assert.Equal(t, "2026-11-10", body.Installments[1].DueDate.Format("2006-01-02"))

	// Regenerating replaces the previous set
	rec = do(t, e, http.MethodPost, "/api/fee-contracts/"+contract.ID+"/generate-installments", f.finance, nil)
	expectStatus(t, rec, http.StatusCreated)
	var count int64
	database.Model(&models.FinancialEntry{}).Where("fee_contract_id = ?", contract.ID).Count(&count)
	assert.Equal(t, int64(3), count)
}
