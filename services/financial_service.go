package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinancialEntryInput is the writable part of a FinancialEntry
type FinancialEntryInput struct {
	OfficeID          string  `json:"office_id"`
	ClientID          *string `json:"client_id"`
	CaseID            *string `json:"case_id"`
	Type              string  `json:"type" validate:"required,oneof=revenue expense transfer"`
	Category          string  `json:"category"`
	Description       string  `json:"description" validate:"required,max=300"`
	Amount            float64 `json:"amount" validate:"gte=0"`
	AmountPaid        float64 `json:"amount_paid" validate:"gte=0"`
	DueDate           string  `json:"due_date" validate:"required"`
	PaidAt            string  `json:"paid_at"`
	CompetenceDate    string  `json:"competence_date"`
	Status            string  `json:"status"`
	PaymentMethod     string  `json:"payment_method"`
	Recurrence        string  `json:"recurrence"`
	SendReminder      *bool   `json:"send_reminder"`
	ReminderLeadDays  *int    `json:"reminder_lead_days" validate:"omitempty,gte=0,lte=60"`
	Installment       int     `json:"installment" validate:"gte=0"`
	TotalInstallments int     `json:"total_installments" validate:"gte=0"`
	Notes             string  `json:"notes"`
}

// FinancialFilters narrows financial listings
type FinancialFilters struct {
	Type        string
	Status      string
	Category    string
	ClientID    string
	CaseID      string
	Search      string
	DueFrom     *time.Time
	DueTo       *time.Time
	OverdueOnly bool
}

// FinancialEntryView adds the derived state of an entry
type FinancialEntryView struct {
	models.FinancialEntry
	IsOverdue     bool    `json:"is_overdue"`
	PercentPaid   float64 `json:"percent_paid"`
	Outstanding   float64 `json:"outstanding"`
	NeedsReminder bool    `json:"needs_reminder"`
}

func NewFinancialEntryView(e models.FinancialEntry, now time.Time) FinancialEntryView {
	return FinancialEntryView{
		FinancialEntry: e,
		IsOverdue:      e.IsOverdue(now),
		PercentPaid:    e.PercentPaid(),
		Outstanding:    e.Outstanding(),
		NeedsReminder:  e.NeedsReminder(now),
	}
}

func NewFinancialEntryViews(entries []models.FinancialEntry, now time.Time) []FinancialEntryView {
	out := make([]FinancialEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewFinancialEntryView(e, now))
	}
	return out
}

// FinancialSummary is the month overview of an office
type FinancialSummary struct {
	Month          string  `json:"month"`
	RevenueMonth   float64 `json:"revenue_month"`
	ExpenseMonth   float64 `json:"expense_month"`
	BalanceMonth   float64 `json:"balance_month"`
	PendingCount   int64   `json:"pending_count"`
	OverdueCount   int64   `json:"overdue_count"`
	OverdueAmount  float64 `json:"overdue_amount"`
	ReceivedMonth  float64 `json:"received_month"`
	ReceivableOpen float64 `json:"receivable_open"`
}

func (in FinancialEntryInput) apply(database *gorm.DB, e *models.FinancialEntry) error {
	if in.Status == "" {
		in.Status = e.Status
	}
	if in.Status != "" && !models.IsValidEntryStatus(in.Status) {
		return invalid("status", "unknown status")
	}
	if in.Recurrence == "" {
		in.Recurrence = models.RecurrenceOnce
	}
	if in.AmountPaid > in.Amount && in.Amount > 0 {
		return invalid("amount_paid", "cannot exceed amount")
	}
	due, err := ParseOptionalDate("due_date", in.DueDate)
	if err != nil {
		return err
	}
	if due == nil {
		return invalid("due_date", "is required")
	}
	paidAt, err := ParseOptionalDate("paid_at", in.PaidAt)
	if err != nil {
		return err
	}
	competence, err := ParseOptionalDate("competence_date", in.CompetenceDate)
	if err != nil {
		return err
	}

	in.ClientID = emptyToNil(in.ClientID)
	in.CaseID = emptyToNil(in.CaseID)
	if in.ClientID != nil {
		var count int64
		database.Model(&models.Client{}).Where("id = ? AND office_id = ?", *in.ClientID, e.OfficeID).Count(&count)
		if count == 0 {
			return invalid("client_id", "client not found in this office")
		}
	}
	if in.CaseID != nil {
		var c models.Case
		if err := database.Where("office_id = ?", e.OfficeID).First(&c, "id = ?", *in.CaseID).Error; err != nil {
			return invalid("case_id", "case not found in this office")
		}
		if in.ClientID == nil {
			in.ClientID = &c.ClientID
		}
	}

	e.ClientID = in.ClientID
	e.CaseID = in.CaseID
	e.Type = in.Type
	e.Category = in.Category
	e.Description = strings.TrimSpace(in.Description)
	e.Amount = in.Amount
	e.AmountPaid = in.AmountPaid
	e.DueDate = *due
	e.PaidAt = paidAt
	e.CompetenceDate = competence
	e.Status = in.Status
	e.PaymentMethod = in.PaymentMethod
	e.Recurrence = in.Recurrence
	if in.SendReminder != nil {
		e.SendReminder = *in.SendReminder
	}
	if in.ReminderLeadDays != nil {
		e.ReminderLeadDays = in.ReminderLeadDays
	}
	if in.Installment > 0 {
		e.Installment = in.Installment
	}
	if in.TotalInstallments > 0 {
		e.TotalInstallments = in.TotalInstallments
	}
	e.Notes = in.Notes
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func financialQuery(database *gorm.DB, scope tenant.Scope, filters FinancialFilters, now time.Time) *gorm.DB {
	query := scope.Apply(database.Model(&models.FinancialEntry{}))
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.ClientID != "" {
		query = query.Where("client_id = ?", filters.ClientID)
	}
	if filters.CaseID != "" {
		query = query.Where("case_id = ?", filters.CaseID)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("description LIKE ? OR EXISTS (SELECT 1 FROM clients WHERE clients.id = financial_entries.client_id AND clients.name LIKE ?)", pattern, pattern)
	}
	if filters.DueFrom != nil {
		query = query.Where("due_date >= ?", *filters.DueFrom)
	}
	if filters.DueTo != nil {
		query = query.Where("due_date <= ?", *filters.DueTo)
	}
	if filters.OverdueOnly {
		query = query.Where("status IN ? AND due_date < ?", []string{models.EntryPending, models.EntryPartial}, models.DateOf(now))
	}
	return query
}

// ListFinancialEntries returns entries in scope ordered by due date.
func ListFinancialEntries(database *gorm.DB, scope tenant.Scope, filters FinancialFilters, page Page, now time.Time) ([]models.FinancialEntry, int64, error) {
	query := financialQuery(database, scope, filters, now)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count financial entries: %w", err)
	}
	var entries []models.FinancialEntry
	if err := page.Apply(query.Preload("Client").Order("due_date ASC, created_at ASC")).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list financial entries: %w", err)
	}
	return entries, total, nil
}

func GetFinancialEntry(database *gorm.DB, scope tenant.Scope, id string) (*models.FinancialEntry, error) {
	var e models.FinancialEntry
	if err := findScoped(database, scope, &e, "FinancialEntry", id, "Client"); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateFinancialEntry stores an entry; status follows the payment rules on save.
func CreateFinancialEntry(database *gorm.DB, scope tenant.Scope, actor *models.User, in FinancialEntryInput) (*models.FinancialEntry, error) {
	officeID, err := officeForWrite(database, scope, in.OfficeID)
	if err != nil {
		return nil, err
	}
	e := models.FinancialEntry{OfficeID: officeID, SendReminder: true}
	if actor != nil {
		e.CreatedByID = &actor.ID
	}
	if err := in.apply(database, &e); err != nil {
		return nil, err
	}
	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&e).Error; err != nil {
			return saveError(err, "FinancialEntry", "create")
		}
		if !e.SendReminder {
			return tx.Model(&e).Update("send_reminder", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func UpdateFinancialEntry(database *gorm.DB, scope tenant.Scope, id string, in FinancialEntryInput) (*models.FinancialEntry, error) {
	e, err := GetFinancialEntry(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(database, e); err != nil {
		return nil, err
	}
	if err := database.Omit(clause.Associations).Save(e).Error; err != nil {
		return nil, saveError(err, "FinancialEntry", "update")
	}
	return e, nil
}

func DeleteFinancialEntry(database *gorm.DB, scope tenant.Scope, id string) (*models.FinancialEntry, error) {
	e, err := GetFinancialEntry(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := database.Delete(e).Error; err != nil {
		return nil, fmt.Errorf("failed to delete financial entry: %w", err)
	}
	return e, nil
}

// RegisterPayment adds amount to what was paid; the save rules derive the status.
func RegisterPayment(database *gorm.DB, scope tenant.Scope, id string, amount float64, method string, now time.Time) (*models.FinancialEntry, error) {
	if amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}
	e, err := GetFinancialEntry(database, scope, id)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EntryCanceled {
		return nil, invalid("status", "entry is canceled")
	}
	e.AmountPaid += amount
	if e.AmountPaid >= e.Amount {
		e.AmountPaid = e.Amount
		today := models.DateOf(now)
		e.PaidAt = &today
	}
	if method != "" {
		e.PaymentMethod = method
	}
	if err := database.Omit(clause.Associations).Save(e).Error; err != nil {
		return nil, fmt.Errorf("failed to register payment: %w", err)
	}
	return e, nil
}

// GetFinancialSummary totals the calendar month of now. Canceled entries are
// left out of the month sums; overdue counts both stored and derived overdue.
func GetFinancialSummary(database *gorm.DB, scope tenant.Scope, now time.Time) (*FinancialSummary, error) {
	today := models.DateOf(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	base := func() *gorm.DB { return scope.Apply(database.Model(&models.FinancialEntry{})) }

	summary := &FinancialSummary{Month: monthStart.Format("2006-01")}
	sums := []struct {
		dest  *float64
		expr  string
		where string
		args  []interface{}
	}{
		{&summary.RevenueMonth, "amount", "type = ? AND status <> ? AND due_date >= ? AND due_date < ?",
			[]interface{}{models.EntryRevenue, models.EntryCanceled, monthStart, monthEnd}},
		{&summary.ExpenseMonth, "amount", "type = ? AND status <> ? AND due_date >= ? AND due_date < ?",
			[]interface{}{models.EntryExpense, models.EntryCanceled, monthStart, monthEnd}},
		{&summary.ReceivedMonth, "amount_paid", "type = ? AND paid_at >= ? AND paid_at < ?",
			[]interface{}{models.EntryRevenue, monthStart, monthEnd}},
		{&summary.ReceivableOpen, "amount - amount_paid", "type = ? AND status IN ?",
			[]interface{}{models.EntryRevenue, []string{models.EntryPending, models.EntryPartial, models.EntryOverdue}}},
		{&summary.OverdueAmount, "amount - amount_paid", "status = ? OR (status IN ? AND due_date < ?)",
			[]interface{}{models.EntryOverdue, []string{models.EntryPending, models.EntryPartial}, today}},
	}
	for _, s := range sums {
		if err := base().Where(s.where, s.args...).Select("COALESCE(SUM(" + s.expr + "), 0)").Scan(s.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute financial summary: %w", err)
		}
	}

	if err := base().Where("status = ?", models.EntryPending).Count(&summary.PendingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending entries: %w", err)
	}
	err := base().
		Where("status = ? OR (status IN ? AND due_date < ?)", models.EntryOverdue, []string{models.EntryPending, models.EntryPartial}, today).
		Count(&summary.OverdueCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue entries: %w", err)
	}

	summary.BalanceMonth = summary.RevenueMonth - summary.ExpenseMonth
	return summary, nil
}

var exportHeaders = []string{
	"Vencimento", "Tipo", "Categoria", "Descrição", "Cliente", "Valor", "Pago", "Em aberto", "Status", "Pagamento", "Parcela",
}

// ExportFinancialEntries writes the filtered entries to an XLSX workbook.
func ExportFinancialEntries(database *gorm.DB, scope tenant.Scope, filters FinancialFilters, now time.Time) (*bytes.Buffer, error) {
	entries, _, err := ListFinancialEntries(database, scope, filters, Page{}, now)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Financeiro"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)

	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})
	overdueStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "C0392B"}})

	for i, e := range entries {
		row := i + 2
		clientName := ""
		if e.Client != nil {
			clientName = e.Client.Name
		}
		paidAt := ""
		if e.PaidAt != nil {
			paidAt = e.PaidAt.Format("02/01/2006")
		}
		values := []interface{}{
			e.DueDate.Format("02/01/2006"),
			e.Type,
			e.Category,
			e.Description,
			clientName,
			e.Amount,
			e.AmountPaid,
			e.Outstanding(),
			e.Status,
			paidAt,
			fmt.Sprintf("%d/%d", e.Installment, e.TotalInstallments),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		first, _ := excelize.CoordinatesToCellName(6, row)
		last, _ := excelize.CoordinatesToCellName(8, row)
		f.SetCellStyle(sheet, first, last, moneyStyle)
		if e.IsOverdue(now) {
			statusCell, _ := excelize.CoordinatesToCellName(9, row)
			f.SetCellStyle(sheet, statusCell, statusCell, overdueStyle)
		}
	}
	f.SetColWidth(sheet, "D", "E", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
