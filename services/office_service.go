package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// OfficeInput is the writable part of an Office
type OfficeInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	TaxID    string `json:"tax_id" validate:"max=20"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state" validate:"max=2"`
	IsActive *bool  `json:"is_active"`
}

func (in OfficeInput) apply(o *models.Office) {
	o.Name = strings.TrimSpace(in.Name)
	o.TaxID = in.TaxID
	o.Email = in.Email
	o.Phone = in.Phone
	o.Address = in.Address
	o.City = in.City
	o.State = strings.ToUpper(in.State)
	if in.IsActive != nil {
		o.IsActive = *in.IsActive
	}
}

// OfficeStats is the office dashboard summary
type OfficeStats struct {
	OfficeID          string  `json:"office_id"`
	Users             int64   `json:"users"`
	Clients           int64   `json:"clients"`
	Cases             int64   `json:"cases"`
	ActiveCases       int64   `json:"active_cases"`
	PendingDeadlines  int64   `json:"pending_deadlines"`
	OverdueDeadlines  int64   `json:"overdue_deadlines"`
	UpcomingHearings  int64   `json:"upcoming_hearings"`
	OpenConversations int64   `json:"open_conversations"`
	UnreadMessages    int64   `json:"unread_messages"`
	MonthRevenue      float64 `json:"month_revenue"`
	MonthExpense      float64 `json:"month_expense"`

	CasesByType map[string]int64 `json:"cases_by_type"`
}

// ListOffices returns every office for superusers and the caller's own otherwise.
func ListOffices(database *gorm.DB, scope tenant.Scope, page Page) ([]models.Office, int64, error) {
	query := scope.ApplyColumn(database.Model(&models.Office{}), "id")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count offices: %w", err)
	}
	var offices []models.Office
	if err := page.Apply(query.Order("name ASC")).Find(&offices).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list offices: %w", err)
	}
	return offices, total, nil
}

// GetOffice loads an office visible in scope.
func GetOffice(database *gorm.DB, scope tenant.Scope, id string) (*models.Office, error) {
	var office models.Office
	err := scope.ApplyColumn(database, "id").First(&office, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Office", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load office: %w", err)
	}
	return &office, nil
}

// CreateOffice is reserved to the unrestricted scope.
func CreateOffice(database *gorm.DB, scope tenant.Scope, in OfficeInput) (*models.Office, error) {
	if !scope.IsUnrestricted() {
		return nil, denied("only superusers can create offices")
	}
	office := models.Office{IsActive: true}
	in.apply(&office)
	err := database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&office).Error; err != nil {
			return saveError(err, "Office", "create")
		}
		if !office.IsActive {
			return tx.Model(&office).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &office, nil
}

// UpdateOffice replaces the writable fields of an office.
func UpdateOffice(database *gorm.DB, scope tenant.Scope, id string, in OfficeInput) (*models.Office, error) {
	office, err := GetOffice(database, scope, id)
	if err != nil {
		return nil, err
	}
	in.apply(office)
	if err := database.Save(office).Error; err != nil {
		return nil, saveError(err, "Office", "update")
	}
	return office, nil
}

// DeleteOffice removes an empty office. Offices that still own records are
// refused so billing history is never orphaned.
func DeleteOffice(database *gorm.DB, scope tenant.Scope, id string) (*models.Office, error) {
	if !scope.IsUnrestricted() {
		return nil, denied("only superusers can delete offices")
	}
	office, err := GetOffice(database, scope, id)
	if err != nil {
		return nil, err
	}

	owned := []struct {
		model interface{}
		label string
	}{
		{&models.User{}, "users"},
		{&models.Client{}, "clients"},
		{&models.Case{}, "cases"},
		{&models.FinancialEntry{}, "financial entries"},
		{&models.WhatsAppConfig{}, "whatsapp configs"},
	}
	for _, o := range owned {
		var count int64
		if err := database.Model(o.model).Where("office_id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", o.label, err)
		}
		if count > 0 {
			return nil, conflict("Office", fmt.Sprintf("office still has %d %s", count, o.label))
		}
	}

	if err := database.Delete(office).Error; err != nil {
		return nil, fmt.Errorf("failed to delete office: %w", err)
	}
	return office, nil
}

// GetOfficeStats counts the office's records; money totals use the calendar
// month of now.
func GetOfficeStats(database *gorm.DB, scope tenant.Scope, id string, now time.Time) (*OfficeStats, error) {
	office, err := GetOffice(database, scope, id)
	if err != nil {
		return nil, err
	}
	today := models.DateOf(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	stats := &OfficeStats{OfficeID: office.ID}
	counts := []struct {
		dest  *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.Users, &models.User{}, "office_id = ? AND is_active = ?", []interface{}{id, true}},
		{&stats.Clients, &models.Client{}, "office_id = ?", []interface{}{id}},
		{&stats.Cases, &models.Case{}, "office_id = ?", []interface{}{id}},
		{&stats.ActiveCases, &models.Case{}, "office_id = ? AND situation = ?", []interface{}{id, models.CaseActive}},
		{&stats.PendingDeadlines, &models.Deadline{}, "office_id = ? AND status = ?", []interface{}{id, models.DeadlinePending}},
		{&stats.OverdueDeadlines, &models.Deadline{}, "office_id = ? AND (status = ? OR (status = ? AND due_date < ?))",
			[]interface{}{id, models.DeadlineOverdue, models.DeadlinePending, today}},
		{&stats.UpcomingHearings, &models.Hearing{}, "office_id = ? AND date >= ? AND status IN ?",
			[]interface{}{id, today, []string{models.HearingScheduled, models.HearingConfirmed}}},
		{&stats.OpenConversations, &models.Conversation{}, "office_id = ? AND open = ?", []interface{}{id, true}},
		{&stats.UnreadMessages, &models.WhatsAppMessage{}, "office_id = ? AND direction = ? AND read = ?",
			[]interface{}{id, models.DirectionInbound, false}},
	}
	for _, c := range counts {
		if err := database.Model(c.model).Where(c.where, c.args...).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute office stats: %w", err)
		}
	}

	var byType []struct {
		Type  string
		Total int64
	}
	err = database.Model(&models.Case{}).
		Select("type, COUNT(*) AS total").
		Where("office_id = ?", id).
		Group("type").
		Scan(&byType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group cases: %w", err)
	}
	stats.CasesByType = make(map[string]int64, len(byType))
	for _, row := range byType {
		stats.CasesByType[row.Type] = row.Total
	}

	sums := []struct {
		dest      *float64
		entryType string
	}{
		{&stats.MonthRevenue, models.EntryRevenue},
		{&stats.MonthExpense, models.EntryExpense},
	}
	for _, s := range sums {
		err := database.Model(&models.FinancialEntry{}).
			Where("office_id = ? AND type = ? AND status <> ? AND due_date >= ? AND due_date < ?",
				id, s.entryType, models.EntryCanceled, monthStart, monthEnd).
			Select("COALESCE(SUM(amount), 0)").Scan(s.dest).Error
		if err != nil {
			return nil, fmt.Errorf("failed to sum financial entries: %w", err)
		}
	}
	return stats, nil
}
