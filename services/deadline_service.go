package services

import (
	"fmt"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// DeadlineInput is the writable part of a Deadline
type DeadlineInput struct {
	CaseID        string  `json:"case_id" validate:"required"`
	DocketEntryID *string `json:"docket_entry_id"`
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description"`
	Type          string  `json:"type"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	DueDate       string  `json:"due_date" validate:"required"`
	AlertLeadDays *int    `json:"alert_lead_days" validate:"omitempty,gte=0,lte=60"`
	ResponsibleID *string `json:"responsible_id"`
	Notes         string  `json:"notes"`
}

// DeadlineFilters narrows deadline listings
type DeadlineFilters struct {
	CaseID        string
	Status        string
	Priority      string
	ResponsibleID string
	DueFrom       *time.Time
	DueTo         *time.Time
}

// DeadlineView adds the derived state of a deadline
type DeadlineView struct {
	models.Deadline
	IsOverdue     bool `json:"is_overdue"`
	DaysRemaining *int `json:"days_remaining"`
	NeedsAlert    bool `json:"needs_alert"`
}

func NewDeadlineView(d models.Deadline, now time.Time) DeadlineView {
	return DeadlineView{
		Deadline:      d,
		IsOverdue:     d.IsOverdue(now),
		DaysRemaining: d.DaysRemaining(now),
		NeedsAlert:    d.NeedsAlert(now),
	}
}

// NewDeadlineViews maps a slice of deadlines to views.
func NewDeadlineViews(ds []models.Deadline, now time.Time) []DeadlineView {
	out := make([]DeadlineView, 0, len(ds))
	for _, d := range ds {
		out = append(out, NewDeadlineView(d, now))
	}
	return out
}

func (in DeadlineInput) apply(database *gorm.DB, d *models.Deadline, now time.Time) error {
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(in.Priority) {
		return invalid("priority", "unknown priority")
	}
	if in.Status == "" {
		in.Status = d.Status
		if in.Status == "" {
			in.Status = models.DeadlinePending
		}
	}
	if !models.IsValidDeadlineStatus(in.Status) {
		return invalid("status", "unknown status")
	}
	due, err := ParseOptionalDate("due_date", in.DueDate)
	if err != nil {
		return err
	}
	if due == nil {
		return invalid("due_date", "is required")
	}
	if in.ResponsibleID != nil && *in.ResponsibleID != "" {
		if _, err := officeMember(database, d.OfficeID, *in.ResponsibleID, "responsible_id"); err != nil {
			return err
		}
	} else {
		in.ResponsibleID = nil
	}
	if in.DocketEntryID != nil && *in.DocketEntryID != "" {
		var count int64
		database.Model(&models.DocketEntry{}).Where("id = ? AND case_id = ?", *in.DocketEntryID, d.CaseID).Count(&count)
		if count == 0 {
			return invalid("docket_entry_id", "docket entry not found on this case")
		}
	} else {
		in.DocketEntryID = nil
	}

	if in.Status == models.DeadlineDone && d.Status != models.DeadlineDone {
		d.Complete(now)
	} else if in.Status != models.DeadlineDone {
		d.CompletedAt = nil
	}
	d.Status = in.Status
	d.Title = strings.TrimSpace(in.Title)
	d.Description = in.Description
	if in.Type != "" {
		d.Type = in.Type
	}
	d.Priority = in.Priority
	d.DueDate = *due
	if in.AlertLeadDays != nil {
		d.AlertLeadDays = in.AlertLeadDays
	}
	d.ResponsibleID = in.ResponsibleID
	d.DocketEntryID = in.DocketEntryID
	d.Notes = in.Notes
	return nil
}

// ListDeadlines returns deadlines in scope ordered by due date.
func ListDeadlines(database *gorm.DB, scope tenant.Scope, filters DeadlineFilters, page Page) ([]models.Deadline, int64, error) {
	query := scope.Apply(database.Model(&models.Deadline{}))
	if filters.CaseID != "" {
		query = query.Where("case_id = ?", filters.CaseID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Priority != "" {
		query = query.Where("priority = ?", filters.Priority)
	}
	if filters.ResponsibleID != "" {
		query = query.Where("responsible_id = ?", filters.ResponsibleID)
	}
	if filters.DueFrom != nil {
		query = query.Where("due_date >= ?", *filters.DueFrom)
	}
	if filters.DueTo != nil {
		query = query.Where("due_date <= ?", *filters.DueTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count deadlines: %w", err)
	}
	var deadlines []models.Deadline
	if err := page.Apply(query.Preload("Responsible").Order("due_date ASC")).Find(&deadlines).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list deadlines: %w", err)
	}
	return deadlines, total, nil
}

func GetDeadline(database *gorm.DB, scope tenant.Scope, id string) (*models.Deadline, error) {
	var d models.Deadline
	if err := findScoped(database, scope, &d, "Deadline", id, "Responsible"); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDeadline adds a deadline to a case in scope.
func CreateDeadline(database *gorm.DB, scope tenant.Scope, actor *models.User, in DeadlineInput, now time.Time) (*models.Deadline, error) {
	c, err := caseForChild(database, scope, in.CaseID)
	if err != nil {
		return nil, err
	}
	d := models.Deadline{OfficeID: c.OfficeID, CaseID: c.ID, Type: "procedural"}
	if actor != nil {
		d.AssignedByID = &actor.ID
	}
	if err := in.apply(database, &d, now); err != nil {
		return nil, err
	}
	if err := database.Create(&d).Error; err != nil {
		return nil, saveError(err, "Deadline", "create")
	}
	return &d, nil
}

func UpdateDeadline(database *gorm.DB, scope tenant.Scope, id string, in DeadlineInput, now time.Time) (*models.Deadline, error) {
	d, err := GetDeadline(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(database, d, now); err != nil {
		return nil, err
	}
	d.Responsible = nil
	if err := database.Save(d).Error; err != nil {
		return nil, saveError(err, "Deadline", "update")
	}
	return d, nil
}

func DeleteDeadline(database *gorm.DB, scope tenant.Scope, id string) (*models.Deadline, error) {
	d, err := GetDeadline(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := database.Delete(d).Error; err != nil {
		return nil, fmt.Errorf("failed to delete deadline: %w", err)
	}
	return d, nil
}

// CompleteDeadline sets status done with today's completion date.
func CompleteDeadline(database *gorm.DB, scope tenant.Scope, id string, now time.Time) (*models.Deadline, error) {
	d, err := GetDeadline(database, scope, id)
	if err != nil {
		return nil, err
	}
	d.Complete(now)
	err = database.Model(d).Updates(map[string]interface{}{
		"status":       d.Status,
		"completed_at": d.CompletedAt,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to complete deadline: %w", err)
	}
	return d, nil
}

// UpcomingDeadlines returns pending deadlines due between today and today+days.
func UpcomingDeadlines(database *gorm.DB, scope tenant.Scope, days int, now time.Time) ([]models.Deadline, error) {
	if days <= 0 {
		days = 7
	}
	today := models.DateOf(now)
	var deadlines []models.Deadline
	err := scope.Apply(database).
		Preload("Case").
		Preload("Responsible").
		Where("status = ? AND due_date >= ? AND due_date <= ?", models.DeadlinePending, today, today.AddDate(0, 0, days)).
		Order("due_date ASC").
		Find(&deadlines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming deadlines: %w", err)
	}
	return deadlines, nil
}
