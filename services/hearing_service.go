package services

import (
	"fmt"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// UpcomingHearingsLimit caps the upcoming-hearings action.
const UpcomingHearingsLimit = 10

// HearingInput is the writable part of a Hearing
type HearingInput struct {
	CaseID        string  `json:"case_id" validate:"required"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Date          string  `json:"date" validate:"required"`
	Time          string  `json:"time"`
	Location      string  `json:"location" validate:"required"`
	Room          string  `json:"room"`
	Judge         string  `json:"judge"`
	Outcome       string  `json:"outcome"`
	Notes         string  `json:"notes"`
	ResponsibleID *string `json:"responsible_id"`
}

func (in HearingInput) apply(database *gorm.DB, h *models.Hearing) error {
	if in.Status == "" {
		in.Status = models.HearingScheduled
	}
	if !models.IsValidHearingStatus(in.Status) {
		return invalid("status", "unknown status")
	}
	if in.Time != "" && !models.IsValidClock(in.Time) {
		return invalid("time", "expected HH:MM")
	}
	date, err := ParseOptionalDate("date", in.Date)
	if err != nil {
		return err
	}
	if date == nil {
		return invalid("date", "is required")
	}
	if in.ResponsibleID != nil && *in.ResponsibleID != "" {
		if _, err := officeMember(database, h.OfficeID, *in.ResponsibleID, "responsible_id"); err != nil {
			return err
		}
	} else {
		in.ResponsibleID = nil
	}

	if in.Type != "" {
		h.Type = in.Type
	}
	h.Status = in.Status
	h.Date = *date
	h.Time = in.Time
	h.Location = strings.TrimSpace(in.Location)
	h.Room = in.Room
	h.Judge = in.Judge
	h.Outcome = in.Outcome
	h.Notes = in.Notes
	h.ResponsibleID = in.ResponsibleID
	return nil
}

// ListHearings returns hearings in scope ordered by date.
func ListHearings(database *gorm.DB, scope tenant.Scope, caseID, status string, page Page) ([]models.Hearing, int64, error) {
	query := scope.Apply(database.Model(&models.Hearing{}))
	if caseID != "" {
		query = query.Where("case_id = ?", caseID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count hearings: %w", err)
	}
	var hearings []models.Hearing
	if err := page.Apply(query.Order("date ASC, time ASC")).Find(&hearings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list hearings: %w", err)
	}
	return hearings, total, nil
}

func GetHearing(database *gorm.DB, scope tenant.Scope, id string) (*models.Hearing, error) {
	var h models.Hearing
	if err := findScoped(database, scope, &h, "Hearing", id); err != nil {
		return nil, err
	}
	return &h, nil
}

func CreateHearing(database *gorm.DB, scope tenant.Scope, in HearingInput) (*models.Hearing, error) {
	c, err := caseForChild(database, scope, in.CaseID)
	if err != nil {
		return nil, err
	}
	h := models.Hearing{OfficeID: c.OfficeID, CaseID: c.ID, Type: models.HearingConciliation}
	if err := in.apply(database, &h); err != nil {
		return nil, err
	}
	if err := database.Create(&h).Error; err != nil {
		return nil, saveError(err, "Hearing", "create")
	}
	return &h, nil
}

func UpdateHearing(database *gorm.DB, scope tenant.Scope, id string, in HearingInput) (*models.Hearing, error) {
	h, err := GetHearing(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(database, h); err != nil {
		return nil, err
	}
	if err := database.Save(h).Error; err != nil {
		return nil, saveError(err, "Hearing", "update")
	}
	return h, nil
}

func DeleteHearing(database *gorm.DB, scope tenant.Scope, id string) (*models.Hearing, error) {
	h, err := GetHearing(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := database.Delete(h).Error; err != nil {
		return nil, fmt.Errorf("failed to delete hearing: %w", err)
	}
	return h, nil
}

// UpcomingHearings returns up to ten scheduled or confirmed hearings from today.
func UpcomingHearings(database *gorm.DB, scope tenant.Scope, now time.Time) ([]models.Hearing, error) {
	var hearings []models.Hearing
	err := scope.Apply(database).
		Preload("Case").
		Where("date >= ? AND status IN ?", models.DateOf(now), []string{models.HearingScheduled, models.HearingConfirmed}).
		Order("date ASC, time ASC").
		Limit(UpcomingHearingsLimit).
		Find(&hearings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming hearings: %w", err)
	}
	return hearings, nil
}
