package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"legalflow/db"
	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseInput is the writable part of a Case
type CaseInput struct {
	OfficeID      string  `json:"office_id"`
	ClientID      string  `json:"client_id" validate:"required"`
	ResponsibleID string  `json:"responsible_id" validate:"required"`
	FilingNumber  string  `json:"filing_number" validate:"required,max=30"`
	Type          string  `json:"type"`
	Situation     string  `json:"situation"`
	CourtDivision string  `json:"court_division"`
	District      string  `json:"district"`
	Court         string  `json:"court"`
	ClaimValue    float64 `json:"claim_value" validate:"gte=0"`
	FiledAt       string  `json:"filed_at"`
	Plaintiff     string  `json:"plaintiff"`
	Defendant     string  `json:"defendant"`
	Subject       string  `json:"subject"`
	Fees          float64 `json:"fees" validate:"gte=0"`
	Notes         string  `json:"notes"`
	Tags          string  `json:"tags"`
}

// CaseFilters narrows case listings
type CaseFilters struct {
	Situation     string
	Type          string
	ClientID      string
	ResponsibleID string
	Search        string
}

// CaseView adds derived fields to a case
type CaseView struct {
	models.Case
	DaysUntilNextHearing *int                   `json:"days_until_next_hearing"`
	CNJ                  *FilingNumberComponents `json:"cnj,omitempty"`
}

func NewCaseView(c models.Case, now time.Time) CaseView {
	view := CaseView{Case: c, DaysUntilNextHearing: c.DaysUntilNextHearing(now)}
	if cnj, err := ParseFilingNumber(c.FilingNumber); err == nil {
		view.CNJ = cnj
	}
	return view
}

// GenerateCaseReference returns the next office reference for the year.
// Format: PROC-{YEAR}-{SEQUENCE}, e.g. PROC-2026-00042
func GenerateCaseReference(database *gorm.DB, officeID string, year int) (string, error) {
	prefix := fmt.Sprintf("PROC-%d-", year)

	var last models.Case
	err := database.
		Where("office_id = ? AND reference LIKE ?", officeID, prefix+"%").
		Order("reference DESC").
		First(&last).Error

	sequence := 1
	if err == nil {
		var parsed int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.Reference, prefix), "%d", &parsed); scanErr == nil {
			sequence = parsed + 1
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to query last case reference: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, sequence), nil
}

func (in CaseInput) apply(database *gorm.DB, c *models.Case, now time.Time) error {
	if in.Type == "" {
		in.Type = models.CaseTypeCivil
	}
	if !models.IsValidCaseType(in.Type) {
		return invalid("type", "unknown case type")
	}
	if in.Situation == "" {
		in.Situation = models.CaseActive
	}
	if !models.IsValidCaseSituation(in.Situation) {
		return invalid("situation", "unknown situation")
	}
	filed, err := ParseOptionalDate("filed_at", in.FiledAt)
	if err != nil {
		return err
	}

	var client models.Client
	err = database.Where("office_id = ?", c.OfficeID).First(&client, "id = ?", in.ClientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid("client_id", "client not found in this office")
	}
	if err != nil {
		return fmt.Errorf("failed to load client: %w", err)
	}

	responsible, err := officeMember(database, c.OfficeID, in.ResponsibleID, "responsible_id")
	if err != nil {
		return err
	}
	if !models.CanBeResponsibleForCase(responsible.Role) {
		return invalid("responsible_id", "responsible must be an admin, partner or lawyer")
	}

	if in.Situation != c.Situation {
		switch in.Situation {
		case models.CaseArchived:
			c.ArchivedAt = &now
		case models.CaseClosed, models.CaseFinalJudgment, models.CaseDischarged:
			c.ClosedAt = &now
		case models.CaseActive:
			c.ArchivedAt = nil
			c.ClosedAt = nil
		}
	}

	c.ClientID = client.ID
	c.ResponsibleID = responsible.ID
	c.FilingNumber = NormalizeFilingNumber(in.FilingNumber)
	c.Type = in.Type
	c.Situation = in.Situation
	c.CourtDivision = in.CourtDivision
	c.District = in.District
	c.Court = in.Court
	c.ClaimValue = in.ClaimValue
	c.FiledAt = filed
	c.Plaintiff = in.Plaintiff
	c.Defendant = in.Defendant
	c.Subject = in.Subject
	c.Fees = in.Fees
	c.Notes = in.Notes
	c.Tags = in.Tags
	return nil
}

// ListCases returns cases in scope, newest first.
func ListCases(database *gorm.DB, scope tenant.Scope, filters CaseFilters, page Page) ([]models.Case, int64, error) {
	query := scope.Apply(database.Model(&models.Case{}))
	if filters.Situation != "" {
		query = query.Where("situation = ?", filters.Situation)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.ClientID != "" {
		query = query.Where("client_id = ?", filters.ClientID)
	}
	if filters.ResponsibleID != "" {
		query = query.Where("responsible_id = ?", filters.ResponsibleID)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where(
			database.Where("filing_number LIKE ?", pattern).
				Or("reference LIKE ?", pattern).
				Or("subject LIKE ?", pattern).
				Or("EXISTS (SELECT 1 FROM clients WHERE clients.id = cases.client_id AND clients.name LIKE ?)", pattern),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}
	var cases []models.Case
	err := page.Apply(query.Preload("Client").Preload("Responsible").Preload("Hearings").Order("created_at DESC")).
		Find(&cases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, total, nil
}

// GetCase loads one case in scope with client, responsible and hearings.
func GetCase(database *gorm.DB, scope tenant.Scope, id string) (*models.Case, error) {
	var c models.Case
	if err := findScoped(database, scope, &c, "Case", id, "Client", "Responsible", "Hearings", "FeeContract"); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCase stores a case with a generated office reference.
func CreateCase(database *gorm.DB, scope tenant.Scope, in CaseInput, now time.Time) (*models.Case, error) {
	officeID, err := officeForWrite(database, scope, in.OfficeID)
	if err != nil {
		return nil, err
	}
	c := models.Case{OfficeID: officeID}
	if err := in.apply(database, &c, now); err != nil {
		return nil, err
	}

	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		c.ID = ""
		c.Reference, err = GenerateCaseReference(database, officeID, now.Year())
		if err != nil {
			return nil, err
		}
		err = database.Create(&c).Error
		if err == nil {
			return &c, nil
		}
		if !db.IsUniqueViolation(err) || !isReferenceCollision(database, officeID, c.Reference) {
			return nil, saveError(err, "Case", "create")
		}
	}
	return nil, conflict("Case", fmt.Sprintf("failed to generate unique reference after %d retries", maxRetries))
}

func isReferenceCollision(database *gorm.DB, officeID, reference string) bool {
	var count int64
	database.Model(&models.Case{}).Where("office_id = ? AND reference = ?", officeID, reference).Count(&count)
	return count > 0
}

// UpdateCase replaces the writable fields of a case.
func UpdateCase(database *gorm.DB, scope tenant.Scope, id string, in CaseInput, now time.Time) (*models.Case, error) {
	c, err := GetCase(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(database, c, now); err != nil {
		return nil, err
	}
	if err := database.Omit(clause.Associations).Save(c).Error; err != nil {
		return nil, saveError(err, "Case", "update")
	}
	return GetCase(database, scope, id)
}

// DeleteCase removes a case with its docket entries, deadlines, hearings and
// fee contract. Financial entries are kept and unlinked.
func DeleteCase(database *gorm.DB, scope tenant.Scope, id string) (*models.Case, error) {
	c, err := GetCase(database, scope, id)
	if err != nil {
		return nil, err
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FinancialEntry{}).Where("case_id = ?", id).
			Updates(map[string]interface{}{"case_id": nil, "fee_contract_id": nil}).Error; err != nil {
			return fmt.Errorf("failed to unlink financial entries: %w", err)
		}
		for _, child := range []interface{}{&models.DocketEntry{}, &models.Deadline{}, &models.Hearing{}, &models.FeeContract{}} {
			if err := tx.Where("case_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to delete %T: %w", child, err)
			}
		}
		if err := tx.Delete(&models.Case{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete case: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
