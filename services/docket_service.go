package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// DocketEntryInput is the writable part of a DocketEntry
type DocketEntryInput struct {
	CaseID       string `json:"case_id" validate:"required"`
	Type         string `json:"type"`
	Date         string `json:"date" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Judge        string `json:"judge"`
	Outcome      string `json:"outcome"`
	NextDeadline string `json:"next_deadline"`
	Important    bool   `json:"important"`
}

// DocketEntryView adds the description summary
type DocketEntryView struct {
	models.DocketEntry
	Summary string `json:"summary"`
}

func NewDocketEntryView(e models.DocketEntry) DocketEntryView {
	return DocketEntryView{DocketEntry: e, Summary: e.Summary()}
}

// caseForChild loads the parent case of a docket entry, deadline or hearing.
func caseForChild(database *gorm.DB, scope tenant.Scope, caseID string) (*models.Case, error) {
	var c models.Case
	if err := findScoped(database, scope, &c, "Case", caseID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (in DocketEntryInput) apply(e *models.DocketEntry) error {
	if in.Type == "" {
		in.Type = models.DocketOther
	}
	if !models.IsValidDocketType(in.Type) {
		return invalid("type", "unknown docket entry type")
	}
	date, err := ParseOptionalDate("date", in.Date)
	if err != nil {
		return err
	}
	if date == nil {
		return invalid("date", "is required")
	}
	next, err := ParseOptionalDate("next_deadline", in.NextDeadline)
	if err != nil {
		return err
	}
	e.Type = in.Type
	e.Date = *date
	e.Description = strings.TrimSpace(in.Description)
	e.Judge = in.Judge
	e.Outcome = in.Outcome
	e.NextDeadline = next
	e.Important = in.Important
	return nil
}

// ListDocketEntries returns entries in scope, newest first.
func ListDocketEntries(database *gorm.DB, scope tenant.Scope, caseID string, importantOnly bool, page Page) ([]models.DocketEntry, int64, error) {
	query := scope.Apply(database.Model(&models.DocketEntry{}))
	if caseID != "" {
		query = query.Where("case_id = ?", caseID)
	}
	if importantOnly {
		query = query.Where("important = ?", true)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count docket entries: %w", err)
	}
	var entries []models.DocketEntry
	if err := page.Apply(query.Order("date DESC, created_at DESC")).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list docket entries: %w", err)
	}
	return entries, total, nil
}

func GetDocketEntry(database *gorm.DB, scope tenant.Scope, id string) (*models.DocketEntry, error) {
	var e models.DocketEntry
	if err := findScoped(database, scope, &e, "DocketEntry", id); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateDocketEntry records a movement on a case in scope.
func CreateDocketEntry(database *gorm.DB, scope tenant.Scope, actor *models.User, in DocketEntryInput) (*models.DocketEntry, error) {
	c, err := caseForChild(database, scope, in.CaseID)
	if err != nil {
		return nil, err
	}
	entry := models.DocketEntry{OfficeID: c.OfficeID, CaseID: c.ID}
	if actor != nil {
		entry.CreatedByID = &actor.ID
	}
	if err := in.apply(&entry); err != nil {
		return nil, err
	}
	if err := database.Create(&entry).Error; err != nil {
		return nil, saveError(err, "DocketEntry", "create")
	}
	return &entry, nil
}

// UpdateDocketEntry replaces the writable fields. The case cannot change.
func UpdateDocketEntry(database *gorm.DB, scope tenant.Scope, id string, in DocketEntryInput) (*models.DocketEntry, error) {
	entry, err := GetDocketEntry(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(entry); err != nil {
		return nil, err
	}
	if err := database.Save(entry).Error; err != nil {
		return nil, saveError(err, "DocketEntry", "update")
	}
	return entry, nil
}

// DeleteDocketEntry removes the entry and its stored document.
func DeleteDocketEntry(ctx context.Context, database *gorm.DB, store ObjectStore, scope tenant.Scope, id string) (*models.DocketEntry, error) {
	entry, err := GetDocketEntry(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := database.Delete(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to delete docket entry: %w", err)
	}
	if entry.DocumentKey != nil && store != nil {
		if err := store.Remove(ctx, *entry.DocumentKey); err != nil {
			return entry, fmt.Errorf("docket entry deleted but document remained: %w", err)
		}
	}
	return entry, nil
}

// AttachDocketDocument stores an upload and links it to the entry,
// replacing any previous document.
func AttachDocketDocument(ctx context.Context, database *gorm.DB, store ObjectStore, scope tenant.Scope, id string, file *multipart.FileHeader) (*models.DocketEntry, error) {
	entry, err := GetDocketEntry(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateDocumentUpload(file); err != nil {
		return nil, err
	}

	name := safeFileName(file.Filename)
	key := OfficeObjectKey(entry.OfficeID, "docket", entry.ID, name)
	obj, err := StoreUpload(ctx, store, file, key)
	if err != nil {
		return nil, err
	}

	previous := entry.DocumentKey
	entry.DocumentKey = &obj.Key
	entry.DocumentName = &name
	entry.DocumentSize = obj.Size
	if err := database.Save(entry).Error; err != nil {
		_ = store.Remove(ctx, obj.Key)
		return nil, fmt.Errorf("failed to link document: %w", err)
	}
	if previous != nil && *previous != obj.Key {
		_ = store.Remove(ctx, *previous)
	}
	return entry, nil
}

// DocketDocumentURL returns a short-lived link to the entry's document.
func DocketDocumentURL(ctx context.Context, database *gorm.DB, store ObjectStore, scope tenant.Scope, id string) (string, error) {
	entry, err := GetDocketEntry(database, scope, id)
	if err != nil {
		return "", err
	}
	if entry.DocumentKey == nil {
		return "", notFound("Document", id)
	}
	return store.SignedURL(ctx, *entry.DocumentKey, 15*time.Minute)
}
