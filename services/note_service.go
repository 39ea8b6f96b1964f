package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"legalflow/db"
	"legalflow/models"
	"legalflow/tenant"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// NoteCategoryInput is the writable part of a NoteCategory
type NoteCategoryInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color"`
	Order *int   `json:"order"`
}

// NoteInput is the writable part of a Note
type NoteInput struct {
	CategoryID string  `json:"category_id"`
	Title      string  `json:"title" validate:"required,max=200"`
	Content    string  `json:"content"`
	Color      string  `json:"color"`
	Private    bool    `json:"private"`
	Pinned     bool    `json:"pinned"`
	CaseID     *string `json:"case_id"`
	ClientID   *string `json:"client_id"`
	DueDate    string  `json:"due_date"`
}

// NoteFilters narrows note listings
type NoteFilters struct {
	CategoryID string
	ClientID   string
	CaseID     string
	Search     string
	PinnedOnly bool
}

// BoardColumn is one category with its notes, in order.
type BoardColumn struct {
	Category models.NoteCategory `json:"category"`
	Notes    []models.Note       `json:"notes"`
}

// SanitizeRichText strips markup that could run script in a browser.
func SanitizeRichText(html string) string {
	return bluemonday.UGCPolicy().Sanitize(html)
}

func noteOwner(user *models.User) (string, error) {
	if user == nil || !user.HasOffice() {
		return "", denied("notes belong to office members")
	}
	return *user.OfficeID, nil
}

// EnsureBoard creates the default columns the first time a user opens the
// board and returns the user's categories in order.
func EnsureBoard(database *gorm.DB, user *models.User) ([]models.NoteCategory, error) {
	officeID, err := noteOwner(user)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := database.Model(&models.NoteCategory{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count note categories: %w", err)
	}
	if count == 0 {
		defaults := make([]models.NoteCategory, 0, len(models.DefaultBoardColumns))
		for _, col := range models.DefaultBoardColumns {
			col.OfficeID = officeID
			col.UserID = user.ID
			defaults = append(defaults, col)
		}
		if err := database.Create(&defaults).Error; err != nil && !db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create default board: %w", err)
		}
	}

	var categories []models.NoteCategory
	if err := database.Where("user_id = ?", user.ID).Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list note categories: %w", err)
	}
	return categories, nil
}

func nextCategoryOrder(database *gorm.DB, userID string) int {
	var last models.NoteCategory
	if err := database.Where("user_id = ?", userID).Order("sort_order DESC").Limit(1).Find(&last).Error; err != nil || last.ID == "" {
		return 0
	}
	return last.Order + 1
}

func nextNoteOrder(database *gorm.DB, categoryID string) int {
	var last models.Note
	if err := database.Where("category_id = ?", categoryID).Order("sort_order DESC").Limit(1).Find(&last).Error; err != nil || last.ID == "" {
		return 0
	}
	return last.Order + 1
}

func ownCategory(database *gorm.DB, user *models.User, id string) (*models.NoteCategory, error) {
	var cat models.NoteCategory
	err := database.Where("user_id = ?", user.ID).First(&cat, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("NoteCategory", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note category: %w", err)
	}
	return &cat, nil
}

// DefaultCategory returns the user's "Geral" category, creating it if needed.
func DefaultCategory(database *gorm.DB, user *models.User) (*models.NoteCategory, error) {
	officeID, err := noteOwner(user)
	if err != nil {
		return nil, err
	}
	var cat models.NoteCategory
	err = database.Where("user_id = ? AND name = ?", user.ID, models.DefaultNoteCategory).First(&cat).Error
	if err == nil {
		return &cat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load note category: %w", err)
	}
	cat = models.NoteCategory{
		OfficeID: officeID,
		UserID:   user.ID,
		Name:     models.DefaultNoteCategory,
		Order:    nextCategoryOrder(database, user.ID),
	}
	if err := database.Create(&cat).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return DefaultCategory(database, user)
		}
		return nil, fmt.Errorf("failed to create note category: %w", err)
	}
	return &cat, nil
}

func CreateNoteCategory(database *gorm.DB, user *models.User, in NoteCategoryInput) (*models.NoteCategory, error) {
	officeID, err := noteOwner(user)
	if err != nil {
		return nil, err
	}
	if in.Color != "" && !hexColor.MatchString(in.Color) {
		return nil, invalid("color", "must be #RRGGBB")
	}
	cat := models.NoteCategory{
		OfficeID: officeID,
		UserID:   user.ID,
		Name:     strings.TrimSpace(in.Name),
		Color:    in.Color,
	}
	if in.Order != nil {
		cat.Order = *in.Order
	} else {
		cat.Order = nextCategoryOrder(database, user.ID)
	}
	if err := database.Create(&cat).Error; err != nil {
		return nil, saveError(err, "NoteCategory", "create")
	}
	return &cat, nil
}

func UpdateNoteCategory(database *gorm.DB, user *models.User, id string, in NoteCategoryInput) (*models.NoteCategory, error) {
	cat, err := ownCategory(database, user, id)
	if err != nil {
		return nil, err
	}
	if in.Color != "" && !hexColor.MatchString(in.Color) {
		return nil, invalid("color", "must be #RRGGBB")
	}
	cat.Name = strings.TrimSpace(in.Name)
	if in.Color != "" {
		cat.Color = in.Color
	}
	if in.Order != nil {
		cat.Order = *in.Order
	}
	if err := database.Save(cat).Error; err != nil {
		return nil, saveError(err, "NoteCategory", "update")
	}
	return cat, nil
}

// DeleteNoteCategory removes an empty category.
func DeleteNoteCategory(database *gorm.DB, user *models.User, id string) (*models.NoteCategory, error) {
	cat, err := ownCategory(database, user, id)
	if err != nil {
		return nil, err
	}
	var notes int64
	database.Model(&models.Note{}).Where("category_id = ?", cat.ID).Count(&notes)
	if notes > 0 {
		return nil, conflict("NoteCategory", fmt.Sprintf("category has %d note(s)", notes))
	}
	if err := database.Delete(cat).Error; err != nil {
		return nil, fmt.Errorf("failed to delete note category: %w", err)
	}
	return cat, nil
}

// visibleNotes applies the office scope and hides other users' private notes.
func visibleNotes(database *gorm.DB, scope tenant.Scope, user *models.User) *gorm.DB {
	query := scope.Apply(database.Model(&models.Note{}))
	if user == nil || user.IsSuperuser {
		return query
	}
	return query.Where("private = ? OR user_id = ?", false, user.ID)
}

func ListNotes(database *gorm.DB, scope tenant.Scope, user *models.User, filters NoteFilters, page Page) ([]models.Note, int64, error) {
	query := visibleNotes(database, scope, user)
	if filters.CategoryID != "" {
		query = query.Where("category_id = ?", filters.CategoryID)
	}
	if filters.ClientID != "" {
		query = query.Where("client_id = ?", filters.ClientID)
	}
	if filters.CaseID != "" {
		query = query.Where("case_id = ?", filters.CaseID)
	}
	if filters.PinnedOnly {
		query = query.Where("pinned = ?", true)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notes: %w", err)
	}
	var notes []models.Note
	if err := page.Apply(query.Preload("Category").Order("pinned DESC, updated_at DESC")).Find(&notes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, total, nil
}

// GetNote loads a note the user may read. Hidden notes are not found.
func GetNote(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.Note, error) {
	var note models.Note
	err := visibleNotes(database, scope, user).Preload("Category").First(&note, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	return &note, nil
}

// ownNote loads a note owned by the user. Only the owner may change a note.
func ownNote(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.Note, error) {
	note, err := GetNote(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	if user == nil || note.UserID != user.ID {
		return nil, denied("only the author may change this note")
	}
	return note, nil
}

func (in NoteInput) apply(database *gorm.DB, user *models.User, n *models.Note) error {
	if in.Color != "" && !hexColor.MatchString(in.Color) {
		return invalid("color", "must be #RRGGBB")
	}
	due, err := ParseOptionalDate("due_date", in.DueDate)
	if err != nil {
		return err
	}
	if in.ClientID != nil && *in.ClientID != "" {
		if _, err := GetClient(database, tenant.ForOffice(n.OfficeID), *in.ClientID); err != nil {
			return invalid("client_id", "client not found in this office")
		}
	} else {
		in.ClientID = nil
	}
	if in.CaseID != nil && *in.CaseID != "" {
		if _, err := GetCase(database, tenant.ForOffice(n.OfficeID), *in.CaseID); err != nil {
			return invalid("case_id", "case not found in this office")
		}
	} else {
		in.CaseID = nil
	}

	switch {
	case in.CategoryID != "":
		cat, err := ownCategory(database, user, in.CategoryID)
		if err != nil {
			return invalid("category_id", "category not found")
		}
		if cat.ID != n.CategoryID {
			n.CategoryID = cat.ID
			n.Order = nextNoteOrder(database, cat.ID)
		}
	case n.CategoryID == "":
		cat, err := DefaultCategory(database, user)
		if err != nil {
			return err
		}
		n.CategoryID = cat.ID
		n.Order = nextNoteOrder(database, cat.ID)
	}

	n.Title = strings.TrimSpace(in.Title)
	n.Content = SanitizeRichText(in.Content)
	n.Color = in.Color
	n.Private = in.Private
	n.Pinned = in.Pinned
	n.CaseID = in.CaseID
	n.ClientID = in.ClientID
	n.DueDate = due
	return nil
}

// CreateNote stores a note for the user. Notes without a category go to
// "Geral".
func CreateNote(database *gorm.DB, user *models.User, in NoteInput) (*models.Note, error) {
	officeID, err := noteOwner(user)
	if err != nil {
		return nil, err
	}
	note := models.Note{OfficeID: officeID, UserID: user.ID}
	if err := in.apply(database, user, &note); err != nil {
		return nil, err
	}
	if err := database.Create(&note).Error; err != nil {
		return nil, saveError(err, "Note", "create")
	}
	return &note, nil
}

func UpdateNote(database *gorm.DB, scope tenant.Scope, user *models.User, id string, in NoteInput) (*models.Note, error) {
	note, err := ownNote(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(database, user, note); err != nil {
		return nil, err
	}
	note.Category = nil
	if err := database.Save(note).Error; err != nil {
		return nil, saveError(err, "Note", "update")
	}
	return note, nil
}

func DeleteNote(database *gorm.DB, scope tenant.Scope, user *models.User, id string) (*models.Note, error) {
	note, err := ownNote(database, scope, user, id)
	if err != nil {
		return nil, err
	}
	if err := database.Delete(note).Error; err != nil {
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}
	return note, nil
}

// MoveNote places one of the user's notes into one of the user's categories
// at the given position. Notes and categories of others are not found.
func MoveNote(database *gorm.DB, user *models.User, id, categoryID string, order int) (*models.Note, error) {
	if _, err := noteOwner(user); err != nil {
		return nil, err
	}
	var note models.Note
	err := database.Where("user_id = ?", user.ID).First(&note, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	if categoryID != "" {
		cat, err := ownCategory(database, user, categoryID)
		if err != nil {
			return nil, err
		}
		note.CategoryID = cat.ID
	}
	note.Order = order
	err = database.Model(&note).Updates(map[string]interface{}{
		"category_id": note.CategoryID,
		"sort_order":  note.Order,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to move note: %w", err)
	}
	return &note, nil
}

// NoteBoard returns the user's columns with the user's own notes.
func NoteBoard(database *gorm.DB, user *models.User) ([]BoardColumn, error) {
	categories, err := EnsureBoard(database, user)
	if err != nil {
		return nil, err
	}
	var notes []models.Note
	if err := database.Where("user_id = ?", user.ID).Order("sort_order ASC, created_at ASC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	byCategory := make(map[string][]models.Note, len(categories))
	for _, n := range notes {
		byCategory[n.CategoryID] = append(byCategory[n.CategoryID], n)
	}
	board := make([]BoardColumn, 0, len(categories))
	for _, cat := range categories {
		col := BoardColumn{Category: cat, Notes: byCategory[cat.ID]}
		if col.Notes == nil {
			col.Notes = []models.Note{}
		}
		board = append(board, col)
	}
	return board, nil
}
