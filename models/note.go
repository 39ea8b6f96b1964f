package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultNoteCategory is created on demand for notes saved without one.
const DefaultNoteCategory = "Geral"

// DefaultBoardColumns are created the first time a user opens the board.
var DefaultBoardColumns = []NoteCategory{
	{Name: "A Fazer", Color: "#ffeaa7", Order: 1},
	{Name: "Em Progresso", Color: "#74b9ff", Order: 2},
	{Name: "Revisão", Color: "#fd79a8", Order: 3},
	{Name: "Concluído", Color: "#00b894", Order: 4},
}

// NoteCategory is a kanban column owned by one user
type NoteCategory struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfficeID string `gorm:"type:uuid;not null;index" json:"office_id"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_note_cat_user_name" json:"user_id"`
	Name     string `gorm:"size:100;not null;uniqueIndex:idx_note_cat_user_name" json:"name" validate:"required,max=100"`
	Color    string `gorm:"size:7;not null;default:#dfe6e9" json:"color"`
	Order    int    `gorm:"column:sort_order;not null;default:0" json:"order"`
}

// BeforeCreate hook to generate UUID
func (n *NoteCategory) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for NoteCategory model
func (NoteCategory) TableName() string {
	return "note_categories"
}

// Note is a kanban card
type Note struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OfficeID   string        `gorm:"type:uuid;not null;index" json:"office_id"`
	UserID     string        `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID string        `gorm:"type:uuid;not null;index" json:"category_id"`
	Category   *NoteCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	Title   string `gorm:"not null" json:"title" validate:"required,max=200"`
	Content string `gorm:"type:text" json:"content"`
	Color   string `gorm:"size:7" json:"color"`
	Private bool   `gorm:"not null;default:false" json:"private"`
	Pinned  bool   `gorm:"not null;default:false" json:"pinned"`
	Order   int    `gorm:"column:sort_order;not null;default:0" json:"order"`

	CaseID   *string    `gorm:"type:uuid" json:"case_id,omitempty"`
	ClientID *string    `gorm:"type:uuid" json:"client_id,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// BeforeCreate hook to generate UUID
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Note model
func (Note) TableName() string {
	return "notes"
}

// VisibleTo reports whether the user may read the note.
func (n *Note) VisibleTo(userID string) bool {
	return !n.Private || n.UserID == userID
}
