package services

import (
	"testing"

	"legalflow/models"
	"legalflow/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteBoardDefaults(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	board, err := NoteBoard(database, f.lawyer)
	require.NoError(t, err)
	require.Len(t, board, len(models.DefaultBoardColumns))
	assert.Equal(t, "A Fazer", board[0].Category.Name)
	assert.Equal(t, "Concluído", board[3].Category.Name)
	assert.NotNil(t, board[0].Notes)

	again, err := EnsureBoard(database, f.lawyer)
	require.NoError(t, err)
	assert.Len(t, again, len(models.DefaultBoardColumns))

	_, err = NoteBoard(database, &models.User{Name: "Sem escritório"})
	assert.True(t, IsAccessDenied(err))
}

func TestCreateNote(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	other := seedOffice(t, database, "Souza")
	kase := seedCase(t, database, f)

	note, err := CreateNote(database, f.lawyer, NoteInput{
		Title:    "  Ligar para o cliente ",
		Content:  `<p>Confirmar audiência</p><script>alert(1)</script>`,
		CaseID:   &kase.ID,
		ClientID: &f.client.ID,
		DueDate:  "2026-04-20",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ligar para o cliente", note.Title)
	assert.Equal(t, "<p>Confirmar audiência</p>", note.Content)
	require.NotNil(t, note.DueDate)
	assert.Equal(t, 20, note.DueDate.Day())

	var cat models.NoteCategory
	require.NoError(t, database.First(&cat, "id = ?", note.CategoryID).Error)
	assert.Equal(t, models.DefaultNoteCategory, cat.Name)

	second, err := CreateNote(database, f.lawyer, NoteInput{Title: "Outra"})
	require.NoError(t, err)
	assert.Equal(t, note.CategoryID, second.CategoryID)
	assert.Equal(t, note.Order+1, second.Order)

	tests := []struct {
		name  string
		in    NoteInput
		field string
	}{
		{"color", NoteInput{Title: "x", Color: "red"}, "color"},
		{"due date", NoteInput{Title: "x", DueDate: "20/04/2026"}, "due_date"},
		{"foreign client", NoteInput{Title: "x", ClientID: &other.client.ID}, "client_id"},
		{"foreign category", NoteInput{Title: "x", CategoryID: cat.ID}, "category_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := f.lawyer
			if tt.field == "category_id" {
				user = f.admin
			}
			_, err := CreateNote(database, user, tt.in)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

func TestNoteVisibilityAndOwnership(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")
	other := seedOffice(t, database, "Souza")
	scope := tenant.ForOffice(f.office.ID)

	shared, err := CreateNote(database, f.lawyer, NoteInput{Title: "Compartilhada", Pinned: true})
	require.NoError(t, err)
	private, err := CreateNote(database, f.lawyer, NoteInput{Title: "Privada", Private: true})
	require.NoError(t, err)

	notes, total, err := ListNotes(database, scope, f.admin, NoteFilters{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, shared.ID, notes[0].ID)

	_, err = GetNote(database, scope, f.admin, private.ID)
	assert.True(t, IsNotFound(err))

	notes, total, err = ListNotes(database, scope, f.lawyer, NoteFilters{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, shared.ID, notes[0].ID)

	_, err = GetNote(database, tenant.ForOffice(other.office.ID), other.admin, shared.ID)
	assert.True(t, IsNotFound(err))

	_, err = UpdateNote(database, scope, f.admin, shared.ID, NoteInput{Title: "Editada"})
	assert.True(t, IsAccessDenied(err))
	_, err = DeleteNote(database, scope, f.admin, shared.ID)
	assert.True(t, IsAccessDenied(err))

	updated, err := UpdateNote(database, scope, f.lawyer, shared.ID, NoteInput{Title: "Editada"})
	require.NoError(t, err)
	assert.Equal(t, "Editada", updated.Title)
	assert.False(t, updated.Pinned)
	assert.Equal(t, shared.CategoryID, updated.CategoryID)

	_, err = DeleteNote(database, scope, f.lawyer, shared.ID)
	require.NoError(t, err)
	_, err = GetNote(database, scope, f.lawyer, shared.ID)
	assert.True(t, IsNotFound(err))
}

func TestMoveNote(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	board, err := NoteBoard(database, f.lawyer)
	require.NoError(t, err)
	note, err := CreateNote(database, f.lawyer, NoteInput{Title: "Petição", CategoryID: board[0].Category.ID})
	require.NoError(t, err)

	moved, err := MoveNote(database, f.lawyer, note.ID, board[2].Category.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, board[2].Category.ID, moved.CategoryID)
	assert.Equal(t, 3, moved.Order)

	board, err = NoteBoard(database, f.lawyer)
	require.NoError(t, err)
	assert.Empty(t, board[0].Notes)
	require.Len(t, board[2].Notes, 1)
	assert.Equal(t, note.ID, board[2].Notes[0].ID)

	_, err = MoveNote(database, f.admin, note.ID, "", 0)
	assert.True(t, IsNotFound(err))

	adminBoard, err := NoteBoard(database, f.admin)
	require.NoError(t, err)
	_, err = MoveNote(database, f.lawyer, note.ID, adminBoard[0].Category.ID, 0)
	assert.True(t, IsNotFound(err))
}

func TestNoteCategories(t *testing.T) {
	database := setupTestDB(t)
	f := seedOffice(t, database, "Silva")

	cat, err := CreateNoteCategory(database, f.lawyer, NoteCategoryInput{Name: "Prazos", Color: "#ff0000"})
	require.NoError(t, err)
	assert.Zero(t, cat.Order)

	next, err := CreateNoteCategory(database, f.lawyer, NoteCategoryInput{Name: "Clientes"})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Order)

	_, err = CreateNoteCategory(database, f.lawyer, NoteCategoryInput{Name: "Prazos"})
	assert.True(t, IsConflict(err))

	_, err = CreateNoteCategory(database, f.lawyer, NoteCategoryInput{Name: "Cor", Color: "#fff"})
	assert.True(t, IsValidation(err))

	_, err = CreateNoteCategory(database, f.admin, NoteCategoryInput{Name: "Prazos"})
	require.NoError(t, err)

	renamed, err := UpdateNoteCategory(database, f.lawyer, cat.ID, NoteCategoryInput{Name: "Prazos urgentes"})
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", renamed.Color)

	_, err = UpdateNoteCategory(database, f.admin, cat.ID, NoteCategoryInput{Name: "x"})
	assert.True(t, IsNotFound(err))

	_, err = CreateNote(database, f.lawyer, NoteInput{Title: "Card", CategoryID: cat.ID})
	require.NoError(t, err)
	_, err = DeleteNoteCategory(database, f.lawyer, cat.ID)
	assert.True(t, IsConflict(err))

	_, err = DeleteNoteCategory(database, f.lawyer, next.ID)
	require.NoError(t, err)
}
