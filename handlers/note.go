package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

type moveNoteRequest struct {
	CategoryID string `json:"category_id"`
	Order      int    `json:"order" validate:"gte=0"`
}

// NoteBoardHandler returns the caller's kanban, creating default columns on
// first use.
func NoteBoardHandler(c echo.Context) error {
	board, err := services.NoteBoard(db.DB, middleware.GetCurrentUser(c))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, board)
}

func ListNotesHandler(c echo.Context) error {
	page := pageFromQuery(c)
	pinned := queryBool(c, "pinned")
	filters := services.NoteFilters{
		CategoryID: c.QueryParam("category_id"),
		ClientID:   c.QueryParam("client_id"),
		CaseID:     c.QueryParam("case_id"),
		Search:     c.QueryParam("search"),
		PinnedOnly: pinned != nil && *pinned,
	}
	notes, total, err := services.ListNotes(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, notes, total, page)
}

func GetNoteHandler(c echo.Context) error {
	note, err := services.GetNote(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func CreateNoteHandler(c echo.Context) error {
	var in services.NoteInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	note, err := services.CreateNote(db.DB, middleware.GetCurrentUser(c), in)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, note)
}

// UpdateNoteHandler is limited to the note's author.
func UpdateNoteHandler(c echo.Context) error {
	var in services.NoteInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	note, err := services.UpdateNote(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"), in)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func DeleteNoteHandler(c echo.Context) error {
	if _, err := services.DeleteNote(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id")); err != nil {
		return HTTPError(err)
	}
	return noContent(c)
}

// MoveNoteHandler drags a note to another of the caller's columns.
func MoveNoteHandler(c echo.Context) error {
	var req moveNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	note, err := services.MoveNote(db.DB, middleware.GetCurrentUser(c), c.Param("id"), req.CategoryID, req.Order)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func CreateNoteCategoryHandler(c echo.Context) error {
	var in services.NoteCategoryInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	cat, err := services.CreateNoteCategory(db.DB, middleware.GetCurrentUser(c), in)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func UpdateNoteCategoryHandler(c echo.Context) error {
	var in services.NoteCategoryInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	cat, err := services.UpdateNoteCategory(db.DB, middleware.GetCurrentUser(c), c.Param("id"), in)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, cat)
}

// DeleteNoteCategoryHandler answers 409 while the column still holds notes.
func DeleteNoteCategoryHandler(c echo.Context) error {
	if _, err := services.DeleteNoteCategory(db.DB, middleware.GetCurrentUser(c), c.Param("id")); err != nil {
		return HTTPError(err)
	}
	return noContent(c)
}
