package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// ListDocketEntriesHandler lists the docket of ?case_id=, newest first.
func ListDocketEntriesHandler(c echo.Context) error {
	page := pageFromQuery(c)
	important := queryBool(c, "important")
	entries, total, err := services.ListDocketEntries(db.DB, middleware.GetScope(c), c.QueryParam("case_id"), important != nil && *important, page)
	if err != nil {
		return HTTPError(err)
	}
	views := make([]services.DocketEntryView, len(entries))
	for i, e := range entries {
		views[i] = services.NewDocketEntryView(e)
	}
	return paginated(c, views, total, page)
}

func GetDocketEntryHandler(c echo.Context) error {
	entry, err := services.GetDocketEntry(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewDocketEntryView(*entry))
}

func CreateDocketEntryHandler(c echo.Context) error {
	var in services.DocketEntryInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	entry, err := services.CreateDocketEntry(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, entry.OfficeID, "DocketEntry", entry.ID, entry.Type, nil, entry)
	return c.JSON(http.StatusCreated, services.NewDocketEntryView(*entry))
}

func UpdateDocketEntryHandler(c echo.Context) error {
	var in services.DocketEntryInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetDocketEntry(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	entry, err := services.UpdateDocketEntry(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, entry.OfficeID, "DocketEntry", entry.ID, entry.Type, old, entry)
	return c.JSON(http.StatusOK, services.NewDocketEntryView(*entry))
}

func DeleteDocketEntryHandler(c echo.Context) error {
	entry, err := services.DeleteDocketEntry(c.Request().Context(), db.DB, services.Storage, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, entry.OfficeID, "DocketEntry", entry.ID, entry.Type, entry, nil)
	return noContent(c)
}

// UploadDocketDocumentHandler attaches the multipart "file" to an entry,
// replacing any previous document.
func UploadDocketDocumentHandler(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	entry, err := services.AttachDocketDocument(c.Request().Context(), db.DB, services.Storage, middleware.GetScope(c), c.Param("id"), file)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, entry.OfficeID, "DocketEntry", entry.ID, file.Filename, nil, map[string]interface{}{"document": entry.DocumentName})
	return c.JSON(http.StatusOK, services.NewDocketEntryView(*entry))
}

// DocketDocumentHandler answers with a short lived download URL.
func DocketDocumentHandler(c echo.Context) error {
	scope := middleware.GetScope(c)
	url, err := services.DocketDocumentURL(c.Request().Context(), db.DB, services.Storage, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	if officeID, ok := scope.OfficeID(); ok {
		audit(c, models.AuditActionDownload, officeID, "DocketEntry", c.Param("id"), "", nil, nil)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
