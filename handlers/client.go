package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// ListClientsHandler supports ?search= over name and tax id.
func ListClientsHandler(c echo.Context) error {
	page := pageFromQuery(c)
	filters := services.ClientFilters{
		Search:     c.QueryParam("search"),
		PersonType: c.QueryParam("person_type"),
		Active:     queryBool(c, "active"),
	}
	clients, total, err := services.ListClients(db.DB, middleware.GetScope(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, clients, total, page)
}

func GetClientHandler(c echo.Context) error {
	client, err := services.GetClient(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, client)
}

func CreateClientHandler(c echo.Context) error {
	var in services.ClientInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	client, err := services.CreateClient(db.DB, middleware.GetScope(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, client.OfficeID, "Client", client.ID, client.Name, nil, client)
	return c.JSON(http.StatusCreated, client)
}

func UpdateClientHandler(c echo.Context) error {
	var in services.ClientInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetClient(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	client, err := services.UpdateClient(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, client.OfficeID, "Client", client.ID, client.Name, old, client)
	return c.JSON(http.StatusOK, client)
}

// DeleteClientHandler answers 409 while cases still reference the client.
func DeleteClientHandler(c echo.Context) error {
	client, err := services.DeleteClient(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, client.OfficeID, "Client", client.ID, client.Name, client, nil)
	return noContent(c)
}
