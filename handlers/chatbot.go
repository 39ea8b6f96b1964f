package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

type flowTestRequest struct {
	ConfigID string `json:"config_id" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

func ListChatbotFlowsHandler(c echo.Context) error {
	page := pageFromQuery(c)
	flows, total, err := services.ListChatbotFlows(db.DB, middleware.GetScope(c), c.QueryParam("config_id"), page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, flows, total, page)
}

func GetChatbotFlowHandler(c echo.Context) error {
	flow, err := services.GetChatbotFlow(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

func CreateChatbotFlowHandler(c echo.Context) error {
	var in services.ChatbotFlowInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	flow, err := services.CreateChatbotFlow(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, flow.OfficeID, "ChatbotFlow", flow.ID, flow.Name, nil, flow)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"flow":             flow,
		"invalid_patterns": services.InvalidPatterns(flow.Patterns),
	})
}

func UpdateChatbotFlowHandler(c echo.Context) error {
	var in services.ChatbotFlowInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetChatbotFlow(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	flow, err := services.UpdateChatbotFlow(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, flow.OfficeID, "ChatbotFlow", flow.ID, flow.Name, old, flow)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"flow":             flow,
		"invalid_patterns": services.InvalidPatterns(flow.Patterns),
	})
}

func DeleteChatbotFlowHandler(c echo.Context) error {
	flow, err := services.DeleteChatbotFlow(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, flow.OfficeID, "ChatbotFlow", flow.ID, flow.Name, flow, nil)
	return noContent(c)
}

// TestChatbotFlowsHandler shows which flow would answer a text, without sending.
func TestChatbotFlowsHandler(c echo.Context) error {
	var req flowTestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	match, err := services.TestChatbotFlows(db.DB, middleware.GetScope(c), req.ConfigID, req.Text)
	if err != nil {
		return HTTPError(err)
	}
	if match == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"matched": false})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"matched": true,
		"flow":    match.Flow,
		"reply":   match.Reply,
	})
}
