package handlers

import (
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

type permissionRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Action string `json:"action" validate:"required,oneof=add remove"`
}

type replyRequest struct {
	Content string `json:"content" validate:"required,max=4096"`
}

func configViews(cfgs []models.WhatsAppConfig) []services.WhatsAppConfigView {
	now := Now()
	views := make([]services.WhatsAppConfigView, len(cfgs))
	for i, cfg := range cfgs {
		views[i] = services.NewWhatsAppConfigView(cfg, now)
	}
	return views
}

// ListWhatsAppConfigsHandler lists the channels the caller may use.
func ListWhatsAppConfigsHandler(c echo.Context) error {
	active := queryBool(c, "active")
	cfgs, err := services.ListWhatsAppConfigs(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), active != nil && *active)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, configViews(cfgs))
}

func GetWhatsAppConfigHandler(c echo.Context) error {
	cfg, err := services.GetWhatsAppConfig(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewWhatsAppConfigView(*cfg, Now()))
}

func CreateWhatsAppConfigHandler(c echo.Context) error {
	var in services.WhatsAppConfigInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	cfg, err := services.CreateWhatsAppConfig(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionCreate, cfg.OfficeID, "WhatsAppConfig", cfg.ID, cfg.Name, nil, cfg)
	return c.JSON(http.StatusCreated, services.NewWhatsAppConfigView(*cfg, Now()))
}

// UpdateWhatsAppConfigHandler keeps stored secrets when the body omits them.
func UpdateWhatsAppConfigHandler(c echo.Context) error {
	var in services.WhatsAppConfigInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	scope := middleware.GetScope(c)
	old, err := services.GetWhatsAppConfig(db.DB, scope, c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	cfg, err := services.UpdateWhatsAppConfig(db.DB, scope, old.ID, in)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionUpdate, cfg.OfficeID, "WhatsAppConfig", cfg.ID, cfg.Name, old, cfg)
	return c.JSON(http.StatusOK, services.NewWhatsAppConfigView(*cfg, Now()))
}

func DeleteWhatsAppConfigHandler(c echo.Context) error {
	cfg, err := services.DeleteWhatsAppConfig(db.DB, middleware.GetScope(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionDelete, cfg.OfficeID, "WhatsAppConfig", cfg.ID, cfg.Name, cfg, nil)
	return noContent(c)
}

// WhatsAppPermissionsHandler adds or removes a user from the allow-list.
func WhatsAppPermissionsHandler(c echo.Context) error {
	var req permissionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cfg, err := services.ChangeWhatsAppPermission(db.DB, middleware.GetScope(c), c.Param("id"), req.UserID, req.Action)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionPermissionChange, cfg.OfficeID, "WhatsAppConfig", cfg.ID, cfg.Name, nil, req)
	return c.JSON(http.StatusOK, services.NewWhatsAppConfigView(*cfg, Now()))
}

// TestWhatsAppConnectionHandler asks the provider for the connection state.
func TestWhatsAppConnectionHandler(c echo.Context) error {
	cfg, err := services.TestWhatsAppConnection(c.Request().Context(), db.DB, services.WhatsApp, middleware.GetScope(c), c.Param("id"), Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    cfg.Status,
		"connected": cfg.Status == models.ConnConnected,
		"config":    services.NewWhatsAppConfigView(*cfg, Now()),
	})
}

// SendMessageHandler sends an outbound text through the channel :id.
// A provider failure answers 502; the message is kept with status error.
func SendMessageHandler(c echo.Context) error {
	var in services.SendMessageInput
	if err := bindAndValidate(c, &in); err != nil {
		return err
	}
	msg, err := services.SendMessage(c.Request().Context(), db.DB, services.WhatsApp, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"), in, Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func ListMessagesHandler(c echo.Context) error {
	page := pageFromQuery(c)
	unread := queryBool(c, "unread")
	filters := services.MessageFilters{
		ConfigID:      c.QueryParam("config_id"),
		ContactNumber: c.QueryParam("contact_number"),
		Direction:     c.QueryParam("direction"),
		UnreadOnly:    unread != nil && *unread,
		ClientID:      c.QueryParam("client_id"),
	}
	messages, total, err := services.ListMessages(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, messages, total, page)
}

func GetMessageHandler(c echo.Context) error {
	msg, err := services.GetMessage(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

// MarkMessageReadHandler flags an inbound message read and recounts its conversation.
func MarkMessageReadHandler(c echo.Context) error {
	msg, err := services.MarkMessageRead(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"), Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

func ReplyMessageHandler(c echo.Context) error {
	var req replyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := services.ReplyToMessage(c.Request().Context(), db.DB, services.WhatsApp, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"), req.Content, Now())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}
