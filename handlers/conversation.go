package handlers

import (
	"net/http"
	"strconv"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

type assignRequest struct {
	UserID string `json:"user_id"`
}

func ListConversationsHandler(c echo.Context) error {
	page := pageFromQuery(c)
	unread := queryBool(c, "unread")
	filters := services.ConversationFilters{
		ConfigID:       c.QueryParam("config_id"),
		Open:           queryBool(c, "open"),
		Archived:       queryBool(c, "archived"),
		UnreadOnly:     unread != nil && *unread,
		AssignedUserID: c.QueryParam("assigned_user_id"),
		Search:         c.QueryParam("search"),
	}
	conversations, total, err := services.ListConversations(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), filters, page)
	if err != nil {
		return HTTPError(err)
	}
	return paginated(c, services.NewConversationViews(conversations), total, page)
}

func GetConversationHandler(c echo.Context) error {
	conv, err := services.GetConversation(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.ConversationView{Conversation: *conv, NeedsAttention: conv.NeedsAttention()})
}

// ConversationMessagesHandler returns the last ?limit= (50) messages, oldest first.
func ConversationMessagesHandler(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}
	messages, err := services.ConversationMessages(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"), limit)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, messages)
}

// AssignConversationHandler assigns to user_id, or to the caller when empty.
func AssignConversationHandler(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	conv, err := services.AssignConversation(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"), req.UserID)
	if err != nil {
		return HTTPError(err)
	}
	audit(c, models.AuditActionAssign, conv.OfficeID, "Conversation", conv.ID, conv.ContactNumber, nil, map[string]interface{}{"assigned_user_id": conv.AssignedUserID})
	return c.JSON(http.StatusOK, conv)
}

func ArchiveConversationHandler(c echo.Context) error {
	conv, err := services.ArchiveConversation(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

func ResolveConversationHandler(c echo.Context) error {
	conv, err := services.ResolveConversation(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

// PendingConversationsHandler lists open conversations with unread messages.
func PendingConversationsHandler(c echo.Context) error {
	conversations, err := services.PendingConversations(db.DB, middleware.GetScope(c), middleware.GetCurrentUser(c))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, services.NewConversationViews(conversations))
}
