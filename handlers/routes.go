package handlers

import (
	"net/http"

	"legalflow/middleware"
	"legalflow/models"
	"legalflow/observability"
	"legalflow/realtime"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the public surface, the webhook and the /api tree.
func SetupRoutes(e *echo.Echo, hub *realtime.Hub, metrics *observability.Metrics) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}

	// Provider callbacks are anonymous; the config id in the path selects the tenant
	e.POST("/webhook/whatsapp/:config_id", WhatsAppWebhookHandler, middleware.WebhookRateLimiter.Middleware())

	authRoutes := e.Group("/api/auth")
	authRoutes.POST("/token", ObtainTokenHandler, middleware.LoginRateLimiter.Middleware())
	authRoutes.POST("/refresh", RefreshTokenHandler, middleware.LoginRateLimiter.Middleware())

	api := e.Group("/api", middleware.RequireAuth(), middleware.APIRateLimiter.Middleware(), middleware.AuditContext())
	api.GET("/auth/me", CurrentUserHandler)
	api.POST("/auth/password", ChangePasswordHandler)
	if hub != nil {
		api.GET("/ws", RealtimeHandler(hub))
	}

	superuser := middleware.RequireSuperuser()
	api.GET("/offices", ListOfficesHandler)
	api.GET("/offices/:id", GetOfficeHandler)
	api.GET("/offices/:id/statistics", OfficeStatsHandler)
	api.POST("/offices", CreateOfficeHandler, superuser)
	api.PUT("/offices/:id", UpdateOfficeHandler, superuser)
	api.DELETE("/offices/:id", DeleteOfficeHandler, superuser)

	users := api.Group("/users", middleware.RequireCapability(models.CapManageUsers))
	users.GET("", ListUsersHandler)
	users.POST("", CreateUserHandler)
	users.GET("/:id", GetUserHandler)
	users.PUT("/:id", UpdateUserHandler)
	users.DELETE("/:id", DeleteUserHandler)

	api.GET("/audit-logs", ListAuditLogsHandler, middleware.RequireCapability(models.CapManageUsers))

	clients := api.Group("/clients", middleware.RequireCapability(models.CapManageClients))
	clients.GET("", ListClientsHandler)
	clients.POST("", CreateClientHandler)
	clients.GET("/:id", GetClientHandler)
	clients.PUT("/:id", UpdateClientHandler)
	clients.DELETE("/:id", DeleteClientHandler)

	manageCases := middleware.RequireCapability(models.CapManageCases)

	cases := api.Group("/cases", manageCases)
	cases.GET("", ListCasesHandler)
	cases.POST("", CreateCaseHandler)
	cases.POST("/filing-number", BuildFilingNumberHandler)
	cases.GET("/:id", GetCaseHandler)
	cases.PUT("/:id", UpdateCaseHandler)
	cases.DELETE("/:id", DeleteCaseHandler)

	docket := api.Group("/docket-entries", manageCases)
	docket.GET("", ListDocketEntriesHandler)
	docket.POST("", CreateDocketEntryHandler)
	docket.GET("/:id", GetDocketEntryHandler)
	docket.PUT("/:id", UpdateDocketEntryHandler)
	docket.DELETE("/:id", DeleteDocketEntryHandler)
	docket.POST("/:id/document", UploadDocketDocumentHandler)
	docket.GET("/:id/document", DocketDocumentHandler)

	deadlines := api.Group("/deadlines", manageCases)
	deadlines.GET("", ListDeadlinesHandler)
	deadlines.POST("", CreateDeadlineHandler)
	deadlines.GET("/upcoming", UpcomingDeadlinesHandler)
	deadlines.GET("/:id", GetDeadlineHandler)
	deadlines.PUT("/:id", UpdateDeadlineHandler)
	deadlines.DELETE("/:id", DeleteDeadlineHandler)
	deadlines.POST("/:id/complete", CompleteDeadlineHandler)

	hearings := api.Group("/hearings", manageCases)
	hearings.GET("", ListHearingsHandler)
	hearings.POST("", CreateHearingHandler)
	hearings.GET("/upcoming", UpcomingHearingsHandler)
	hearings.GET("/:id", GetHearingHandler)
	hearings.PUT("/:id", UpdateHearingHandler)
	hearings.DELETE("/:id", DeleteHearingHandler)

	manageFinance := middleware.RequireCapability(models.CapManageFinance)

	financial := api.Group("/financial-entries", manageFinance)
	financial.GET("", ListFinancialEntriesHandler)
	financial.POST("", CreateFinancialEntryHandler)
	financial.GET("/summary", FinancialSummaryHandler)
	financial.GET("/export", ExportFinancialEntriesHandler)
	financial.GET("/:id", GetFinancialEntryHandler)
	financial.PUT("/:id", UpdateFinancialEntryHandler)
	financial.DELETE("/:id", DeleteFinancialEntryHandler)
	financial.POST("/:id/payments", RegisterPaymentHandler)

	contracts := api.Group("/fee-contracts", manageFinance)
	contracts.GET("", ListFeeContractsHandler)
	contracts.POST("", CreateFeeContractHandler)
	contracts.GET("/:id", GetFeeContractHandler)
	contracts.PUT("/:id", UpdateFeeContractHandler)
	contracts.DELETE("/:id", DeleteFeeContractHandler)
	contracts.POST("/:id/generate-installments", GenerateInstallmentsHandler)
	contracts.GET("/:id/pdf", FeeContractPDFHandler)

	manageWhatsApp := middleware.RequireCapability(models.CapManageWhatsApp)

	// Channel visibility follows each config's allow-list, checked in services
	api.GET("/whatsapp/configs", ListWhatsAppConfigsHandler)
	api.POST("/whatsapp/configs/:id/send-message", SendMessageHandler)
	api.POST("/whatsapp/configs", CreateWhatsAppConfigHandler, manageWhatsApp)
	api.GET("/whatsapp/configs/:id", GetWhatsAppConfigHandler, manageWhatsApp)
	api.PUT("/whatsapp/configs/:id", UpdateWhatsAppConfigHandler, manageWhatsApp)
	api.DELETE("/whatsapp/configs/:id", DeleteWhatsAppConfigHandler, manageWhatsApp)
	api.POST("/whatsapp/configs/:id/permissions", WhatsAppPermissionsHandler, manageWhatsApp)
	api.POST("/whatsapp/configs/:id/test-connection", TestWhatsAppConnectionHandler, manageWhatsApp)

	messages := api.Group("/whatsapp/messages")
	messages.GET("", ListMessagesHandler)
	messages.GET("/:id", GetMessageHandler)
	messages.POST("/:id/mark-read", MarkMessageReadHandler)
	messages.POST("/:id/reply", ReplyMessageHandler)

	conversations := api.Group("/whatsapp/conversations")
	conversations.GET("", ListConversationsHandler)
	conversations.GET("/pending", PendingConversationsHandler)
	conversations.GET("/:id", GetConversationHandler)
	conversations.GET("/:id/messages", ConversationMessagesHandler)
	conversations.POST("/:id/assign", AssignConversationHandler)
	conversations.POST("/:id/archive", ArchiveConversationHandler)
	conversations.POST("/:id/resolve", ResolveConversationHandler)

	flows := api.Group("/whatsapp/chatbot-flows", manageWhatsApp)
	flows.GET("", ListChatbotFlowsHandler)
	flows.POST("", CreateChatbotFlowHandler)
	flows.POST("/test", TestChatbotFlowsHandler)
	flows.GET("/:id", GetChatbotFlowHandler)
	flows.PUT("/:id", UpdateChatbotFlowHandler)
	flows.DELETE("/:id", DeleteChatbotFlowHandler)

	notes := api.Group("/notes")
	notes.GET("", ListNotesHandler)
	notes.POST("", CreateNoteHandler)
	notes.GET("/board", NoteBoardHandler)
	notes.GET("/:id", GetNoteHandler)
	notes.PUT("/:id", UpdateNoteHandler)
	notes.DELETE("/:id", DeleteNoteHandler)
	notes.POST("/:id/move", MoveNoteHandler)
	notes.POST("/categories", CreateNoteCategoryHandler)
	notes.PUT("/categories/:id", UpdateNoteCategoryHandler)
	notes.DELETE("/categories/:id", DeleteNoteCategoryHandler)
}
