package handlers

import (
	"io"
	"net/http"

	"legalflow/db"
	"legalflow/services"

	"github.com/labstack/echo/v4"
)

// maxWebhookBody bounds provider payloads.
const maxWebhookBody = 1 << 20

// WhatsAppWebhookHandler ingests one provider delivery. Once the channel is
// known and the body parses, the provider always gets a 200 so it stops
// retrying; failures are logged and counted instead.
func WhatsAppWebhookHandler(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read body")
	}

	ingestor := services.NewIngestor(db.DB, services.WhatsApp)
	ingestor.Now = Now
	result, err := ingestor.Ingest(c.Request().Context(), c.Param("config_id"), raw, c.Request().Header.Get(services.SignatureHeader))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}
