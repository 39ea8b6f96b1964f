package handlers

import (
	"errors"
	"net/http"

	"legalflow/db"
	"legalflow/middleware"
	"legalflow/models"
	"legalflow/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type tokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ObtainTokenHandler exchanges credentials for an access/refresh pair.
func ObtainTokenHandler(c echo.Context) error {
	var req tokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := services.Authenticate(db.DB, req.Email, req.Password, Now())
	if errors.Is(err, services.ErrInvalidCredentials) {
		log.Warn().Str("email", req.Email).Str("ip", c.RealIP()).Msg("Failed login attempt")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return HTTPError(err)
	}

	pair, err := services.IssueTokens(middleware.GetConfig(c), user, Now())
	if err != nil {
		return HTTPError(err)
	}

	officeID := ""
	if user.HasOffice() {
		officeID = *user.OfficeID
	}
	services.RecordAuditAsync(db.DB, services.ActorFor(user, c.RealIP(), c.Request().UserAgent()), services.AuditRecord{
		Action:       models.AuditActionLogin,
		OfficeID:     officeID,
		ResourceType: "User",
		ResourceID:   user.ID,
		ResourceName: user.Name,
	})

	return c.JSON(http.StatusOK, pair)
}

// RefreshTokenHandler issues a new pair from a refresh token.
func RefreshTokenHandler(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := services.RefreshTokens(db.DB, middleware.GetConfig(c), req.Refresh, Now())
	if errors.Is(err, services.ErrInvalidToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, pair)
}

// CurrentUserHandler returns the authenticated user and its capabilities.
func CurrentUserHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return c.JSON(http.StatusOK, services.NewUserView(*user))
}

// ChangePasswordHandler lets a user replace their own password.
func ChangePasswordHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := services.ChangePassword(db.DB, user, req.CurrentPassword, req.NewPassword); err != nil {
		return HTTPError(err)
	}

	audit(c, models.AuditActionUpdate, "", "User", user.ID, user.Name, nil, map[string]string{"password": "changed"})
	return noContent(c)
}
