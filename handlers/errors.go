package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"legalflow/services"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator. Only the first failing field is reported.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &services.ValidationError{Field: fe.Field(), Message: describeTag(fe)}
	}
	return &services.ValidationError{Message: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed on '" + fe.Tag() + "'"
	}
}

// HTTPError maps service errors onto status codes. Anything unknown is a 500
// and is logged, never echoed to the client.
func HTTPError(err error) error {
	if err == nil {
		return nil
	}

	var (
		he      *echo.HTTPError
		valErr  *services.ValidationError
		denyErr *services.AccessDeniedError
		nfErr   *services.NotFoundError
		confErr *services.ConflictError
		extErr  *services.ExternalServiceError
	)
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &valErr):
		return echo.NewHTTPError(http.StatusBadRequest, valErr.Error())
	case errors.As(err, &denyErr):
		return echo.NewHTTPError(http.StatusForbidden, denyErr.Error())
	case errors.As(err, &nfErr):
		return echo.NewHTTPError(http.StatusNotFound, nfErr.Error())
	case errors.As(err, &confErr):
		return echo.NewHTTPError(http.StatusConflict, confErr.Error())
	case errors.As(err, &extErr):
		log.Warn().Err(err).Str("service", extErr.Service).Msg("External service failure")
		return echo.NewHTTPError(http.StatusBadGateway, "external service unavailable: "+extErr.Service)
	default:
		log.Error().Err(err).Msg("Unhandled error")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

// ErrorHandler renders every error as {"error": message}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := HTTPError(err).(*echo.HTTPError)
	message := http.StatusText(he.Code)
	switch m := he.Message.(type) {
	case string:
		message = m
	case error:
		message = m.Error()
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, map[string]string{"error": message})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}
