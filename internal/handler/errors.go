package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/service"
)

// writeError maps booking errors onto HTTP responses.  Every handler that
// calls the booking service funnels its errors through here so the status
// codes stay consistent.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		verr  *service.ValidationError
		cerr  *service.ConflictError
		icerr *service.InsufficientCreditError
		nferr *service.NotFoundError
		serr  *service.InvalidStateError
		ierr  *service.InfrastructureError
		vErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Msg, "field": verr.Field})
	case errors.As(err, &vErrs):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(vErrs)})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "some slots are already booked; refresh availability",
			"conflicts": cerr.Slots,
		})
	case errors.As(err, &icerr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    "insufficient credits",
			"required": icerr.Required,
		})
	case errors.As(err, &nferr):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.As(err, &serr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": serr.Reason})
	case errors.As(err, &ierr):
		log.Error("storage failure", zap.String("op", ierr.Op), zap.Error(ierr.Err),
			zap.String("path", c.Path()))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error":     "storage unavailable, try again",
			"retryable": true,
		})
	default:
		log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
