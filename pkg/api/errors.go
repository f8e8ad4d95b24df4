package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/ruchirkulkarni22/LensOra/pkg/jira"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

// mapServiceError translates service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests,
			"solution generation was requested for this ticket moments ago; try again shortly")
	case errors.Is(err, ErrInFlight):
		return echo.NewHTTPError(http.StatusConflict,
			"a solution generation for this ticket is already in progress")
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case errors.Is(err, jira.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError,
			"ticket platform credentials are not configured")
	}

	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
