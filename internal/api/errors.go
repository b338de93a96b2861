package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hbromell/grab/pkg/logger"
	"github.com/labstack/echo/v4"
)

// errorBody is the JSON shape every failed request produces, regardless of
// whether the error originated in a controller, the binder, or middleware.
type errorBody struct {
	Detail string `json:"detail"`
}

// newHTTPErrorHandler returns an echo HTTP error handler which renders every
// error as an errorBody. Controllers raise echo.HTTPError with the status
// already decided; anything unrecognized becomes a 500.
func newHTTPErrorHandler() echo.HTTPErrorHandler {
	logger := logger.Get("API")
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		detail := "Internal server error"

		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			status = echoErr.Code
			detail = fmt.Sprintf("%v", echoErr.Message)
		}

		if status >= http.StatusInternalServerError {
			logger.Errorf("Request failure: %s\n", err.Error())
		}

		if jsonErr := ctx.JSON(status, errorBody{Detail: detail}); jsonErr != nil {
			logger.Errorf("Failed to write error response: %s\n", jsonErr.Error())
		}
	}
}
