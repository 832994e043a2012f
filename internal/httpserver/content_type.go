package httpserver

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shopcarts/pkg/logging"
)

// RequireJSON rejects request bodies that are not declared as application/json.
func RequireJSON(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			return next(c)
		}

		ct := c.Request().Header.Get(echo.HeaderContentType)
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != echo.MIMEApplicationJSON {
			logging.FromContext(c.Request().Context()).Warn("invalid_content_type", "status", http.StatusUnsupportedMediaType, "content_type", ct)
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Content-Type must be "+echo.MIMEApplicationJSON)
		}
		return next(c)
	}
}
