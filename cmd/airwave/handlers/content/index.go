package content

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/airwave/cmd/airwave/handlers/common"
	"thirdcoast.systems/airwave/cmd/airwave/templates"
)

// HandleIndexPage renders the relay page. Asset URLs carry the current
// Unix time so every load fetches a fresh client.
func HandleIndexPage(clock clockwork.Clock) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		if err := templates.Index(clock.Now().Unix()).Render(c.Request().Context(), c.Response()); err != nil {
			slog.Error("failed to render index page", "error", err)
			return common.ErrInternal("failed to render page")
		}
		return nil
	}
}
