package common

import "github.com/labstack/echo/v4"

// SetSSEHeaders turns off reverse proxy buffering for an event stream.
// datastar.NewSSE writes the content type and cache headers itself.
func SetSSEHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set("X-Accel-Buffering", "no")
	h.Set("Vary", "Accept")
}
