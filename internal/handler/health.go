package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports process liveness for load balancers and monitoring.
// It deliberately checks nothing downstream; a booking engine with a
// degraded broker should still accept traffic.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
