package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterEcho mounts the service's endpoints on an echo router.
func RegisterEcho(e *echo.Echo, s *Service) {
	e.POST("/v1/requests", echo.WrapHandler(http.HandlerFunc(s.CreateHandler)))
	e.POST("/v1/requests/private", echo.WrapHandler(http.HandlerFunc(s.CreatePrivateHandler)))
	e.POST("/v1/settle", echo.WrapHandler(http.HandlerFunc(s.SettleHandler)))
	e.POST("/v1/settle/private", echo.WrapHandler(http.HandlerFunc(s.SettlePrivateHandler)))
	e.POST("/v1/sweep", echo.WrapHandler(http.HandlerFunc(s.SweepHandler)))
	e.POST("/v1/sweep/private", echo.WrapHandler(http.HandlerFunc(s.SweepPrivateHandler)))
}
