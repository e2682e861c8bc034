package server

import (
	"app/internal/config"
	"app/internal/handler"
	"app/internal/metrics"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Product    *handler.ProductHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
}

// New はルートとミドルウェアを組んだechoを返す。
func New(cfg config.Config, m *metrics.ServerMetrics, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	if m != nil {
		e.Use(m.Middleware())
	}

	RegisterRoutes(e, cfg, m, h)
	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
