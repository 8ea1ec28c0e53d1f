package server

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, d Deps) {
	if d.StaticDir != "" {
		e.Static("/static/images", d.StaticDir)
	}
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler(d.Log)))
	}

	d.Health.RegisterRoutes(e)
	d.Auth.RegisterRoutes(e)
	d.Product.RegisterRoutes(e)
	d.Cart.RegisterRoutes(e)
	d.Order.RegisterRoutes(e)
	d.Admin.RegisterRoutes(e)
}
