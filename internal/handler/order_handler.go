package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/orders", middleware.RequireLogin())

	g.GET("", h.list)
	g.POST("/create", h.create)
}

// 注文確定
func (h *OrderHandler) create(c echo.Context) error {
	u := middleware.CurrentUser(c)

	if _, err := h.uc.PlaceOrder(c.Request().Context(), u.ID); err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/orders")
}

// 自分の注文一覧
func (h *OrderHandler) list(c echo.Context) error {
	u := middleware.CurrentUser(c)

	orders, err := h.uc.ListOrders(c.Request().Context(), u.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Render(http.StatusOK, "orders.html", Page{
		User:  u,
		Error: c.QueryParam("error"),
		Data:  orders,
	})
}
