package handler

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// /cart, /cart/add/:id, /cart/clear を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/cart", middleware.RequireLogin())

	g.GET("", h.view)
	g.POST("/add/:id", h.add)
	g.POST("/clear", h.clear)
}

func (h *CartHandler) view(c echo.Context) error {
	u := middleware.CurrentUser(c)

	out, err := h.uc.List(c.Request().Context(), u.ID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Render(http.StatusOK, "cart.html", Page{
		User:  u,
		Error: c.QueryParam("error"),
		Data:  out,
	})
}

func (h *CartHandler) add(c echo.Context) error {
	u := middleware.CurrentUser(c)

	productID, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	// 未指定は1個
	qty := int64(1)
	if v := strings.TrimSpace(c.FormValue("quantity")); v != "" {
		qty, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return writeError(c, validationError("invalid quantity"))
		}
	}

	if err := h.uc.AddLine(c.Request().Context(), u.ID, productID, qty); err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/cart")
}

func (h *CartHandler) clear(c echo.Context) error {
	u := middleware.CurrentUser(c)

	if err := h.uc.Clear(c.Request().Context(), u.ID); err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/cart")
}
