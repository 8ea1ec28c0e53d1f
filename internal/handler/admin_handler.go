package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	uc *usecase.AdminUsecase
}

func NewAdminHandler(uc *usecase.AdminUsecase) *AdminHandler {
	return &AdminHandler{uc: uc}
}

// /admin はadmin限定
func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/admin", h.dashboard, middleware.AdminRoleGuard())
}

func (h *AdminHandler) dashboard(c echo.Context) error {
	u := middleware.CurrentUser(c)

	rows, err := h.uc.Dashboard(c.Request().Context(), u)
	if err != nil {
		return writeError(c, err)
	}
	return c.Render(http.StatusOK, "admin.html", Page{User: u, Data: rows})
}
