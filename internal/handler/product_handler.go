package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 商品一覧と管理者の商品操作
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.index, middleware.RequireLogin())

	admin := middleware.AdminRoleGuard()
	e.POST("/add", h.add, admin)
	e.GET("/edit/:id", h.editForm, admin)
	e.POST("/edit/:id", h.edit, admin)
	e.POST("/delete/:id", h.delete, admin)
}

func (h *ProductHandler) index(c echo.Context) error {
	products, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.Render(http.StatusOK, "index.html", Page{
		User:  middleware.CurrentUser(c),
		Error: c.QueryParam("error"),
		Data:  products,
	})
}

func (h *ProductHandler) add(c echo.Context) error {
	in, err := bindProductForm(c)
	if err != nil {
		return writeError(c, err)
	}
	img, closeImg, err := formImage(c)
	if err != nil {
		return writeError(c, err)
	}
	defer closeImg()

	if _, err := h.uc.Create(c.Request().Context(), middleware.CurrentUser(c), in, img); err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *ProductHandler) editForm(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	p, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.Render(http.StatusOK, "edit_product.html", Page{
		User:  middleware.CurrentUser(c),
		Error: c.QueryParam("error"),
		Data:  p,
	})
}

func (h *ProductHandler) edit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	in, err := bindProductForm(c)
	if err != nil {
		return writeError(c, err)
	}
	img, closeImg, err := formImage(c)
	if err != nil {
		return writeError(c, err)
	}
	defer closeImg()

	if err := h.uc.Update(c.Request().Context(), middleware.CurrentUser(c), id, in, img); err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *ProductHandler) delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.uc.Delete(c.Request().Context(), middleware.CurrentUser(c), id); err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/")
}

// フォームの name, price, quantity, description
func bindProductForm(c echo.Context) (usecase.ProductInput, error) {
	var in usecase.ProductInput

	in.Name = c.FormValue("name")

	price, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		return in, validationError("invalid price")
	}
	in.Price = price

	qty, err := strconv.ParseInt(strings.TrimSpace(c.FormValue("quantity")), 10, 64)
	if err != nil {
		return in, validationError("invalid quantity")
	}
	in.Quantity = qty

	if d := c.FormValue("description"); d != "" {
		in.Description = &d
	}
	return in, nil
}

// 画像が無ければnil。返したcloseは必ず呼ぶ
func formImage(c echo.Context) (*usecase.ImageUpload, func(), error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, validationError("invalid image upload")
	}
	if fh.Filename == "" || fh.Size == 0 {
		return nil, func() {}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &usecase.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.ErrNotFound
	}
	return id, nil
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", usecase.ErrValidation, msg)
}
