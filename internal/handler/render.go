package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"storefront/internal/domain/model"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"login.html",
	"index.html",
	"edit_product.html",
	"cart.html",
	"orders.html",
	"admin.html",
	"error.html",
}

// 画面共通のデータ
type Page struct {
	User  *model.User
	Error string
	Data  any
}

// echo.Renderer。ページごとにlayoutと組み合わせたテンプレートを持つ
type Renderer struct {
	templates map[string]*template.Template
	// ローカル保存の画像URLの前置き
	staticPrefix string
}

func NewRenderer(staticPrefix string) (*Renderer, error) {
	r := &Renderer{templates: map[string]*template.Template{}, staticPrefix: staticPrefix}
	funcs := template.FuncMap{
		"money":    money,
		"deref":    deref,
		"imageURL": r.imageURL,
	}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// S3ならURLそのまま、ローカルなら/static配下
func (r *Renderer) imageURL(p *string) string {
	if p == nil || *p == "" {
		return ""
	}
	if strings.HasPrefix(*p, "http://") || strings.HasPrefix(*p, "https://") {
		return *p
	}
	return r.staticPrefix + "/" + strings.TrimPrefix(*p, "/")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
