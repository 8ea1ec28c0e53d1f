package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

//contextに入っているユーザーがadminかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return c.Redirect(http.StatusFound, "/login")
			}

			//customerは拒否、adminだけ許可
			if !u.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin only")
			}

			return next(c)
		}
	}
}
