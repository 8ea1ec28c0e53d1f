package middleware

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	CtxUserKey        = "user" // *model.User
	SessionCookieName = "session"
)

// cookieの値からユーザーを引く（auth.SessionUsecase）
type SessionResolver interface {
	Resolve(ctx context.Context, cookie string) (*model.User, error)
}

// 全リクエストでcookieを見てユーザーをcontextに入れる。
// 無効なcookieは匿名として扱う
func SessionAuth(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookieName)
			if err != nil || ck.Value == "" {
				return next(c)
			}

			user, err := resolver.Resolve(c.Request().Context(), ck.Value)
			if err != nil {
				if !errors.Is(err, auth.ErrNoSession) {
					zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("resolve session")
				}
				return next(c)
			}

			c.Set(CtxUserKey, user)
			return next(c)
		}
	}
}

// 未ログインならnil
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(CtxUserKey).(*model.User)
	return u
}

// 未ログインは/loginへ
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.Redirect(http.StatusFound, "/login")
			}
			return next(c)
		}
	}
}
