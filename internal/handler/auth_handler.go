package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

// /login, /logout, /register
type AuthHandler struct {
	registerUC   *auth.RegisterUserUsecase
	loginUC      *auth.LoginUsecase
	sessionUC    SessionEnder
	cookieSecure bool
}

type SessionEnder interface {
	Logout(ctx context.Context, cookie string) error
}

// DI
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	sessionUC SessionEnder,
	cookieSecure bool,
) *AuthHandler {
	return &AuthHandler{
		registerUC:   registerUC,
		loginUC:      loginUC,
		sessionUC:    sessionUC,
		cookieSecure: cookieSecure,
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/login", h.loginPage)
	e.POST("/login", h.login)
	e.GET("/logout", h.logout)
	e.POST("/register", h.register)
}

func (h *AuthHandler) loginPage(c echo.Context) error {
	if middleware.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/")
	}
	return c.Render(http.StatusOK, "login.html", Page{Error: c.QueryParam("error")})
}

func (h *AuthHandler) login(c echo.Context) error {
	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	})
	if err != nil {
		return writeError(c, err)
	}

	h.setSessionCookie(c, out.Cookie, out.ExpiresAt)
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) logout(c echo.Context) error {
	if ck, err := c.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.sessionUC.Logout(c.Request().Context(), ck.Value); err != nil {
			return writeError(c, err)
		}
	}

	h.clearSessionCookie(c)
	return c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) register(c echo.Context) error {
	_, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Role:     c.FormValue("role"),
	})
	if errors.Is(err, usecase.ErrValidation) {
		return redirectWithError(c, "/login", err.Error())
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, "/login")
}

// セッションcookieをセット。
func (h *AuthHandler) setSessionCookie(c echo.Context, value string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
