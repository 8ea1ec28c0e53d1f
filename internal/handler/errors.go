package handler

import (
	"errors"
	"net/http"
	"net/url"

	"storefront/internal/middleware"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorPage struct {
	Status  int
	Message string
}

// usecaseのエラーを画面遷移かエラーページに変換する
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if oe, ok := usecase.AsOversold(err); ok {
		return redirectWithError(c, "/cart", oe.UserMessage())
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return redirectWithError(c, "/login", "invalid username or password")
	case errors.Is(err, usecase.ErrUnauthorized):
		return c.Redirect(http.StatusFound, "/login")
	case errors.Is(err, auth.ErrUsernameTaken):
		return redirectWithError(c, "/login", "username already taken")
	case errors.Is(err, usecase.ErrForbidden):
		return renderError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, usecase.ErrNotFound):
		return renderError(c, http.StatusNotFound, "not found")
	case errors.Is(err, usecase.ErrValidation):
		return renderError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrInsufficientStock):
		return redirectWithError(c, "/", "not enough stock")
	case errors.Is(err, usecase.ErrEmptyCart):
		return redirectWithError(c, "/cart", "your cart is empty")
	}

	//500
	zerolog.Ctx(c.Request().Context()).Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("request failed")
	return renderError(c, http.StatusInternalServerError, "internal error")
}

func redirectWithError(c echo.Context, path string, msg string) error {
	return c.Redirect(http.StatusFound, path+"?error="+url.QueryEscape(msg))
}

func renderError(c echo.Context, status int, msg string) error {
	return c.Render(status, "error.html", Page{
		User: middleware.CurrentUser(c),
		Data: errorPage{Status: status, Message: msg},
	})
}

// echoのHTTPErrorもエラーページで返す
func HTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		} else {
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		if rerr := renderError(c, status, msg); rerr != nil {
			log.Error().Err(rerr).Msg("render error page")
		}
	}
}
