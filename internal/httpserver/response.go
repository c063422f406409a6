package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/wishlist"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Response struct {
	Status  string          `json:"status"`
	Data    any             `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Notices []notify.Notice `json:"notices,omitempty"`
}

func (s *Server) ok(c echo.Context, code int, data any) error {
	return c.JSON(code, Response{Status: "ok", Data: data, Notices: s.App.Notices.Drain()})
}

func (s *Server) fail(c echo.Context, err error, message func(error) string) error {
	code := StatusOf(err)
	msg := message(err)
	if msg == "" {
		msg = http.StatusText(code)
	}
	l := logging.FromContext(c.Request().Context()).With("handler", c.Path())
	if code >= 500 {
		l.Error("request_error", "status", code, "error", err)
	} else {
		l.Warn("request_error", "status", code, "error", err)
	}
	return c.JSON(code, Response{Status: "error", Message: msg, Notices: s.App.Notices.Drain()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: msg})
}

// StatusOf classifies a manager error as the HTTP status the local API answers with.
func StatusOf(err error) int {
	var fe *checkout.FormError
	switch {
	case errors.Is(err, admin.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, cart.ErrNoOwner),
		errors.Is(err, wishlist.ErrNotAuthenticated),
		errors.Is(err, checkout.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &fe),
		errors.Is(err, session.ErrValidation),
		errors.Is(err, session.ErrPasswordMismatch),
		errors.Is(err, cart.ErrValidation),
		errors.Is(err, catalog.ErrValidation),
		errors.Is(err, wishlist.ErrValidation),
		errors.Is(err, admin.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, admin.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wishlist.ErrAlreadyInWishlist), errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}

func queryFloat(c echo.Context, name string) *float64 {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
