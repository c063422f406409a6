package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/session"
)

func (s *Server) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.App.Session.IsLoading() {
			return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Message: "session loading"})
		}
		if !s.App.Session.IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, Response{Status: "error", Message: session.MsgNotAuthenticated})
		}
		if uid, ok := s.App.Session.CurrentUserID(); ok {
			c.Set("user_id", uid)
		}
		return next(c)
	}
}

func (s *Server) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return s.RequireLogin(func(c echo.Context) error {
		if !s.App.Session.IsAdmin() {
			return c.JSON(http.StatusForbidden, Response{Status: "error", Message: admin.MsgForbidden})
		}
		return next(c)
	})
}
