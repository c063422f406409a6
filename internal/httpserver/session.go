package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func (s *Server) GetSession(c echo.Context) error {
	return s.ok(c, http.StatusOK, s.App.Session.Snapshot())
}

func (s *Server) GetHeader(c echo.Context) error {
	return s.ok(c, http.StatusOK, s.App.Header(c.Request().Context()))
}

func (s *Server) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return badRequest(c, "invalid body")
	}
	if err := s.App.Session.Login(ctx, req.Email, req.Password); err != nil {
		return s.fail(c, err, session.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Session.Snapshot())
}

func (s *Server) Register(c echo.Context) error {
	ctx := c.Request().Context()
	var req session.RegisterRequest
	if err := c.Bind(&req); err != nil {
		logging.FromContext(ctx).Warn("register_error", "status", 400, "error", err)
		return badRequest(c, "invalid body")
	}
	if err := s.App.Session.Register(ctx, req); err != nil {
		return s.fail(c, err, session.UserMessage)
	}
	return s.ok(c, http.StatusCreated, s.App.Session.Snapshot())
}

func (s *Server) Logout(c echo.Context) error {
	s.App.Session.Logout(c.Request().Context())
	return s.ok(c, http.StatusOK, s.App.Session.Snapshot())
}

func (s *Server) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	var patch models.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.App.Session.UpdateProfile(ctx, patch); err != nil {
		return s.fail(c, err, session.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Session.Snapshot())
}

func (s *Server) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	var req struct {
		Current string `json:"currentPassword"`
		Next    string `json:"newPassword"`
		Confirm string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.App.Session.ChangePassword(ctx, req.Current, req.Next, req.Confirm); err != nil {
		return s.fail(c, err, session.UserMessage)
	}
	return s.ok(c, http.StatusOK, nil)
}
