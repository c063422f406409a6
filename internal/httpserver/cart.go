package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func (s *Server) GetCart(c echo.Context) error {
	if err := s.App.Cart.Fetch(c.Request().Context()); err != nil {
		return s.fail(c, err, cart.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Cart.Snapshot())
}

func (s *Server) AddCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return badRequest(c, "invalid body")
	}
	if req.ProductID <= 0 {
		return badRequest(c, "productId required")
	}
	if err := s.App.Cart.AddItem(ctx, req.ProductID, req.Quantity); err != nil {
		return s.fail(c, err, cart.UserMessage)
	}
	return s.ok(c, http.StatusCreated, s.App.Cart.Snapshot())
}

func (s *Server) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.App.Cart.UpdateItem(ctx, id, req.Quantity); err != nil {
		return s.fail(c, err, cart.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Cart.Snapshot())
}

func (s *Server) RemoveCartItem(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := s.App.Cart.RemoveItem(c.Request().Context(), id); err != nil {
		return s.fail(c, err, cart.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Cart.Snapshot())
}

func (s *Server) ClearCart(c echo.Context) error {
	if err := s.App.Cart.Clear(c.Request().Context()); err != nil {
		return s.fail(c, err, cart.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Cart.Snapshot())
}
