package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/wishlist"
)

func (s *Server) GetWishlist(c echo.Context) error {
	items, err := s.App.Wishlist.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err, wishlist.UserMessage)
	}
	return s.ok(c, http.StatusOK, items)
}

func (s *Server) AddToWishlist(c echo.Context) error {
	var req struct {
		ProductID int64 `json:"productId"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID <= 0 {
		return badRequest(c, "productId required")
	}
	if err := s.App.Wishlist.Add(c.Request().Context(), req.ProductID); err != nil {
		return s.fail(c, err, wishlist.UserMessage)
	}
	return s.ok(c, http.StatusCreated, nil)
}

func (s *Server) RemoveFromWishlist(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := s.App.Wishlist.Remove(c.Request().Context(), id); err != nil {
		return s.fail(c, err, wishlist.UserMessage)
	}
	return s.ok(c, http.StatusOK, nil)
}

// WishlistToCart adds the product :id to the cart; the wishlist entry stays.
func (s *Server) WishlistToCart(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := s.App.Wishlist.MoveToCart(c.Request().Context(), id); err != nil {
		return s.fail(c, err, wishlist.UserMessage)
	}
	return s.ok(c, http.StatusOK, s.App.Cart.Snapshot())
}

func (s *Server) Checkout(c echo.Context) error {
	var form checkout.Form
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid body")
	}
	receipt, err := s.App.Checkout.PlaceOrder(c.Request().Context(), form)
	if err != nil {
		return s.fail(c, err, func(err error) string {
			if msg := checkout.UserMessage(err); msg != "" {
				return msg
			}
			return cart.UserMessage(err)
		})
	}
	return s.ok(c, http.StatusCreated, receipt)
}

func (s *Server) Orders(c echo.Context) error {
	orders, err := s.App.Checkout.Orders(c.Request().Context())
	if err != nil {
		return s.fail(c, err, checkout.UserMessage)
	}
	return s.ok(c, http.StatusOK, orders)
}
