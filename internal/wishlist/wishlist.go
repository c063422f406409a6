// Package wishlist manages the authenticated user's saved products.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrValidation        = errors.New("validation")
	ErrAlreadyInWishlist = errors.New("product already in wishlist")
	ErrWishlist          = errors.New("wishlist unavailable")
	ErrMoveToCart        = errors.New("move to cart failed")
)

const (
	MsgNotAuthenticated = "Por favor inicia sesión para añadir productos a tus favoritos"
	MsgLoad             = "Error al cargar la lista de deseos"
	MsgAdd              = "No se pudo añadir a la lista de deseos"
	MsgAlready          = "Este producto ya está en tu lista de deseos"
	MsgRemove           = "Error al eliminar de la lista de deseos"
	MsgMoveToCart       = "Error al añadir al carrito"

	MsgAdded   = "Producto añadido a tu lista de deseos"
	MsgRemoved = "Producto eliminado de la lista de deseos"
)

// duplicateMarker is how the backend words a duplicate add in a 400 body.
const duplicateMarker = "ya está en la lista de deseos"

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrAlreadyInWishlist):
		return MsgAlready
	case errors.Is(err, ErrMoveToCart):
		return MsgMoveToCart
	case errors.Is(err, ErrValidation):
		return "Producto inválido"
	}
	return MsgLoad
}

// Identity is the part of the session the wishlist needs.
type Identity interface {
	CurrentUserID() (int64, bool)
}

// CartAdder is the part of the cart used by MoveToCart.
type CartAdder interface {
	AddItem(ctx context.Context, productID int64, qty int) error
}

type addRequest struct {
	UserID    int64 `json:"fkCuentaUser"`
	ProductID int64 `json:"fkProducto"`
}

type Service struct {
	API     apiclient.API
	Session Identity
	Cart    CartAdder
	Notices *notify.Notifier
}

func (s *Service) user() (int64, error) {
	if s.Session == nil {
		return 0, ErrNotAuthenticated
	}
	id, ok := s.Session.CurrentUserID()
	if !ok {
		return 0, ErrNotAuthenticated
	}
	return id, nil
}

func (s *Service) List(ctx context.Context) ([]models.WishlistItem, error) {
	l := logging.FromContext(ctx).With("svc", "wishlist.list")
	uid, err := s.user()
	if err != nil {
		return nil, err
	}
	var out []models.WishlistItem
	if err := s.API.Get(ctx, "/listadeseos/usuario/"+strconv.FormatInt(uid, 10), &out); err != nil {
		l.Error("get_wishlist_error", "user_id", uid, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrWishlist, err)
	}
	if out == nil {
		out = []models.WishlistItem{}
	}
	return out, nil
}

// Count is the header badge value; 0 when anonymous or on failure.
func (s *Service) Count(ctx context.Context) int {
	items, err := s.List(ctx)
	if err != nil {
		return 0
	}
	return len(items)
}

// Add saves a product. A duplicate is reported as ErrAlreadyInWishlist with
// an info notice rather than an error notice.
func (s *Service) Add(ctx context.Context, productID int64) error {
	l := logging.FromContext(ctx).With("svc", "wishlist.add")
	uid, err := s.user()
	if err != nil {
		s.Notices.Info(ctx, MsgNotAuthenticated)
		return err
	}
	if productID <= 0 {
		return fmt.Errorf("%w: product id required", ErrValidation)
	}

	err = s.API.Post(ctx, "/listadeseos", addRequest{UserID: uid, ProductID: productID}, nil)
	switch {
	case err == nil:
	case isDuplicate(err):
		l.Info("wishlist_duplicate", "user_id", uid, "product_id", productID)
		s.Notices.Info(ctx, MsgAlready)
		return fmt.Errorf("%w: %w", ErrAlreadyInWishlist, err)
	default:
		l.Error("add_wishlist_error", "user_id", uid, "product_id", productID, "error", err)
		s.Notices.Error(ctx, MsgAdd)
		return fmt.Errorf("%w: %w", ErrWishlist, err)
	}

	l.Info("wishlist_item_added", "user_id", uid, "product_id", productID)
	s.Notices.Success(ctx, MsgAdded)
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, apiclient.ErrConflict) {
		return true
	}
	return strings.Contains(strings.ToLower(apiclient.MessageOf(err)), duplicateMarker)
}

func (s *Service) Remove(ctx context.Context, itemID int64) error {
	l := logging.FromContext(ctx).With("svc", "wishlist.remove")
	uid, err := s.user()
	if err != nil {
		return err
	}
	if itemID <= 0 {
		return fmt.Errorf("%w: item id required", ErrValidation)
	}
	if err := s.API.Delete(ctx, "/listadeseos/"+strconv.FormatInt(itemID, 10), nil); err != nil {
		l.Error("delete_wishlist_error", "user_id", uid, "item_id", itemID, "error", err)
		s.Notices.Error(ctx, MsgRemove)
		return fmt.Errorf("%w: %w", ErrWishlist, err)
	}
	l.Info("wishlist_item_removed", "user_id", uid, "item_id", itemID)
	s.Notices.Success(ctx, MsgRemoved)
	return nil
}

// MoveToCart adds one unit of the product to the cart. The wishlist entry is
// kept; the cart pushes its own success notice.
func (s *Service) MoveToCart(ctx context.Context, productID int64) error {
	if _, err := s.user(); err != nil {
		return err
	}
	if err := s.Cart.AddItem(ctx, productID, 1); err != nil {
		if errors.Is(err, cart.ErrValidation) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		s.Notices.Error(ctx, MsgMoveToCart)
		return fmt.Errorf("%w: %w", ErrMoveToCart, err)
	}
	return nil
}
