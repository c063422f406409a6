// Package checkout turns the current cart into a sale.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCheckout         = errors.New("checkout failed")
	ErrOrders           = errors.New("orders unavailable")
)

const (
	MsgNotAuthenticated = "Debes iniciar sesión para finalizar la compra"
	MsgEmptyCart        = "No hay productos en el carrito"
	MsgCheckout         = "Error al procesar el pago"
	MsgValidation       = "Completa todos los campos obligatorios"
	MsgOrders           = "Error al cargar los pedidos"
	MsgPlaced           = "¡Compra realizada con éxito!"
)

// defaultUnitPrice is sent for lines the backend returned without a price.
const defaultUnitPrice models.Money = "0.0"

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrEmptyCart):
		return MsgEmptyCart
	case errors.Is(err, ErrValidation):
		return MsgValidation
	case errors.Is(err, ErrOrders):
		return MsgOrders
	}
	return MsgCheckout
}

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "tarjeta"
	PaymentTransfer PaymentMethod = "transferencia"
	PaymentCash     PaymentMethod = "efectivo"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCard, PaymentTransfer, PaymentCash:
		return true
	}
	return false
}

// Form is what the buyer fills in. Card fields apply to PaymentCard only.
type Form struct {
	Name          string        `json:"nombre"                    yaml:"nombre"`
	Email         string        `json:"email"                     yaml:"email"`
	Phone         string        `json:"telefono"                  yaml:"telefono"`
	Address       string        `json:"direccion"                 yaml:"direccion"`
	City          string        `json:"ciudad"                    yaml:"ciudad"`
	Country       string        `json:"pais"                      yaml:"pais"`
	PostalCode    string        `json:"codigoPostal"              yaml:"codigoPostal"`
	PaymentMethod PaymentMethod `json:"metodoPago"                yaml:"metodoPago"`
	CardNumber    string        `json:"numeroTarjeta,omitempty"   yaml:"numeroTarjeta,omitempty"`
	CardExpiry    string        `json:"fechaExpiracion,omitempty" yaml:"fechaExpiracion,omitempty"`
	CardCVV       string        `json:"cvv,omitempty"             yaml:"cvv,omitempty"`
}

// Prefill returns a card-payment form with the user's contact fields.
func Prefill(u *models.User) Form {
	f := Form{PaymentMethod: PaymentCard}
	if u != nil {
		f.Name, f.Email, f.Phone = u.Name, u.Email, u.Phone
	}
	return f
}

// FormError lists the form fields that failed validation.
type FormError struct {
	Fields []string
}

func (e *FormError) Error() string {
	return "invalid checkout form: " + strings.Join(e.Fields, ", ")
}

func (e *FormError) Is(target error) bool { return target == ErrValidation }

// Validate checks required fields and the payment method.
func (f Form) Validate() error {
	var bad []string
	required := map[string]string{
		"nombre":       f.Name,
		"email":        f.Email,
		"telefono":     f.Phone,
		"direccion":    f.Address,
		"ciudad":       f.City,
		"pais":         f.Country,
		"codigoPostal": f.PostalCode,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			bad = append(bad, field)
		}
	}
	if e := strings.TrimSpace(f.Email); e != "" && !strings.Contains(e, "@") {
		bad = append(bad, "email")
	}
	if !f.PaymentMethod.Valid() {
		bad = append(bad, "metodoPago")
	}
	if f.PaymentMethod == PaymentCard {
		for field, v := range map[string]string{
			"numeroTarjeta":   f.CardNumber,
			"fechaExpiracion": f.CardExpiry,
			"cvv":             f.CardCVV,
		} {
			if strings.TrimSpace(v) == "" {
				bad = append(bad, field)
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return &FormError{Fields: bad}
}

type Identity interface {
	CurrentUserID() (int64, bool)
}

// Cart is the part of the cart manager checkout drives.
type Cart interface {
	Fetch(ctx context.Context) error
	Snapshot() cart.Snapshot
	Clear(ctx context.Context) error
}

type Receipt struct {
	OrderID int64               `json:"orderId" yaml:"orderId"`
	Total   models.Money        `json:"total"   yaml:"total"`
	Method  PaymentMethod       `json:"method"  yaml:"method"`
	Details []models.SaleDetail `json:"details" yaml:"details"`
	// Cleared is false when the order was placed but emptying the cart failed.
	Cleared bool `json:"cleared" yaml:"cleared"`
}

type Service struct {
	API       apiclient.API
	Session   Identity
	Cart      Cart
	Notices   *notify.Notifier
	Publisher events.Publisher
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

// BuildSale maps cart lines to the sale request. Prices and subtotals are the
// backend's strings, unchanged.
func BuildSale(userID int64, snap cart.Snapshot, method PaymentMethod) models.SaleRequest {
	details := make([]models.SaleDetail, len(snap.Items))
	for i, line := range snap.Items {
		price := line.UnitPrice
		if price == "" {
			price = defaultUnitPrice
		}
		details[i] = models.SaleDetail{
			ProductID: line.ProductID,
			UnitPrice: price,
			Quantity:  line.Quantity,
			Subtotal:  line.LineTotal,
		}
	}
	return models.SaleRequest{
		Sale:    models.SaleHeader{UserID: userID, Total: snap.Total.OrZero(), PaymentMethod: string(method)},
		Details: details,
	}
}

// PlaceOrder reloads the cart, posts the sale and empties the cart. A failed
// clear after the sale was recorded is logged and reported on the receipt.
func (s *Service) PlaceOrder(ctx context.Context, form Form) (Receipt, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.place")

	userID, err := s.user()
	if err != nil {
		s.Notices.Error(ctx, MsgNotAuthenticated)
		return Receipt{}, err
	}

	if err := form.Validate(); err != nil {
		s.Notices.Error(ctx, MsgValidation)
		return Receipt{}, err
	}

	if err := s.Cart.Fetch(ctx); err != nil {
		l.Error("checkout_cart_error", "user_id", userID, "error", err)
		s.Notices.Error(ctx, MsgCheckout)
		return Receipt{}, fmt.Errorf("%w: %w", ErrCheckout, err)
	}
	snap := s.Cart.Snapshot()
	if snap.Empty() {
		s.Notices.Error(ctx, MsgEmptyCart)
		return Receipt{}, ErrEmptyCart
	}

	req := BuildSale(userID, snap, form.PaymentMethod)
	var resp models.SaleResponse
	if err := s.API.Post(ctx, "/ventas", req, &resp); err != nil {
		l.Error("create_sale_error", "user_id", userID, "kind", string(apiclient.KindOf(err)), "error", err)
		s.Notices.Error(ctx, MsgCheckout)
		return Receipt{}, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	rec := Receipt{OrderID: resp.ID, Total: req.Sale.Total, Method: form.PaymentMethod, Details: req.Details, Cleared: true}
	if err := s.Cart.Clear(ctx); err != nil {
		l.Warn("checkout_clear_cart_error", "user_id", userID, "order_id", resp.ID, "error", err)
		rec.Cleared = false
	}

	l.Info("order placed", "user_id", userID, "order_id", resp.ID, "total", string(rec.Total))
	s.Notices.Success(ctx, MsgPlaced)
	events.Emit(ctx, s.Publisher, events.TopicOrder, events.Event{
		Type:   events.OrderPlaced,
		UserID: userID,
		Data: map[string]any{
			"orderID": resp.ID,
			"total":   string(rec.Total),
			"lines":   len(req.Details),
			"method":  string(form.PaymentMethod),
		},
	})
	return rec, nil
}

// Orders lists the user's past sales, newest as the backend orders them.
func (s *Service) Orders(ctx context.Context) ([]models.Order, error) {
	uid, err := s.user()
	if err != nil {
		return nil, err
	}
	var out []models.Order
	if err := s.API.Get(ctx, "/ventas/usuario/"+strconv.FormatInt(uid, 10), &out); err != nil {
		logging.FromContext(ctx).With("svc", "checkout.orders").Error("get_orders_error", "user_id", uid, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrOrders, err)
	}
	if out == nil {
		out = []models.Order{}
	}
	return out, nil
}
