package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type fixture struct {
	backend *testutil.Backend
	app     *app.App
	e       *echo.Echo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testutil.NewBackend(t)
	cfg := &config.Config{APIURL: b.URL, APITimeout: 2 * time.Second, CredStore: config.StoreMemory}
	a, err := app.New(logging.IntoContext(context.Background(), logging.Discard()), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	e := echo.New()
	Register(e, &Deps{App: a})
	return &fixture{backend: b, app: a, e: e}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (f *fixture) login(t *testing.T, role string) models.User {
	t.Helper()
	u, _ := f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io", Role: role}, "pw")
	require.NoError(t, f.app.Session.Login(context.Background(), "ana@x.io", "pw"))
	f.app.Notices.Drain()
	return u
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "session not restored yet")

	f.app.Session.Restore(context.Background())
	rec, _ = f.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireLogin(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/wishlist", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.app.Session.Restore(context.Background())
	rec, resp := f.do(t, http.MethodGet, "/api/wishlist", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, session.MsgNotAuthenticated, resp.Message)
}

func TestRequireAdmin(t *testing.T) {
	f := newFixture(t)
	f.login(t, "user")

	rec, resp := f.do(t, http.MethodGet, "/api/admin/products", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, admin.MsgForbidden, resp.Message)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	f.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io"}, "pw")

	rec, resp := f.do(t, http.MethodPost, "/api/session/login", map[string]string{"email": "ana@x.io", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, session.MsgInvalidCredentials, resp.Message)

	rec, resp = f.do(t, http.MethodPost, "/api/session/login", map[string]string{"email": "ana@x.io", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, session.MsgLoggedIn, resp.Notices[0].Message)

	rec, resp = f.do(t, http.MethodGet, "/api/header", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["authenticated"])
	assert.Equal(t, "Ana", data["userName"])

	rec, _ = f.do(t, http.MethodPost, "/api/session/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.app.Session.IsAuthenticated())
}

func TestCartRoutes(t *testing.T) {
	f := newFixture(t)
	u := f.login(t, "user")
	p := f.backend.AddProduct(models.Product{Name: "Taladro", Price: "10.00", Stock: 3})

	rec, resp := f.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": p.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, cart.MsgAdded, resp.Notices[0].Message)
	lines := f.backend.CartLines(u.ID)
	require.Len(t, lines, 1)

	rec, resp = f.do(t, http.MethodPut, "/api/cart/items/"+itoa(lines[0].ID), map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, cart.MsgValidation, resp.Message)

	rec, _ = f.do(t, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.app.Cart.Count())

	rec, _ = f.do(t, http.MethodDelete, "/api/cart", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.backend.CartLines(u.ID))
}

func TestCartWithoutOwner(t *testing.T) {
	f := newFixture(t)
	f.app.Session.Restore(context.Background())

	rec, resp := f.do(t, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, cart.MsgNoOwner, resp.Message)
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)
	f.backend.AddProduct(models.Product{Name: "Barato", Price: "5.00", SubcategoryID: 1})
	f.backend.AddProduct(models.Product{Name: "Caro", Price: "50.00", SubcategoryID: 1})

	rec, resp := f.do(t, http.MethodGet, "/api/catalog/products?sort=price-desc&maxPrice=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	products := data["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "Barato", products[0].(map[string]any)["nombreProducto"])

	rec, _ = f.do(t, http.MethodGet, "/api/catalog/products?sort=random", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/catalog/products/999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.login(t, "user")

	form := map[string]string{
		"nombre": "Ana", "email": "ana@x.io", "telefono": "1", "direccion": "Calle 1",
		"ciudad": "Lima", "pais": "PE", "codigoPostal": "15001", "metodoPago": "efectivo",
	}
	rec, resp := f.do(t, http.MethodPost, "/api/checkout", form)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "No hay productos en el carrito", resp.Message)
}

func TestAdminCreateAndExport(t *testing.T) {
	f := newFixture(t)
	f.login(t, models.RoleAdmin)

	form := admin.ProductForm{Product: models.Product{
		Name: "Sierra", Price: "12.50", Stock: 4, ModelID: 1, SubcategoryID: 2, Status: "ACTIVO",
	}}
	rec, resp := f.do(t, http.MethodPost, "/api/admin/products", form)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, admin.MsgCreated, resp.Notices[0].Message)
	assert.Len(t, f.backend.Products(), 1)

	form.Product.Price = "abc"
	rec, resp = f.do(t, http.MethodPost, "/api/admin/products", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Debe ser un precio válido", resp.Message)

	rec, _ = f.do(t, http.MethodGet, "/api/admin/products/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.NotZero(t, rec.Body.Len())
}
