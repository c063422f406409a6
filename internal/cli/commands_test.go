package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/credstore"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// harness runs commands the way separate processes would: every run builds a
// new App over the same credential store.
type harness struct {
	backend *testutil.Backend
	store   *credstore.MemoryStore
	cfg     *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := testutil.NewBackend(t)
	return &harness{
		backend: b,
		store:   credstore.NewMemoryStore(),
		cfg:     &config.Config{APIURL: b.URL, APITimeout: 2 * time.Second, CredStore: config.StoreMemory},
	}
}

func (h *harness) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	opts := &RootOptions{Open: func(ctx context.Context) (*app.App, error) {
		return app.New(logging.IntoContext(ctx, logging.Discard()), h.cfg, app.WithStore(h.store))
	}}
	cmd := NewRootCommand(opts)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestLoginPersistsAcrossCommands(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io"}, "pw")

	out, _, err := h.run(t, "login", "--email", "ana@x.io", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Sesión iniciada como ana@x.io")

	out, _, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana <ana@x.io>")

	_, _, err = h.run(t, "logout")
	require.NoError(t, err)
	out, _, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Sin sesión")
}

func TestLoginFailureExitCode(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run(t, "login", "--email", "x@x.io", "--password", "bad")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [unauthenticated]: Credenciales incorrectas")
}

func TestCartCommands(t *testing.T) {
	h := newHarness(t)
	u, _ := h.backend.AddUser(models.User{Email: "ana@x.io"}, "pw")
	p := h.backend.AddProduct(models.Product{Name: "Taladro", Price: "19.90", Stock: 5})
	_, _, err := h.run(t, "login", "--email", "ana@x.io", "--password", "pw")
	require.NoError(t, err)

	out, stderr, err := h.run(t, "cart", "add", itoa(p.ID), "--qty", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[success] "+cart.MsgAdded)
	assert.Contains(t, out, "Taladro")
	assert.Contains(t, out, "Total: 39.80")

	out, _, err = h.run(t, "--format", "json", "cart", "show")
	require.NoError(t, err)
	var resp struct {
		Status string        `json:"status"`
		Data   cart.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, u.ID, resp.Data.Owner.UserID)

	lineID := resp.Data.Items[0].ID
	_, _, err = h.run(t, "cart", "update", itoa(lineID), "0")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, _, err = h.run(t, "cart", "remove", itoa(lineID))
	require.NoError(t, err)
	assert.Contains(t, out, "El carrito está vacío")
}

func TestCartWithoutSession(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run(t, "cart", "show")
	require.Error(t, err)
	assert.Contains(t, stderr, cart.MsgNoOwner)
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "--format", "xml", "whoami")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCatalogList(t *testing.T) {
	h := newHarness(t)
	h.backend.AddProduct(models.Product{Name: "Barato", Price: "5.00"})
	h.backend.AddProduct(models.Product{Name: "Caro", Price: "50.00"})

	out, _, err := h.run(t, "catalog", "list", "--sort", "price-asc", "--min-price", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Caro")
	assert.NotContains(t, out, "Barato")
	assert.Contains(t, out, "1 en total")
}

func TestCheckoutFromYAMLForm(t *testing.T) {
	h := newHarness(t)
	u, _ := h.backend.AddUser(models.User{Name: "Ana", Email: "ana@x.io", Phone: "999"}, "pw")
	p := h.backend.AddProduct(models.Product{Name: "Taladro", Price: "19.90", Stock: 5})
	h.backend.PutCartLine(u.ID, p.ID, 1)
	_, _, err := h.run(t, "login", "--email", "ana@x.io", "--password", "pw")
	require.NoError(t, err)

	form := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(form, []byte(
		"direccion: Calle 1\nciudad: Lima\npais: PE\ncodigoPostal: \"15001\"\nmetodoPago: efectivo\n"), 0o600))

	out, _, err := h.run(t, "checkout", "--form", form)
	require.NoError(t, err)
	assert.Contains(t, out, "total 19.90 (efectivo)")
	require.Len(t, h.backend.Sales(), 1)
	assert.Equal(t, u.ID, h.backend.Sales()[0].Sale.UserID)
	assert.Empty(t, h.backend.CartLines(u.ID))
}

func TestAdminRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(models.User{Email: "ana@x.io"}, "pw")
	_, _, err := h.run(t, "login", "--email", "ana@x.io", "--password", "pw")
	require.NoError(t, err)

	_, stderr, err := h.run(t, "admin", "products", "list")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error [forbidden]: Acceso denegado")
}

func TestAdminCreateFromYAMLAndExport(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser(models.User{Email: "root@x.io", Role: models.RoleAdmin}, "pw")
	_, _, err := h.run(t, "login", "--email", "root@x.io", "--password", "pw")
	require.NoError(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "product.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`product:
  nombreProducto: Sierra
  precio: "12.50"
  cantInventario: 4
  fkModelo: 1
  fkSubCategoria: 2
  estatus: ACTIVO
images:
  - url: https://img.example/sierra.png
    esPrincipal: true
`), 0o600))

	out, _, err := h.run(t, "admin", "products", "create", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "creado")
	require.Len(t, h.backend.Products(), 1)
	created := h.backend.Products()[0]
	assert.Equal(t, "Sierra", created.Name)
	assert.Len(t, h.backend.Images(created.ID), 1)

	xlsx := filepath.Join(dir, "out.xlsx")
	out, _, err = h.run(t, "admin", "products", "export", "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "1 productos exportados")
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}
