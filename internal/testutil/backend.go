// Package testutil runs an in-process fake of the storefront REST backend.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Call is one request the fake received.
type Call struct {
	Method string
	Path   string
	Auth   string
}

func (c Call) String() string { return c.Method + " " + c.Path }

type account struct {
	user     models.User
	password string
}

type Backend struct {
	Server *httptest.Server
	URL    string

	mu            sync.Mutex
	accounts      map[int64]*account
	tokens        map[string]int64
	carts         map[int64][]models.CartLine
	products      map[int64]models.Product
	categories    []models.Category
	subcategories []models.Subcategory
	brands        []models.Brand
	modelList     []models.Model
	images        map[int64]models.ProductImage
	wishlist      map[int64][]models.WishlistItem
	sales         []models.SaleRequest
	orders        map[int64][]models.Order
	nextID        int64

	calls []Call
	fails map[string]failure
	hooks map[string]func()

	itemCount *int
}

type failure struct {
	status int
	body   any
}

// NewBackend starts the fake and stops it when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		accounts: map[int64]*account{},
		tokens:   map[string]int64{},
		carts:    map[int64][]models.CartLine{},
		products: map[int64]models.Product{},
		images:   map[int64]models.ProductImage{},
		wishlist: map[int64][]models.WishlistItem{},
		orders:   map[int64][]models.Order{},
		fails:    map[string]failure{},
		hooks:    map[string]func(){},
		nextID:   1000,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(b.intercept)
	b.routes(e)

	b.Server = httptest.NewServer(e)
	b.URL = b.Server.URL
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

// intercept records the call, runs hooks and applies forced failures.
func (b *Backend) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + c.Request().URL.Path
		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method: c.Request().Method,
			Path:   c.Request().URL.Path,
			Auth:   c.Request().Header.Get(echo.HeaderAuthorization),
		})
		hook := b.hooks[key]
		f, failed := b.fails[key]
		b.mu.Unlock()

		if hook != nil {
			hook()
		}
		if failed {
			if f.body == nil {
				return c.NoContent(f.status)
			}
			if s, ok := f.body.(string); ok {
				return c.String(f.status, s)
			}
			return c.JSON(f.status, f.body)
		}
		return next(c)
	}
}

// OverrideItemCount makes cart responses report n as cantidadItems. By
// default they report the sum of quantities.
func (b *Backend) OverrideItemCount(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.itemCount = &n
}

// Fail makes every "METHOD /path" request answer with status and body until
// Unfail is called. A string body is sent verbatim.
func (b *Backend) Fail(method, path string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails[method+" "+path] = failure{status: status, body: body}
}

func (b *Backend) Unfail(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.fails, method+" "+path)
}

// Hook runs fn before the handler of "METHOD /path". fn may block.
func (b *Backend) Hook(method, path string, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		delete(b.hooks, method+" "+path)
		return
	}
	b.hooks[method+" "+path] = fn
}

func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *Backend) CallCount(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// AddUser registers an account and returns it with a valid token.
func (b *Backend) AddUser(u models.User, password string) (models.User, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == 0 {
		u.ID = b.id()
	}
	if u.Status == "" {
		u.Status = "ACTIVO"
	}
	b.accounts[u.ID] = &account{user: u, password: password}
	token := fmt.Sprintf("tok-%d-%d", u.ID, b.id())
	b.tokens[token] = u.ID
	return u, token
}

// IssueToken makes an arbitrary token valid for userID.
func (b *Backend) IssueToken(userID int64, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = userID
}

func (b *Backend) User(id int64) (models.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return models.User{}, false
	}
	return a.user, true
}

func (b *Backend) Password(id int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[id]; ok {
		return a.password
	}
	return ""
}

func (b *Backend) AddProduct(p models.Product) models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		p.ID = b.id()
	}
	if p.Status == "" {
		p.Status = "ACTIVO"
	}
	b.products[p.ID] = p
	return p
}

func (b *Backend) Product(id int64) (models.Product, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	return p, ok
}

func (b *Backend) Products() []models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.productList()
}

func (b *Backend) productList() []models.Product {
	out := make([]models.Product, 0, len(b.products))
	for _, p := range b.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) AddCategory(c models.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = append(b.categories, c)
}

func (b *Backend) AddSubcategory(s models.Subcategory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subcategories = append(b.subcategories, s)
}

func (b *Backend) AddBrand(m models.Brand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.brands = append(b.brands, m)
}

func (b *Backend) AddModel(m models.Model) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modelList = append(b.modelList, m)
}

func (b *Backend) AddImage(img models.ProductImage) models.ProductImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if img.ID == 0 {
		img.ID = b.id()
	}
	b.images[img.ID] = img
	return img
}

func (b *Backend) Images(productID int64) []models.ProductImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.imagesFor(productID, func(models.ProductImage) bool { return true })
}

func (b *Backend) imagesFor(productID int64, keep func(models.ProductImage) bool) []models.ProductImage {
	out := []models.ProductImage{}
	for _, img := range b.images {
		if img.ProductID == productID && keep(img) {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CartLines returns the stored lines for userID.
func (b *Backend) CartLines(userID int64) []models.CartLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.CartLine, len(b.carts[userID]))
	copy(out, b.carts[userID])
	return out
}

// PutCartLine stores a line directly, bypassing POST /carrito.
func (b *Backend) PutCartLine(userID, productID int64, qty int) models.CartLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	line := b.newLine(userID, productID, qty)
	b.carts[userID] = append(b.carts[userID], line)
	return line
}

func (b *Backend) Sales() []models.SaleRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.SaleRequest, len(b.sales))
	copy(out, b.sales)
	return out
}

func (b *Backend) WishlistItems(userID int64) []models.WishlistItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.WishlistItem, len(b.wishlist[userID]))
	copy(out, b.wishlist[userID])
	return out
}

func (b *Backend) AddOrder(userID int64, o models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[userID] = append(b.orders[userID], o)
}

func price(m models.Money) float64 {
	f, _ := strconv.ParseFloat(string(m), 64)
	return f
}

func money(f float64) models.Money {
	return models.Money(strconv.FormatFloat(f, 'f', 2, 64))
}

func (b *Backend) newLine(userID, productID int64, qty int) models.CartLine {
	p := b.products[productID]
	return models.CartLine{
		ID:           b.id(),
		ProductID:    productID,
		Quantity:     qty,
		LineTotal:    money(price(p.Price) * float64(qty)),
		UserID:       userID,
		Status:       models.CartStatusActive,
		ProductName:  p.Name,
		UnitPrice:    p.Price,
		CategoryName: p.CategoryName,
	}
}

func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"message": msg})
}

func (b *Backend) bearerUser(c echo.Context) (int64, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return 0, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.tokens[token]
	return id, ok
}

func (b *Backend) routes(e *echo.Echo) {
	e.POST("/auth/login", b.login)
	e.POST("/auth/register", b.register)
	e.POST("/auth/change-password", b.changePassword)
	e.GET("/usuarios/:id", b.getUser)
	e.PUT("/usuarios/:id", b.updateUser)

	e.GET("/carrito/usuario/:id", b.getCart)
	e.POST("/carrito", b.addCartLine)
	e.PUT("/carrito/:id", b.updateCartLine)
	e.DELETE("/carrito/:id", b.deleteCartLine)
	e.DELETE("/carrito/usuario/:id/clear", b.clearCart)

	e.GET("/productos", b.listProducts)
	e.GET("/productos/destacados", b.featuredProducts)
	e.GET("/productos/buscar", b.searchProducts)
	e.GET("/productos/categoria/:id", b.productsByCategory)
	e.GET("/productos/subcategoria/:id", b.productsBySubcategory)
	e.GET("/productos/:id", b.getProduct)
	e.POST("/productos", b.createProduct)
	e.PUT("/productos/:id", b.updateProduct)
	e.DELETE("/productos/:id", b.deleteProduct)

	e.GET("/categorias", func(c echo.Context) error { return b.list(c, func() any { return b.categories }) })
	e.GET("/categorias/:id", b.getCategory)
	e.GET("/categorias/:id/subcategorias", b.subcategoriesOf)
	e.GET("/subcategorias", func(c echo.Context) error { return b.list(c, func() any { return b.subcategories }) })
	e.GET("/subcategorias/:id", func(c echo.Context) error {
		return byID(b, c, func() []models.Subcategory { return b.subcategories }, func(s models.Subcategory) int64 { return s.ID })
	})
	e.GET("/marcas", func(c echo.Context) error { return b.list(c, func() any { return b.brands }) })
	e.GET("/marcas/:id", func(c echo.Context) error {
		return byID(b, c, func() []models.Brand { return b.brands }, func(m models.Brand) int64 { return m.ID })
	})
	e.GET("/modelos", func(c echo.Context) error { return b.list(c, func() any { return b.modelList }) })
	e.GET("/modelos/:id", func(c echo.Context) error {
		return byID(b, c, func() []models.Model { return b.modelList }, func(m models.Model) int64 { return m.ID })
	})

	e.GET("/productos-imagenes/producto/:id", b.productImages)
	e.GET("/productos-imagenes/producto/:id/principal", b.mainImage)
	e.GET("/productos-imagenes/producto/:id/miniaturas", b.thumbnails)
	e.GET("/productos-imagenes/:id", b.getImage)
	e.POST("/productos-imagenes", b.createImage)
	e.PUT("/productos-imagenes/:id", b.updateImage)
	e.DELETE("/productos-imagenes/:id", b.deleteImage)

	e.GET("/listadeseos/usuario/:id", b.getWishlist)
	e.POST("/listadeseos", b.addWishlist)
	e.DELETE("/listadeseos/:id", b.deleteWishlist)

	e.POST("/ventas", b.createSale)
	e.GET("/ventas/usuario/:id", b.ordersOf)
}

func (b *Backend) list(c echo.Context, get func() any) error {
	b.mu.Lock()
	v := get()
	b.mu.Unlock()
	return c.JSON(http.StatusOK, v)
}

func byID[T any](b *Backend, c echo.Context, all func() []T, key func(T) int64) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range all() {
		if key(v) == id {
			return c.JSON(http.StatusOK, v)
		}
	}
	return message(c, http.StatusNotFound, "no encontrado")
}

func (b *Backend) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, a := range b.accounts {
		if a.user.Email == req.Email && a.password == req.Password {
			token := fmt.Sprintf("tok-%d-%d", id, b.id())
			b.tokens[token] = id
			return c.JSON(http.StatusOK, map[string]any{"token": token, "user": a.user})
		}
	}
	return message(c, http.StatusUnauthorized, "Credenciales inválidas")
}

func (b *Backend) register(c echo.Context) error {
	var req struct {
		Name     string `json:"nombreuser"`
		Email    string `json:"emailuser"`
		Phone    string `json:"tlfuser"`
		Password string `json:"passw"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return message(c, http.StatusBadRequest, "datos incompletos")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if a.user.Email == req.Email {
			return message(c, http.StatusConflict, "El email ya está registrado")
		}
	}
	u := models.User{ID: b.id(), Name: req.Name, Email: req.Email, Phone: req.Phone, Status: "ACTIVO"}
	b.accounts[u.ID] = &account{user: u, password: req.Password}
	token := fmt.Sprintf("tok-%d-%d", u.ID, b.id())
	b.tokens[token] = u.ID
	return c.JSON(http.StatusCreated, map[string]any{"token": token, "user": u, "message": "Usuario registrado correctamente"})
}

func (b *Backend) changePassword(c echo.Context) error {
	var req struct {
		UserID          int64  `json:"userId"`
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.UserID]
	if !ok {
		return message(c, http.StatusNotFound, "Usuario no encontrado")
	}
	if a.password != req.CurrentPassword {
		return message(c, http.StatusBadRequest, "La contraseña actual es incorrecta")
	}
	a.password = req.NewPassword
	return message(c, http.StatusOK, "Contraseña actualizada")
}

func (b *Backend) getUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	caller, ok := b.bearerUser(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "Token inválido")
	}
	if caller != id {
		return message(c, http.StatusForbidden, "Acceso denegado")
	}
	u, ok := b.User(id)
	if !ok {
		return message(c, http.StatusNotFound, "Usuario no encontrado")
	}
	return c.JSON(http.StatusOK, u)
}

func (b *Backend) updateUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	var patch models.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return message(c, http.StatusNotFound, "Usuario no encontrado")
	}
	patch.Apply(&a.user)
	return c.JSON(http.StatusOK, a.user)
}

func (b *Backend) cartResponse(userID int64) models.CartResponse {
	lines := b.carts[userID]
	items := make([]models.CartLine, len(lines))
	copy(items, lines)
	total := 0.0
	units := 0
	for _, l := range items {
		total += price(l.LineTotal)
		units += l.Quantity
	}
	count := units
	if b.itemCount != nil {
		count = *b.itemCount
	}
	return models.CartResponse{Items: items, Total: money(total), ItemCount: count}
}

func (b *Backend) getCart(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	resp := b.cartResponse(id)
	b.mu.Unlock()
	return c.JSON(http.StatusOK, resp)
}

func (b *Backend) addCartLine(c echo.Context) error {
	var req models.CartLine
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 || req.UserID <= 0 {
		return message(c, http.StatusBadRequest, "cantidad inválida")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[req.ProductID]
	if !ok {
		return message(c, http.StatusNotFound, "Producto no encontrado")
	}
	lines := b.carts[req.UserID]
	for i, l := range lines {
		if l.ProductID == req.ProductID {
			lines[i].Quantity += req.Quantity
			lines[i].LineTotal = money(price(p.Price) * float64(lines[i].Quantity))
			return c.JSON(http.StatusOK, lines[i])
		}
	}
	line := b.newLine(req.UserID, req.ProductID, req.Quantity)
	b.carts[req.UserID] = append(lines, line)
	return c.JSON(http.StatusCreated, line)
}

func (b *Backend) findLine(lineID int64) (int64, int) {
	for uid, lines := range b.carts {
		for i, l := range lines {
			if l.ID == lineID {
				return uid, i
			}
		}
	}
	return 0, -1
}

func (b *Backend) updateCartLine(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Quantity int `json:"cantidad"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity < 1 {
		return message(c, http.StatusBadRequest, "cantidad inválida")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, i := b.findLine(id)
	if i < 0 {
		return message(c, http.StatusNotFound, "Item no encontrado")
	}
	line := &b.carts[uid][i]
	line.Quantity = req.Quantity
	line.LineTotal = money(price(line.UnitPrice) * float64(req.Quantity))
	return c.JSON(http.StatusOK, *line)
}

func (b *Backend) deleteCartLine(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, i := b.findLine(id)
	if i < 0 {
		return message(c, http.StatusNotFound, "Item no encontrado")
	}
	b.carts[uid] = append(b.carts[uid][:i], b.carts[uid][i+1:]...)
	return message(c, http.StatusOK, "Item eliminado")
}

func (b *Backend) clearCart(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	delete(b.carts, id)
	b.mu.Unlock()
	return message(c, http.StatusOK, "Carrito limpiado")
}

func (b *Backend) filterProducts(keep func(models.Product) bool) []models.Product {
	out := []models.Product{}
	for _, p := range b.productList() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (b *Backend) listProducts(c echo.Context) error {
	return b.list(c, func() any { return b.filterProducts(func(models.Product) bool { return true }) })
}

func (b *Backend) featuredProducts(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 8
	}
	b.mu.Lock()
	all := b.productList()
	b.mu.Unlock()
	if len(all) > limit {
		all = all[:limit]
	}
	return c.JSON(http.StatusOK, all)
}

func (b *Backend) searchProducts(c echo.Context) error {
	term := strings.ToLower(c.QueryParam("term"))
	return b.list(c, func() any {
		return b.filterProducts(func(p models.Product) bool {
			return strings.Contains(strings.ToLower(p.Name), term) ||
				strings.Contains(strings.ToLower(p.Description), term)
		})
	})
}

func (b *Backend) productsByCategory(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	return b.list(c, func() any {
		subs := map[int64]bool{}
		for _, s := range b.subcategories {
			if s.CategoryID == id {
				subs[s.ID] = true
			}
		}
		return b.filterProducts(func(p models.Product) bool { return subs[p.SubcategoryID] })
	})
}

func (b *Backend) productsBySubcategory(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	return b.list(c, func() any {
		return b.filterProducts(func(p models.Product) bool { return p.SubcategoryID == id })
	})
}

func (b *Backend) getProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	p, ok := b.Product(id)
	if !ok {
		return message(c, http.StatusNotFound, "Producto no encontrado")
	}
	return c.JSON(http.StatusOK, p)
}

func (b *Backend) createProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil || p.Name == "" {
		return message(c, http.StatusBadRequest, "nombre requerido")
	}
	p.ID = 0
	return c.JSON(http.StatusCreated, b.AddProduct(p))
}

func (b *Backend) updateProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[id]; !ok {
		return message(c, http.StatusNotFound, "Producto no encontrado")
	}
	p.ID = id
	b.products[id] = p
	return c.JSON(http.StatusOK, p)
}

func (b *Backend) deleteProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[id]; !ok {
		return message(c, http.StatusNotFound, "Producto no encontrado")
	}
	delete(b.products, id)
	return message(c, http.StatusOK, "Producto eliminado correctamente")
}

func (b *Backend) getCategory(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cat := range b.categories {
		if cat.ID == id {
			return c.JSON(http.StatusOK, cat)
		}
	}
	return message(c, http.StatusNotFound, "Categoría no encontrada")
}

func (b *Backend) subcategoriesOf(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	return b.list(c, func() any {
		out := []models.Subcategory{}
		for _, s := range b.subcategories {
			if s.CategoryID == id {
				out = append(out, s)
			}
		}
		return out
	})
}

func (b *Backend) productImages(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	return c.JSON(http.StatusOK, b.Images(id))
}

func (b *Backend) mainImage(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	main := b.imagesFor(id, models.ProductImage.IsMain)
	b.mu.Unlock()
	if len(main) == 0 {
		return message(c, http.StatusNotFound, "Imagen principal no encontrada")
	}
	return c.JSON(http.StatusOK, main[0])
}

func (b *Backend) thumbnails(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	thumbs := b.imagesFor(id, models.ProductImage.IsThumbnail)
	b.mu.Unlock()
	return c.JSON(http.StatusOK, thumbs)
}

func (b *Backend) getImage(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	img, found := b.images[id]
	b.mu.Unlock()
	if !found {
		return message(c, http.StatusNotFound, "Imagen no encontrada")
	}
	return c.JSON(http.StatusOK, img)
}

func (b *Backend) createImage(c echo.Context) error {
	var img models.ProductImage
	if err := c.Bind(&img); err != nil || img.URL == "" || img.ProductID == 0 {
		return message(c, http.StatusBadRequest, "imagen inválida")
	}
	img.ID = 0
	img = b.AddImage(img)
	return c.JSON(http.StatusCreated, map[string]any{"imagen": img, "message": "Imagen creada"})
}

func (b *Backend) updateImage(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	var img models.ProductImage
	if err := c.Bind(&img); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	old, found := b.images[id]
	if !found {
		return message(c, http.StatusNotFound, "Imagen no encontrada")
	}
	img.ID = id
	if img.ProductID == 0 {
		img.ProductID = old.ProductID
	}
	b.images[id] = img
	return c.JSON(http.StatusOK, map[string]any{"imagen": img})
}

func (b *Backend) deleteImage(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.images[id]; !found {
		return message(c, http.StatusNotFound, "Imagen no encontrada")
	}
	delete(b.images, id)
	return message(c, http.StatusOK, "Imagen eliminada")
}

func (b *Backend) getWishlist(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	return c.JSON(http.StatusOK, b.WishlistItems(id))
}

func (b *Backend) addWishlist(c echo.Context) error {
	var req models.WishlistItem
	if err := c.Bind(&req); err != nil || req.UserID <= 0 || req.ProductID <= 0 {
		return message(c, http.StatusBadRequest, "datos incompletos")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range b.wishlist[req.UserID] {
		if it.ProductID == req.ProductID {
			return message(c, http.StatusBadRequest, "El producto ya está en la lista de deseos")
		}
	}
	p := b.products[req.ProductID]
	item := models.WishlistItem{
		ID:           b.id(),
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		AddedAt:      "2024-05-01T10:00:00Z",
		ProductName:  p.Name,
		Price:        p.Price,
		CategoryName: p.CategoryName,
	}
	b.wishlist[req.UserID] = append(b.wishlist[req.UserID], item)
	return c.JSON(http.StatusCreated, item)
}

func (b *Backend) deleteWishlist(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for uid, items := range b.wishlist {
		for i, it := range items {
			if it.ID == id {
				b.wishlist[uid] = append(items[:i], items[i+1:]...)
				return message(c, http.StatusOK, "Eliminado de la lista de deseos")
			}
		}
	}
	return message(c, http.StatusNotFound, "Item no encontrado")
}

func (b *Backend) createSale(c echo.Context) error {
	var req models.SaleRequest
	if err := c.Bind(&req); err != nil || len(req.Details) == 0 {
		return message(c, http.StatusBadRequest, "venta inválida")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.id()
	b.sales = append(b.sales, req)
	b.orders[req.Sale.UserID] = append(b.orders[req.Sale.UserID], models.Order{
		ID:     id,
		Date:   "2024-05-01T10:00:00Z",
		Total:  req.Sale.Total,
		Status: "PENDIENTE",
	})
	return c.JSON(http.StatusCreated, models.SaleResponse{ID: id})
}

func (b *Backend) ordersOf(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "invalid id")
	}
	b.mu.Lock()
	out := make([]models.Order, len(b.orders[id]))
	copy(out, b.orders[id])
	b.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}
