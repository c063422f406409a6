// Package httpserver exposes the storefront client over a local JSON API.
package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/app"
)

// Server holds the handlers. All of them share the application's session;
// the API is meant for a single local user.
type Server struct {
	App *app.App
}

type Deps struct {
	App *app.App
}

func Register(e *echo.Echo, d *Deps) {
	s := &Server{App: d.App}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", s.Ready)

	api := e.Group("/api")
	api.GET("/session", s.GetSession)
	api.POST("/session/login", s.Login)
	api.POST("/session/register", s.Register)
	api.POST("/session/logout", s.Logout)
	api.GET("/header", s.GetHeader)

	api.GET("/cart", s.GetCart)
	api.POST("/cart/items", s.AddCartItem)
	api.PUT("/cart/items/:id", s.UpdateCartItem)
	api.DELETE("/cart/items/:id", s.RemoveCartItem)
	api.DELETE("/cart", s.ClearCart)

	api.GET("/catalog/products", s.ListProducts)
	api.GET("/catalog/products/featured", s.FeaturedProducts)
	api.GET("/catalog/products/:id", s.GetProduct)
	api.GET("/catalog/categories", s.ListCategories)
	api.GET("/catalog/categories/:id/subcategories", s.ListSubcategories)

	private := api.Group("")
	private.Use(s.RequireLogin)
	private.PUT("/session/profile", s.UpdateProfile)
	private.POST("/session/password", s.ChangePassword)
	private.GET("/wishlist", s.GetWishlist)
	private.POST("/wishlist", s.AddToWishlist)
	private.DELETE("/wishlist/:id", s.RemoveFromWishlist)
	private.POST("/wishlist/:id/cart", s.WishlistToCart)
	private.POST("/checkout", s.Checkout)
	private.GET("/orders", s.Orders)

	adm := api.Group("/admin")
	adm.Use(s.RequireAdmin)
	adm.GET("/products", s.AdminProducts)
	adm.POST("/products", s.AdminCreateProduct)
	adm.GET("/products/export", s.AdminExport)
	adm.POST("/products/import", s.AdminImport)
	adm.GET("/products/:id", s.AdminProduct)
	adm.PUT("/products/:id", s.AdminUpdateProduct)
	adm.DELETE("/products/:id", s.AdminDeleteProduct)
	adm.GET("/form-data", s.AdminFormData)
}

// Ready reports 503 until the persisted session has been checked.
func (s *Server) Ready(c echo.Context) error {
	if s.App.Session.IsLoading() {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
