package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/catalog"
)

// ListProducts accepts q, category, subcategory, minPrice, maxPrice, sort,
// page and size.
func (s *Server) ListProducts(c echo.Context) error {
	sort, err := catalog.ParseSort(c.QueryParam("sort"))
	if err != nil {
		return badRequest(c, "invalid sort")
	}
	q := catalog.ListQuery{
		Term:          c.QueryParam("q"),
		CategoryID:    int64(queryInt(c, "category")),
		SubcategoryID: int64(queryInt(c, "subcategory")),
		MinPrice:      queryFloat(c, "minPrice"),
		MaxPrice:      queryFloat(c, "maxPrice"),
		Sort:          sort,
		Page:          queryInt(c, "page"),
		Size:          queryInt(c, "size"),
	}
	res, err := s.App.Catalog.List(c.Request().Context(), q)
	if err != nil {
		return s.fail(c, err, catalog.UserMessage)
	}
	return s.ok(c, http.StatusOK, res)
}

func (s *Server) FeaturedProducts(c echo.Context) error {
	products, err := s.App.Catalog.Featured(c.Request().Context(), queryInt(c, "limit"))
	if err != nil {
		return s.fail(c, err, catalog.UserMessage)
	}
	return s.ok(c, http.StatusOK, products)
}

func (s *Server) GetProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	d, err := s.App.Catalog.ProductDetail(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, catalog.UserMessage)
	}
	return s.ok(c, http.StatusOK, d)
}

func (s *Server) ListCategories(c echo.Context) error {
	cats, err := s.App.Catalog.Categories(c.Request().Context())
	if err != nil {
		return s.fail(c, err, catalog.UserMessage)
	}
	return s.ok(c, http.StatusOK, cats)
}

func (s *Server) ListSubcategories(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	subs, err := s.App.Catalog.SubcategoriesOf(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, catalog.UserMessage)
	}
	return s.ok(c, http.StatusOK, subs)
}
