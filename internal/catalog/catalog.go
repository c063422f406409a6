// Package catalog reads products, their taxonomy and their images.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	DefaultFeaturedLimit = 8
	relatedLimit         = 4
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrCatalog    = errors.New("catalog unavailable")
)

const (
	MsgNotFound = "Producto no encontrado"
	MsgCatalog  = "Error al cargar productos"
)

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrValidation):
		return "Parámetros de búsqueda inválidos"
	}
	return MsgCatalog
}

// Searcher is an alternative full-text backend for product search.
type Searcher interface {
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
}

type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
	SortNameAsc   Sort = "name-asc"
	SortNameDesc  Sort = "name-desc"
)

// ParseSort accepts the listing sort names; empty means newest.
func ParseSort(v string) (Sort, error) {
	switch s := Sort(strings.ToLower(strings.TrimSpace(v))); s {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown sort %q", ErrValidation, v)
}

// ListQuery selects a listing. Term wins over SubcategoryID, which wins over
// CategoryID; with none set every product is listed.
type ListQuery struct {
	Term          string
	CategoryID    int64
	SubcategoryID int64
	MinPrice      *float64
	MaxPrice      *float64
	Sort          Sort
	Page          int
	Size          int
}

type ListResult struct {
	Products []models.Product `json:"products" yaml:"products"`
	Total    int              `json:"total"    yaml:"total"`
	Page     int              `json:"page"     yaml:"page"`
	Size     int              `json:"size"     yaml:"size"`
}

type Service struct {
	API apiclient.API
	// Search, when set, serves term queries instead of /productos/buscar.
	Search Searcher
}

func wrap(err error) error {
	if errors.Is(err, apiclient.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrCatalog, err)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func (s *Service) getList(ctx context.Context, path string, out any) error {
	if err := s.API.Get(ctx, path, out); err != nil {
		logging.FromContext(ctx).With("svc", "catalog").Error("catalog_fetch_error", "path", path, "error", err)
		return wrap(err)
	}
	return nil
}

func (s *Service) AllProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	return out, s.getList(ctx, "/productos", &out)
}

func (s *Service) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	var out []models.Product
	return out, s.getList(ctx, "/productos/destacados?limit="+strconv.Itoa(limit), &out)
}

func (s *Service) Product(ctx context.Context, productID int64) (models.Product, error) {
	var out models.Product
	if productID <= 0 {
		return out, fmt.Errorf("%w: product id required", ErrValidation)
	}
	return out, s.getList(ctx, "/productos/"+id(productID), &out)
}

func (s *Service) ByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var out []models.Product
	return out, s.getList(ctx, "/productos/categoria/"+id(categoryID), &out)
}

func (s *Service) BySubcategory(ctx context.Context, subcategoryID int64) ([]models.Product, error) {
	var out []models.Product
	return out, s.getList(ctx, "/productos/subcategoria/"+id(subcategoryID), &out)
}

// SearchProducts runs a term query against the configured searcher, falling
// back to the backend search endpoint.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty search term", ErrValidation)
	}
	if s.Search != nil {
		out, err := s.Search.SearchProducts(ctx, term)
		if err == nil {
			return out, nil
		}
		logging.FromContext(ctx).With("svc", "catalog.search").Warn("searcher_error", "error", err)
	}
	var out []models.Product
	return out, s.getList(ctx, "/productos/buscar?term="+url.QueryEscape(term), &out)
}

func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	var (
		products []models.Product
		err      error
	)
	switch {
	case strings.TrimSpace(q.Term) != "":
		products, err = s.SearchProducts(ctx, q.Term)
	case q.SubcategoryID > 0:
		products, err = s.BySubcategory(ctx, q.SubcategoryID)
	case q.CategoryID > 0:
		products, err = s.ByCategory(ctx, q.CategoryID)
	default:
		products, err = s.AllProducts(ctx)
	}
	if err != nil {
		return ListResult{}, err
	}

	products = filterPrice(products, q.MinPrice, q.MaxPrice)
	sortProducts(products, q.Sort)

	page, eff, size := util.Paginate(products, q.Page, q.Size)
	return ListResult{Products: page, Total: len(products), Page: eff, Size: size}, nil
}

func filterPrice(in []models.Product, lo, hi *float64) []models.Product {
	if lo == nil && hi == nil {
		return in
	}
	out := make([]models.Product, 0, len(in))
	for _, p := range in {
		price, ok := p.Price.Float()
		if !ok {
			continue
		}
		if lo != nil && price < *lo {
			continue
		}
		if hi != nil && price > *hi {
			continue
		}
		out = append(out, p)
	}
	return out
}

func priceOf(p models.Product) float64 {
	f, _ := p.Price.Float()
	return f
}

func sortProducts(ps []models.Product, by Sort) {
	switch by {
	case SortPriceAsc:
		sort.SliceStable(ps, func(i, j int) bool { return priceOf(ps[i]) < priceOf(ps[j]) })
	case SortPriceDesc:
		sort.SliceStable(ps, func(i, j int) bool { return priceOf(ps[i]) > priceOf(ps[j]) })
	case SortNameAsc:
		sort.SliceStable(ps, func(i, j int) bool { return strings.ToLower(ps[i].Name) < strings.ToLower(ps[j].Name) })
	case SortNameDesc:
		sort.SliceStable(ps, func(i, j int) bool { return strings.ToLower(ps[i].Name) > strings.ToLower(ps[j].Name) })
	default:
		// highest id is the newest
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].ID > ps[j].ID })
	}
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	return out, s.getList(ctx, "/categorias", &out)
}

func (s *Service) Category(ctx context.Context, categoryID int64) (models.Category, error) {
	var out models.Category
	return out, s.getList(ctx, "/categorias/"+id(categoryID), &out)
}

func (s *Service) SubcategoriesOf(ctx context.Context, categoryID int64) ([]models.Subcategory, error) {
	var out []models.Subcategory
	return out, s.getList(ctx, "/categorias/"+id(categoryID)+"/subcategorias", &out)
}

func (s *Service) Subcategories(ctx context.Context) ([]models.Subcategory, error) {
	var out []models.Subcategory
	return out, s.getList(ctx, "/subcategorias", &out)
}

func (s *Service) Subcategory(ctx context.Context, subcategoryID int64) (models.Subcategory, error) {
	var out models.Subcategory
	return out, s.getList(ctx, "/subcategorias/"+id(subcategoryID), &out)
}

func (s *Service) Brands(ctx context.Context) ([]models.Brand, error) {
	var out []models.Brand
	return out, s.getList(ctx, "/marcas", &out)
}

func (s *Service) Brand(ctx context.Context, brandID int64) (models.Brand, error) {
	var out models.Brand
	return out, s.getList(ctx, "/marcas/"+id(brandID), &out)
}

func (s *Service) Models(ctx context.Context) ([]models.Model, error) {
	var out []models.Model
	return out, s.getList(ctx, "/modelos", &out)
}

func (s *Service) Model(ctx context.Context, modelID int64) (models.Model, error) {
	var out models.Model
	return out, s.getList(ctx, "/modelos/"+id(modelID), &out)
}

func (s *Service) Images(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	var out []models.ProductImage
	return out, s.getList(ctx, "/productos-imagenes/producto/"+id(productID), &out)
}

// MainImage returns nil without error when the product has no main image.
func (s *Service) MainImage(ctx context.Context, productID int64) (*models.ProductImage, error) {
	var out models.ProductImage
	err := s.API.Get(ctx, "/productos-imagenes/producto/"+id(productID)+"/principal", &out)
	if errors.Is(err, apiclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logging.FromContext(ctx).With("svc", "catalog").Error("main_image_error", "product_id", productID, "error", err)
		return nil, wrap(err)
	}
	return &out, nil
}

func (s *Service) Thumbnails(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	var out []models.ProductImage
	return out, s.getList(ctx, "/productos-imagenes/producto/"+id(productID)+"/miniaturas", &out)
}

func (s *Service) Image(ctx context.Context, imageID int64) (models.ProductImage, error) {
	var out models.ProductImage
	return out, s.getList(ctx, "/productos-imagenes/"+id(imageID), &out)
}

// Detail is everything the product page shows.
type Detail struct {
	Product   models.Product        `json:"product"             yaml:"product"`
	Images    []models.ProductImage `json:"images"              yaml:"images"`
	MainImage *models.ProductImage  `json:"mainImage,omitempty" yaml:"mainImage,omitempty"`
	Related   []models.Product      `json:"related"             yaml:"related"`
}

// ProductDetail loads a product with its images and up to four products of
// the same subcategory. Image and related failures degrade to empty lists.
func (s *Service) ProductDetail(ctx context.Context, productID int64) (Detail, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.detail")

	p, err := s.Product(ctx, productID)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Product: p, Images: []models.ProductImage{}, Related: []models.Product{}}

	if imgs, err := s.Images(ctx, productID); err != nil {
		l.Warn("detail_images_error", "product_id", productID, "error", err)
	} else if imgs != nil {
		d.Images = imgs
	}
	if main, err := s.MainImage(ctx, productID); err != nil {
		l.Warn("detail_main_image_error", "product_id", productID, "error", err)
	} else {
		d.MainImage = main
	}

	if p.SubcategoryID > 0 {
		same, err := s.BySubcategory(ctx, p.SubcategoryID)
		if err != nil {
			l.Warn("detail_related_error", "product_id", productID, "error", err)
		}
		for _, r := range same {
			if r.ID == p.ID {
				continue
			}
			d.Related = append(d.Related, r)
			if len(d.Related) == relatedLimit {
				break
			}
		}
	}
	return d, nil
}
