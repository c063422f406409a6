// Package admin is the product back office: product and image maintenance
// plus spreadsheet import and export. Every operation requires an admin
// session.
package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrForbidden  = errors.New("admin role required")
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("product not found")
	ErrCreate     = errors.New("create product failed")
	ErrUpdate     = errors.New("update product failed")
	ErrDelete     = errors.New("delete product failed")
	ErrImages     = errors.New("save images failed")
	ErrFormData   = errors.New("form data unavailable")
	ErrImport     = errors.New("import failed")
	ErrExport     = errors.New("export failed")
)

const (
	MsgForbidden = "Acceso denegado"
	MsgCreated   = "Producto creado correctamente"
	MsgUpdated   = "Producto actualizado correctamente"
	MsgDeleted   = "Producto eliminado correctamente"
	MsgCreate    = "Error al crear producto"
	MsgUpdate    = "Error al actualizar producto"
	MsgDelete    = "Error al eliminar el producto"
	MsgFormData  = "Error al cargar datos"
	MsgImport    = "Error al importar productos"
	MsgExport    = "Error al exportar productos"
)

func UserMessage(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return MsgForbidden
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, ErrNotFound):
		return catalog.MsgNotFound
	case errors.Is(err, ErrCreate):
		return MsgCreate
	case errors.Is(err, ErrUpdate), errors.Is(err, ErrImages):
		return MsgUpdate
	case errors.Is(err, ErrDelete):
		return MsgDelete
	case errors.Is(err, ErrFormData):
		return MsgFormData
	case errors.Is(err, ErrImport):
		return MsgImport
	case errors.Is(err, ErrExport):
		return MsgExport
	}
	return MsgFormData
}

// FieldError is a product field rejected before any request.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string       { return e.Field + ": " + e.Message }
func (e *FieldError) Is(target error) bool { return target == ErrValidation }

var priceRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// ValidateProduct applies the back-office form rules.
func ValidateProduct(p models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &FieldError{"nombreProducto", "El nombre es requerido"}
	case strings.TrimSpace(string(p.Price)) == "":
		return &FieldError{"precio", "El precio es requerido"}
	case !priceRe.MatchString(string(p.Price)):
		return &FieldError{"precio", "Debe ser un precio válido"}
	case p.Stock < 0:
		return &FieldError{"cantInventario", "La cantidad no puede ser negativa"}
	case p.ModelID <= 0:
		return &FieldError{"fkModelo", "Debe seleccionar un modelo"}
	case p.SubcategoryID <= 0:
		return &FieldError{"fkSubCategoria", "Debe seleccionar una subcategoría"}
	case strings.TrimSpace(p.Status) == "":
		return &FieldError{"estatus", "El estatus es requerido"}
	}
	return nil
}

// Authorizer is the part of the session admin checks.
type Authorizer interface {
	IsAdmin() bool
	CurrentUserID() (int64, bool)
}

// Indexer mirrors product changes into a search index.
type Indexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
}

type Service struct {
	API       apiclient.API
	Session   Authorizer
	Catalog   *catalog.Service
	Notices   *notify.Notifier
	Publisher events.Publisher
	// Index is optional.
	Index Indexer
	// ImageWorkers bounds concurrent image requests in SaveProduct.
	ImageWorkers int
}

func (s *Service) authorize() (int64, error) {
	if s.Session == nil || !s.Session.IsAdmin() {
		return 0, ErrForbidden
	}
	uid, _ := s.Session.CurrentUserID()
	return uid, nil
}

func (s *Service) emit(ctx context.Context, uid int64, typ string, data map[string]any) {
	events.Emit(ctx, s.Publisher, events.TopicProduct, events.Event{Type: typ, UserID: uid, Data: data})
}

func (s *Service) index(ctx context.Context, p models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).With("svc", "admin.index").Warn("index_product_error", "product_id", p.ID, "error", err)
	}
}

func notFoundOr(sentinel, err error) error {
	if errors.Is(err, apiclient.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	if _, err := s.authorize(); err != nil {
		return nil, err
	}
	return s.Catalog.AllProducts(ctx)
}

func (s *Service) Product(ctx context.Context, productID int64) (models.Product, error) {
	if _, err := s.authorize(); err != nil {
		return models.Product{}, err
	}
	return s.Catalog.Product(ctx, productID)
}

// created tolerates backends that answer a create with {"id": n} only.
type created struct {
	models.Product
	AltID int64 `json:"id"`
}

func (s *Service) create(ctx context.Context, uid int64, p models.Product) (models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create")
	p.ID = 0
	var out created
	if err := s.API.Post(ctx, "/productos", p, &out); err != nil {
		l.Error("create_product_error", "kind", string(apiclient.KindOf(err)), "error", err)
		return models.Product{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	res := p
	res.ID = out.ID
	if res.ID == 0 {
		res.ID = out.AltID
	}
	l.Info("product created", "product_id", res.ID)
	s.index(ctx, res)
	s.emit(ctx, uid, events.ProductCreated, map[string]any{"productID": res.ID, "name": res.Name})
	return res, nil
}

func (s *Service) update(ctx context.Context, uid int64, productID int64, p models.Product) (models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update")
	p.ID = productID
	if err := s.API.Put(ctx, "/productos/"+strconv.FormatInt(productID, 10), p, nil); err != nil {
		l.Error("update_product_error", "product_id", productID, "kind", string(apiclient.KindOf(err)), "error", err)
		return models.Product{}, notFoundOr(ErrUpdate, err)
	}
	l.Info("product updated", "product_id", productID)
	s.index(ctx, p)
	s.emit(ctx, uid, events.ProductUpdated, map[string]any{"productID": productID})
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	uid, err := s.authorize()
	if err != nil {
		return models.Product{}, err
	}
	if err := ValidateProduct(p); err != nil {
		return models.Product{}, err
	}
	out, err := s.create(ctx, uid, p)
	if err != nil {
		s.Notices.Error(ctx, MsgCreate)
		return models.Product{}, err
	}
	s.Notices.Success(ctx, MsgCreated)
	return out, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID int64, p models.Product) (models.Product, error) {
	uid, err := s.authorize()
	if err != nil {
		return models.Product{}, err
	}
	if productID <= 0 {
		return models.Product{}, &FieldError{"idProducto", "Producto inválido"}
	}
	if err := ValidateProduct(p); err != nil {
		return models.Product{}, err
	}
	out, err := s.update(ctx, uid, productID, p)
	if err != nil {
		s.Notices.Error(ctx, MsgUpdate)
		return models.Product{}, err
	}
	s.Notices.Success(ctx, MsgUpdated)
	return out, nil
}

// DeleteProduct returns the backend's confirmation message.
func (s *Service) DeleteProduct(ctx context.Context, productID int64) (string, error) {
	l := logging.FromContext(ctx).With("svc", "admin.delete")
	uid, err := s.authorize()
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := s.API.Delete(ctx, "/productos/"+strconv.FormatInt(productID, 10), &resp); err != nil {
		l.Error("delete_product_error", "product_id", productID, "kind", string(apiclient.KindOf(err)), "error", err)
		s.Notices.Error(ctx, MsgDelete)
		return "", notFoundOr(ErrDelete, err)
	}
	if resp.Message == "" {
		resp.Message = MsgDeleted
	}
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, productID); err != nil {
			l.Warn("unindex_product_error", "product_id", productID, "error", err)
		}
	}
	l.Info("product deleted", "product_id", productID)
	s.Notices.Success(ctx, resp.Message)
	s.emit(ctx, uid, events.ProductDeleted, map[string]any{"productID": productID})
	return resp.Message, nil
}

// FormData is the reference data the product form offers.
type FormData struct {
	Categories    []models.Category    `json:"categories"    yaml:"categories"`
	Subcategories []models.Subcategory `json:"subcategories" yaml:"subcategories"`
	Brands        []models.Brand       `json:"brands"        yaml:"brands"`
	Models        []models.Model       `json:"models"        yaml:"models"`
}

// SubcategoriesOf filters the loaded subcategories by category.
func (d FormData) SubcategoriesOf(categoryID int64) []models.Subcategory {
	out := []models.Subcategory{}
	for _, sc := range d.Subcategories {
		if sc.CategoryID == categoryID {
			out = append(out, sc)
		}
	}
	return out
}

// ModelsOf filters the loaded models by brand.
func (d FormData) ModelsOf(brandID int64) []models.Model {
	out := []models.Model{}
	for _, m := range d.Models {
		if m.BrandID == brandID {
			out = append(out, m)
		}
	}
	return out
}

// LoadFormData fetches the four reference lists concurrently. Any failure
// fails the whole load.
func (s *Service) LoadFormData(ctx context.Context) (FormData, error) {
	if _, err := s.authorize(); err != nil {
		return FormData{}, err
	}
	var d FormData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Categories, err = s.Catalog.Categories(gctx); return })
	g.Go(func() (err error) { d.Subcategories, err = s.Catalog.Subcategories(gctx); return })
	g.Go(func() (err error) { d.Brands, err = s.Catalog.Brands(gctx); return })
	g.Go(func() (err error) { d.Models, err = s.Catalog.Models(gctx); return })
	if err := g.Wait(); err != nil {
		logging.FromContext(ctx).With("svc", "admin.form").Error("form_data_error", "error", err)
		s.Notices.Error(ctx, MsgFormData)
		return FormData{}, fmt.Errorf("%w: %w", ErrFormData, err)
	}
	return d, nil
}
