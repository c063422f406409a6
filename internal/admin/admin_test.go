package admin

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type role struct {
	admin bool
}

func (r role) IsAdmin() bool                { return r.admin }
func (r role) CurrentUserID() (int64, bool) { return 1, true }

type recordingIndex struct {
	mu      sync.Mutex
	indexed []int64
	deleted []int64
}

func (r *recordingIndex) IndexProduct(_ context.Context, p models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, p.ID)
	return nil
}

func (r *recordingIndex) DeleteProduct(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

type fixture struct {
	backend *testutil.Backend
	notices *notify.Notifier
	events  *events.Recorder
	index   *recordingIndex
	svc     *Service
}

func newFixture(t *testing.T, admin bool) *fixture {
	t.Helper()
	b := testutil.NewBackend(t)
	api := apiclient.NewClient(b.URL, apiclient.WithTimeout(2*time.Second))
	f := &fixture{backend: b, notices: notify.New(), events: &events.Recorder{}, index: &recordingIndex{}}
	f.svc = &Service{
		API:       api,
		Session:   role{admin: admin},
		Catalog:   &catalog.Service{API: api},
		Notices:   f.notices,
		Publisher: f.events,
		Index:     f.index,
	}
	return f
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func product() models.Product {
	return models.Product{Name: "Bota", Price: "89.90", Stock: 3, ModelID: 2, SubcategoryID: 20, Status: "ACTIVO"}
}

func TestForbiddenWithoutAdmin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Products(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateProduct(ctx, product())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.DeleteProduct(ctx, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.LoadFormData(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ImportXLSX(ctx, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, MsgForbidden, UserMessage(err))
	assert.Empty(t, f.backend.Calls())
}

func TestValidateProduct(t *testing.T) {
	require.NoError(t, ValidateProduct(product()))

	tests := []struct {
		mutate func(*models.Product)
		field  string
	}{
		{func(p *models.Product) { p.Name = " " }, "nombreProducto"},
		{func(p *models.Product) { p.Price = "" }, "precio"},
		{func(p *models.Product) { p.Price = "12.345" }, "precio"},
		{func(p *models.Product) { p.Price = "abc" }, "precio"},
		{func(p *models.Product) { p.Stock = -1 }, "cantInventario"},
		{func(p *models.Product) { p.ModelID = 0 }, "fkModelo"},
		{func(p *models.Product) { p.SubcategoryID = 0 }, "fkSubCategoria"},
		{func(p *models.Product) { p.Status = "" }, "estatus"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			p := product()
			tt.mutate(&p)
			err := ValidateProduct(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	created, err := f.svc.CreateProduct(ctx, product())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	stored, ok := f.backend.Product(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Bota", stored.Name)

	changed := product()
	changed.Price = "79.90"
	_, err = f.svc.UpdateProduct(ctx, created.ID, changed)
	require.NoError(t, err)
	stored, _ = f.backend.Product(created.ID)
	assert.Equal(t, models.Money("79.90"), stored.Price)

	msg, err := f.svc.DeleteProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Producto eliminado correctamente", msg)
	_, ok = f.backend.Product(created.ID)
	assert.False(t, ok)

	assert.Equal(t, []string{events.ProductCreated, events.ProductUpdated, events.ProductDeleted}, f.events.Types(events.TopicProduct))
	assert.Equal(t, []int64{created.ID, created.ID}, f.index.indexed)
	assert.Equal(t, []int64{created.ID}, f.index.deleted)
}

func TestUpdateMissingProduct(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.UpdateProduct(context.Background(), 999, product())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.DeleteProduct(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFailureNotice(t *testing.T) {
	f := newFixture(t, true)
	f.backend.Fail(http.MethodPost, "/productos", http.StatusInternalServerError, nil)
	_, err := f.svc.CreateProduct(context.Background(), product())
	assert.ErrorIs(t, err, ErrCreate)
	notices := f.notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Notice{Level: notify.LevelError, Message: MsgCreate}, notices[0])
}

func TestSaveProduct_NewWithImages(t *testing.T) {
	f := newFixture(t, true)
	form := ProductForm{
		Product: product(),
		Images: []ImageChange{
			{URL: "a.jpg", Main: true},
			{URL: "b.jpg", Thumbnail: true},
			{URL: "gone.jpg", Deleted: true},
		},
	}
	p, err := f.svc.SaveProduct(context.Background(), form)
	require.NoError(t, err)

	imgs := f.backend.Images(p.ID)
	require.Len(t, imgs, 2)
	urls := []string{imgs[0].URL, imgs[1].URL}
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, urls)
	assert.Equal(t, MsgCreated, f.notices.Drain()[0].Message)
}

func TestSaveProduct_EditAppliesEachChange(t *testing.T) {
	f := newFixture(t, true)
	p := f.backend.AddProduct(product())
	keep := f.backend.AddImage(models.ProductImage{ProductID: p.ID, URL: "old.jpg", Main: 1})
	drop := f.backend.AddImage(models.ProductImage{ProductID: p.ID, URL: "drop.jpg"})

	form := ProductForm{
		Product: p,
		Images: []ImageChange{
			{ID: keep.ID, URL: "new.jpg", Main: true},
			{ID: drop.ID, URL: "drop.jpg", Deleted: true},
			{URL: "extra.jpg", Thumbnail: true},
		},
	}
	_, err := f.svc.SaveProduct(context.Background(), form)
	require.NoError(t, err)

	imgs := f.backend.Images(p.ID)
	byURL := map[string]models.ProductImage{}
	for _, img := range imgs {
		byURL[img.URL] = img
	}
	assert.Len(t, imgs, 2)
	assert.Equal(t, keep.ID, byURL["new.jpg"].ID)
	assert.True(t, byURL["new.jpg"].IsMain())
	assert.True(t, byURL["extra.jpg"].IsThumbnail())
	assert.Equal(t, 1, f.backend.CallCount(http.MethodPut, "/productos/"+itoa(p.ID)))
}

func TestSaveProduct_ImageValidation(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.SaveProduct(context.Background(), ProductForm{
		Product: product(),
		Images:  []ImageChange{{URL: "a.jpg", Main: true}, {URL: "b.jpg", Main: true}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SaveProduct(context.Background(), ProductForm{
		Product: product(),
		Images:  []ImageChange{{URL: ""}},
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.backend.Calls())
}

func TestSaveProduct_ImageFailure(t *testing.T) {
	f := newFixture(t, true)
	f.backend.Fail(http.MethodPost, "/productos-imagenes", http.StatusInternalServerError, nil)
	p, err := f.svc.SaveProduct(context.Background(), ProductForm{
		Product: product(),
		Images:  []ImageChange{{URL: "a.jpg"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImages)
	assert.NotZero(t, p.ID)
	_, stored := f.backend.Product(p.ID)
	assert.True(t, stored)
}

func TestImageOperations(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.backend.AddProduct(product())

	img, err := f.svc.CreateImage(ctx, p.ID, ImageChange{URL: "a.jpg", Description: "frente"})
	require.NoError(t, err)
	require.NotZero(t, img.ID)
	assert.Equal(t, p.ID, img.ProductID)

	img, err = f.svc.UpdateImage(ctx, img.ID, ImageChange{URL: "b.jpg", Main: true})
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", img.URL)
	assert.Equal(t, p.ID, img.ProductID)

	require.NoError(t, f.svc.DeleteImage(ctx, img.ID))
	assert.Empty(t, f.backend.Images(p.ID))
	require.NoError(t, f.svc.DeleteImage(ctx, img.ID))

	_, err = f.svc.UpdateImage(ctx, img.ID, ImageChange{URL: "c.jpg"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFormData(t *testing.T) {
	f := newFixture(t, true)
	f.backend.AddCategory(models.Category{ID: 1, Description: "Ropa"})
	f.backend.AddSubcategory(models.Subcategory{ID: 10, Description: "Camisetas", CategoryID: 1})
	f.backend.AddSubcategory(models.Subcategory{ID: 20, Description: "Tenis", CategoryID: 2})
	f.backend.AddBrand(models.Brand{ID: 5, Description: "Acme"})
	f.backend.AddModel(models.Model{ID: 6, Description: "Classic", BrandID: 5})

	d, err := f.svc.LoadFormData(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Categories, 1)
	assert.Len(t, d.Subcategories, 2)
	assert.Len(t, d.SubcategoriesOf(1), 1)
	assert.Len(t, d.ModelsOf(5), 1)
	assert.Empty(t, d.ModelsOf(9))
}

func TestLoadFormData_AnyFailureFails(t *testing.T) {
	f := newFixture(t, true)
	f.backend.Fail(http.MethodGet, "/marcas", http.StatusInternalServerError, nil)
	_, err := f.svc.LoadFormData(context.Background())
	assert.ErrorIs(t, err, ErrFormData)
	assert.Equal(t, MsgFormData, UserMessage(err))
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	x := excelize.NewFile()
	defer x.Close()
	require.NoError(t, x.SetSheetName(x.GetSheetName(0), SheetName))
	for i, r := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, x.SetSheetRow(SheetName, axis, &r))
	}
	var buf bytes.Buffer
	_, err := x.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestImportXLSX(t *testing.T) {
	f := newFixture(t, true)
	buf := workbook(t, [][]any{
		{"idProducto", "nombreProducto", "descProducto", "precio", "cantInventario", "fkModelo", "fkSubCategoria", "estatus"},
		{"", "Bota", "Cuero", "89.90", 3, 2, 20, "ACTIVO"},
		{"", "", "sin nombre", "10.00", 1, 2, 20, ""},
		{"", "Sandalia", "", "12.5", "x", 2, 20, ""},
		{"", "Gorra", "", "9.99", 5, 2, 20, ""},
	})

	res, err := f.svc.ImportXLSX(context.Background(), buf)
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, "Bota", res.Created[0].Name)
	assert.Equal(t, "ACTIVO", res.Created[1].Status)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 3, res.Skipped[0].Row)
	assert.Equal(t, 4, res.Skipped[1].Row)
	assert.Len(t, f.backend.Products(), 2)
	assert.Contains(t, f.events.Types(events.TopicProduct), events.ProductImported)
}

func TestImportXLSX_NotAWorkbook(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.ImportXLSX(context.Background(), bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, ErrImport)
}

func TestExportThenImportRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	f.backend.AddProduct(product())
	second := product()
	second.Name = "Zapato"
	f.backend.AddProduct(second)

	var buf bytes.Buffer
	n, err := f.svc.ExportXLSX(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	x, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer x.Close()
	rows, err := x.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sheetHeader, rows[0])
	assert.Equal(t, "Bota", rows[1][1])
	assert.Equal(t, "89.90", rows[1][3])

	other := newFixture(t, true)
	res, err := other.svc.ImportXLSX(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Empty(t, res.Skipped)
}
