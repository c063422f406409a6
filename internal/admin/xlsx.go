package admin

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// SheetName is the worksheet read on import and written on export.
const SheetName = "Productos"

var sheetHeader = []string{
	"idProducto", "nombreProducto", "descProducto", "precio",
	"cantInventario", "fkModelo", "fkSubCategoria", "estatus",
}

// RowError is one skipped import row; Row is 1-based as shown in the sheet.
type RowError struct {
	Row    int    `json:"row"    yaml:"row"`
	Reason string `json:"reason" yaml:"reason"`
}

type ImportResult struct {
	Created []models.Product `json:"created" yaml:"created"`
	Skipped []RowError       `json:"skipped" yaml:"skipped"`
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string) (models.Product, error) {
	atoi := func(i int) (int64, error) {
		v := cell(row, i)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", sheetHeader[i], v)
		}
		return n, nil
	}
	stock, err := atoi(4)
	if err != nil {
		return models.Product{}, err
	}
	modelID, err := atoi(5)
	if err != nil {
		return models.Product{}, err
	}
	subID, err := atoi(6)
	if err != nil {
		return models.Product{}, err
	}
	status := cell(row, 7)
	if status == "" {
		status = "ACTIVO"
	}
	p := models.Product{
		Name:          cell(row, 1),
		Description:   cell(row, 2),
		Price:         models.Money(cell(row, 3)),
		Stock:         int(stock),
		ModelID:       modelID,
		SubcategoryID: subID,
		Status:        status,
	}
	if err := ValidateProduct(p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// ImportXLSX creates one product per data row of the Productos sheet. The
// header row is skipped, as is the id column. Invalid or rejected rows are
// reported and do not stop the import.
func (s *Service) ImportXLSX(ctx context.Context, r io.Reader) (ImportResult, error) {
	l := logging.FromContext(ctx).With("svc", "admin.import")
	uid, err := s.authorize()
	if err != nil {
		return ImportResult{}, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: open workbook: %w", ErrImport, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: read sheet %s: %w", ErrImport, SheetName, err)
	}

	res := ImportResult{Created: []models.Product{}, Skipped: []RowError{}}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(strings.Join(row, "")) == 0 {
			continue
		}
		p, err := parseRow(row)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: i + 1, Reason: err.Error()})
			continue
		}
		out, err := s.create(ctx, uid, p)
		if err != nil {
			l.Warn("import_row_error", "row", i+1, "error", err)
			res.Skipped = append(res.Skipped, RowError{Row: i + 1, Reason: err.Error()})
			continue
		}
		res.Created = append(res.Created, out)
	}

	l.Info("products imported", "created", len(res.Created), "skipped", len(res.Skipped))
	s.Notices.Success(ctx, fmt.Sprintf("%d productos importados", len(res.Created)))
	s.emit(ctx, uid, events.ProductImported, map[string]any{"created": len(res.Created), "skipped": len(res.Skipped)})
	return res, nil
}

// ExportXLSX writes every product to a workbook with a single Productos sheet.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	if _, err := s.authorize(); err != nil {
		return 0, err
	}
	products, err := s.Catalog.AllProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := WriteProducts(w, products); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExport, err)
	}
	return len(products), nil
}

// WriteProducts renders products in the import layout.
func WriteProducts(w io.Writer, products []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	header := make([]any, len(sheetHeader))
	for i, h := range sheetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, p := range products {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{p.ID, p.Name, p.Description, string(p.Price), p.Stock, p.ModelID, p.SubcategoryID, p.Status}
		if err := f.SetSheetRow(SheetName, axis, &row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
