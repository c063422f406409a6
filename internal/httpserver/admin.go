package httpserver

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) AdminProducts(c echo.Context) error {
	products, err := s.App.Admin.Products(c.Request().Context())
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusOK, products)
}

func (s *Server) AdminProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := s.App.Admin.Product(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusOK, p)
}

func (s *Server) AdminCreateProduct(c echo.Context) error {
	var form admin.ProductForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid body")
	}
	form.Product.ID = 0
	p, err := s.App.Admin.SaveProduct(c.Request().Context(), form)
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusCreated, p)
}

func (s *Server) AdminUpdateProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var form admin.ProductForm
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid body")
	}
	form.Product.ID = id
	p, err := s.App.Admin.SaveProduct(c.Request().Context(), form)
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusOK, p)
}

func (s *Server) AdminDeleteProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	msg, err := s.App.Admin.DeleteProduct(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) AdminFormData(c echo.Context) error {
	d, err := s.App.Admin.LoadFormData(c.Request().Context())
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusOK, d)
}

func (s *Server) AdminExport(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := s.App.Admin.ExportXLSX(c.Request().Context(), &buf); err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="productos.xlsx"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// AdminImport takes the workbook as a multipart "file" field or as the raw
// request body.
func (s *Server) AdminImport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.import")

	var r io.Reader = c.Request().Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			l.Warn("import_error", "status", 400, "error", err)
			return badRequest(c, "invalid file")
		}
		defer f.Close()
		r = f
	}
	res, err := s.App.Admin.ImportXLSX(ctx, r)
	if err != nil {
		return s.fail(c, err, admin.UserMessage)
	}
	return s.ok(c, http.StatusOK, res)
}
