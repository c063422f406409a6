package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Skotchmaster/storefront/internal/admin"
)

// readProductForm loads a product form from a JSON or YAML file. YAML is
// converted to JSON first so both use the backend field names.
func readProductForm(path string) (admin.ProductForm, error) {
	var form admin.ProductForm
	raw, err := os.ReadFile(path)
	if err != nil {
		return form, WrapExitError(ExitCommandError, "read product file", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return form, WrapExitError(ExitCommandError, "parse product file", err)
		}
		if raw, err = json.Marshal(generic); err != nil {
			return form, WrapExitError(ExitCommandError, "parse product file", err)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&form); err != nil {
		return form, WrapExitError(ExitCommandError, "parse product file", err)
	}
	return form, nil
}

func newAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Back office (admin accounts only)"}
	products := &cobra.Command{Use: "products", Short: "Maintain products"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				all, err := e.app.Admin.Products(e.ctx)
				if err != nil {
					return e.fail(err, admin.UserMessage)
				}
				return e.ok(all, renderProducts(all))
			})
		},
	}

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a product with its images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := readProductForm(file)
			if err != nil {
				return err
			}
			form.Product.ID = 0
			return opts.run(cmd, func(e *env) error {
				p, err := e.app.Admin.SaveProduct(e.ctx, form)
				if err != nil {
					return e.fail(err, admin.UserMessage)
				}
				return e.ok(p, line("Producto #%d creado", p.ID))
			})
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "product form (JSON or YAML)")
	_ = create.MarkFlagRequired("file")

	var updateFile string
	update := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Update a product and apply image edits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argID(args[0], "product id")
			if err != nil {
				return err
			}
			form, err := readProductForm(updateFile)
			if err != nil {
				return err
			}
			form.Product.ID = id
			return opts.run(cmd, func(e *env) error {
				p, err := e.app.Admin.SaveProduct(e.ctx, form)
				if err != nil {
					return e.fail(err, admin.UserMessage)
				}
				return e.ok(p, line("Producto #%d actualizado", p.ID))
			})
		},
	}
	update.Flags().StringVarP(&updateFile, "file", "f", "", "product form (JSON or YAML)")
	_ = update.MarkFlagRequired("file")

	del := &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argID(args[0], "product id")
			if err != nil {
				return err
			}
			return opts.run(cmd, func(e *env) error {
				msg, err := e.app.Admin.DeleteProduct(e.ctx, id)
				if err != nil {
					return e.fail(err, admin.UserMessage)
				}
				return e.ok(map[string]string{"message": msg}, line("%s", msg))
			})
		},
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write every product to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				var buf bytes.Buffer
				n, err := e.app.Admin.ExportXLSX(e.ctx, &buf)
				if err != nil {
					return e.fail(err, admin.UserMessage)
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return WrapExitError(ExitCommandError, "write "+out, err)
				}
				data := map[string]any{"file": out, "products": n}
				return e.ok(data, line("%d productos exportados a %s", n, out))
			})
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "productos.xlsx", "output file")

	imp := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Create products from an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("open %s", args[0]), err)
			}
			defer f.Close()
			return opts.run(cmd, func(e *env) error {
				res, err := e.app.Admin.ImportXLSX(e.ctx, f)
				if err != nil {
					return e.fail(err, admin.UserMessage)
				}
				return e.ok(res, renderImport(res))
			})
		},
	}

	products.AddCommand(list, create, update, del, export, imp)
	cmd.AddCommand(products)
	return cmd
}
