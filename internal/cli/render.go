package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/app"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
)

func table(w io.Writer, header string, rows func(tw io.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

func renderCart(s cart.Snapshot) func(io.Writer) error {
	return func(w io.Writer) error {
		if s.Empty() {
			_, err := fmt.Fprintln(w, "El carrito está vacío")
			return err
		}
		err := table(w, "ID\tPRODUCTO\tCANT\tPRECIO\tTOTAL", func(tw io.Writer) {
			for _, l := range s.Items {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", l.ID, l.ProductName, l.Quantity, l.UnitPrice.OrZero(), l.LineTotal.OrZero())
			}
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "\n%d productos, %d unidades. Total: %s\n", s.Count, s.Units, s.Total.OrZero())
		return err
	}
}

func renderProducts(products []models.Product) func(io.Writer) error {
	return func(w io.Writer) error {
		if len(products) == 0 {
			_, err := fmt.Fprintln(w, "No se encontraron productos")
			return err
		}
		return table(w, "ID\tPRODUCTO\tPRECIO\tSTOCK\tESTATUS", func(tw io.Writer) {
			for _, p := range products {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price.OrZero(), p.Stock, p.Status)
			}
		})
	}
}

func renderListing(res catalog.ListResult) func(io.Writer) error {
	return func(w io.Writer) error {
		if err := renderProducts(res.Products)(w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nPágina %d (%d por página), %d en total\n", res.Page, res.Size, res.Total)
		return err
	}
}

func renderDetail(d catalog.Detail) func(io.Writer) error {
	return func(w io.Writer) error {
		p := d.Product
		fmt.Fprintf(w, "%s (#%d)\n", p.Name, p.ID)
		if p.Description != "" {
			fmt.Fprintln(w, p.Description)
		}
		fmt.Fprintf(w, "Precio: %s  Stock: %d\n", p.Price.OrZero(), p.Stock)
		if d.MainImage != nil {
			fmt.Fprintf(w, "Imagen: %s\n", d.MainImage.URL)
		}
		fmt.Fprintf(w, "Imágenes: %d\n", len(d.Images))
		if len(d.Related) > 0 {
			fmt.Fprintln(w, "\nRelacionados:")
			return renderProducts(d.Related)(w)
		}
		return nil
	}
}

func renderCategories(cats []models.Category) func(io.Writer) error {
	return func(w io.Writer) error {
		return table(w, "ID\tCATEGORIA", func(tw io.Writer) {
			for _, c := range cats {
				fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Description)
			}
		})
	}
}

func renderSession(s session.Snapshot, h app.Header) func(io.Writer) error {
	return func(w io.Writer) error {
		if !s.IsAuthenticated() {
			_, err := fmt.Fprintf(w, "Sin sesión. Carrito: %d\n", h.CartCount)
			return err
		}
		role := "cliente"
		if h.IsAdmin {
			role = "admin"
		}
		email := ""
		if s.User != nil {
			email = s.User.Email
		}
		fmt.Fprintf(w, "%s <%s> (#%d, %s)\n", h.UserName, email, s.UserID, role)
		_, err := fmt.Fprintf(w, "Carrito: %d  Lista de deseos: %d\n", h.CartCount, h.WishlistCount)
		return err
	}
}

func renderWishlist(items []models.WishlistItem) func(io.Writer) error {
	return func(w io.Writer) error {
		if len(items) == 0 {
			_, err := fmt.Fprintln(w, "Tu lista de deseos está vacía")
			return err
		}
		return table(w, "ID\tPRODUCTO\tNOMBRE\tPRECIO", func(tw io.Writer) {
			for _, it := range items {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", it.ID, it.ProductID, it.ProductName, it.Price.OrZero())
			}
		})
	}
}

func renderOrders(orders []models.Order) func(io.Writer) error {
	return func(w io.Writer) error {
		if len(orders) == 0 {
			_, err := fmt.Fprintln(w, "No tienes pedidos")
			return err
		}
		return table(w, "PEDIDO\tFECHA\tTOTAL\tESTATUS", func(tw io.Writer) {
			for _, o := range orders {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.Date, o.Total.OrZero(), o.Status)
			}
		})
	}
}

func renderReceipt(r checkout.Receipt) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Pedido #%d: %d productos, total %s (%s)\n", r.OrderID, len(r.Details), r.Total, r.Method)
		return err
	}
}

func renderImport(res admin.ImportResult) func(io.Writer) error {
	return func(w io.Writer) error {
		fmt.Fprintf(w, "Creados: %d  Omitidos: %d\n", len(res.Created), len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(w, "  fila %d: %s\n", s.Row, s.Reason)
		}
		return nil
	}
}

func line(format string, args ...any) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := fmt.Fprintf(w, format+"\n", args...)
		return err
	}
}
