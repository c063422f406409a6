package cli

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/wishlist"
)

func newCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "Show and change the cart"}

	// mutate runs fn and prints the refreshed cart.
	mutate := func(cmd *cobra.Command, fn func(e *env) error) error {
		return opts.run(cmd, func(e *env) error {
			if err := fn(e); err != nil {
				return e.fail(err, cart.UserMessage)
			}
			snap := e.app.Cart.Snapshot()
			return e.ok(snap, renderCart(snap))
		})
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(e *env) error { return e.app.Cart.Fetch(e.ctx) })
		},
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argID(args[0], "product id")
			if err != nil {
				return err
			}
			return mutate(cmd, func(e *env) error { return e.app.Cart.AddItem(e.ctx, id, qty) })
		},
	}
	add.Flags().IntVar(&qty, "qty", 1, "quantity")

	update := &cobra.Command{
		Use:   "update <line-id> <quantity>",
		Short: "Set the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argID(args[0], "line id")
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, "invalid quantity "+strconv.Quote(args[1]))
			}
			return mutate(cmd, func(e *env) error { return e.app.Cart.UpdateItem(e.ctx, id, n) })
		},
	}

	remove := &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argID(args[0], "line id")
			if err != nil {
				return err
			}
			return mutate(cmd, func(e *env) error { return e.app.Cart.RemoveItem(e.ctx, id) })
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(e *env) error { return e.app.Cart.Clear(e.ctx) })
		},
	}

	cmd.AddCommand(show, add, update, remove, clearCmd)
	return cmd
}

func newCatalogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Browse products"}

	var (
		q                  catalog.ListQuery
		sort               string
		minPrice, maxPrice float64
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List, search and filter products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := catalog.ParseSort(sort)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --sort", err)
			}
			q.Sort = s
			if cmd.Flags().Changed("min-price") {
				q.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				q.MaxPrice = &maxPrice
			}
			return opts.run(cmd, func(e *env) error {
				res, err := e.app.Catalog.List(e.ctx, q)
				if err != nil {
					return e.fail(err, catalog.UserMessage)
				}
				return e.ok(res, renderListing(res))
			})
		},
	}
	list.Flags().StringVarP(&q.Term, "query", "q", "", "search term")
	list.Flags().Int64Var(&q.CategoryID, "category", 0, "category id")
	list.Flags().Int64Var(&q.SubcategoryID, "subcategory", 0, "subcategory id")
	list.Flags().Float64Var(&minPrice, "min-price", 0, "lowest price")
	list.Flags().Float64Var(&maxPrice, "max-price", 0, "highest price")
	list.Flags().StringVar(&sort, "sort", "", "newest|price-asc|price-desc|name-asc|name-desc")
	list.Flags().IntVar(&q.Page, "page", 1, "page number")
	list.Flags().IntVar(&q.Size, "size", 0, "page size")

	var limit int
	featured := &cobra.Command{
		Use:   "featured",
		Short: "Show featured products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				products, err := e.app.Catalog.Featured(e.ctx, limit)
				if err != nil {
					return e.fail(err, catalog.UserMessage)
				}
				return e.ok(products, renderProducts(products))
			})
		},
	}
	featured.Flags().IntVar(&limit, "limit", catalog.DefaultFeaturedLimit, "number of products")

	show := &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product with its images and related products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argID(args[0], "product id")
			if err != nil {
				return err
			}
			return opts.run(cmd, func(e *env) error {
				d, err := e.app.Catalog.ProductDetail(e.ctx, id)
				if err != nil {
					return e.fail(err, catalog.UserMessage)
				}
				return e.ok(d, renderDetail(d))
			})
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				cats, err := e.app.Catalog.Categories(e.ctx)
				if err != nil {
					return e.fail(err, catalog.UserMessage)
				}
				return e.ok(cats, renderCategories(cats))
			})
		},
	}

	cmd.AddCommand(list, featured, show, categories)
	return cmd
}

func newWishlistCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "wishlist", Short: "Manage the wishlist"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				items, err := e.app.Wishlist.List(e.ctx)
				if err != nil {
					return e.fail(err, wishlist.UserMessage)
				}
				return e.ok(items, renderWishlist(items))
			})
		},
	}

	byID := func(use, short, name string, fn func(e *env, id int64) error, done string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := argID(args[0], name)
				if err != nil {
					return err
				}
				return opts.run(cmd, func(e *env) error {
					if err := fn(e, id); err != nil {
						return e.fail(err, wishlist.UserMessage)
					}
					return e.ok(nil, line("%s", done))
				})
			},
		}
	}

	add := byID("add <product-id>", "Add a product", "product id",
		func(e *env, id int64) error { return e.app.Wishlist.Add(e.ctx, id) }, "Añadido a la lista de deseos")
	remove := byID("remove <item-id>", "Remove a wishlist entry", "item id",
		func(e *env, id int64) error { return e.app.Wishlist.Remove(e.ctx, id) }, "Eliminado de la lista de deseos")
	toCart := byID("to-cart <product-id>", "Add a wishlist product to the cart", "product id",
		func(e *env, id int64) error { return e.app.Wishlist.MoveToCart(e.ctx, id) }, "Añadido al carrito")

	cmd.AddCommand(show, add, remove, toCart)
	return cmd
}

func newCheckoutCommand(opts *RootOptions) *cobra.Command {
	var (
		formFile string
		form     checkout.Form
		method   string
	)
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for the cart",
		Long: `Pay for the cart. Contact fields default to the signed-in profile.
The form can be given as flags or as a YAML file:

  nombre: Ana
  direccion: Calle 1
  ciudad: Lima
  pais: PE
  codigoPostal: "15001"
  metodoPago: efectivo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromFile checkout.Form
			if formFile != "" {
				raw, err := os.ReadFile(formFile)
				if err != nil {
					return WrapExitError(ExitCommandError, "read form", err)
				}
				if err := yaml.Unmarshal(raw, &fromFile); err != nil {
					return WrapExitError(ExitCommandError, "parse form", err)
				}
			}
			return opts.run(cmd, func(e *env) error {
				f := checkout.Prefill(e.app.Session.Snapshot().User)
				merge(&f, fromFile)
				if method != "" {
					form.PaymentMethod = checkout.PaymentMethod(method)
				}
				merge(&f, form)

				receipt, err := e.app.Checkout.PlaceOrder(e.ctx, f)
				if err != nil {
					return e.fail(err, func(err error) string {
						var fe *checkout.FormError
						if errors.As(err, &fe) {
							return checkout.MsgValidation + ": " + strings.Join(fe.Fields, ", ")
						}
						if msg := checkout.UserMessage(err); msg != "" {
							return msg
						}
						return cart.UserMessage(err)
					})
				}
				return e.ok(receipt, renderReceipt(receipt))
			})
		},
	}
	cmd.Flags().StringVar(&formFile, "form", "", "YAML file with the checkout form")
	cmd.Flags().StringVar(&form.Name, "name", "", "buyer name")
	cmd.Flags().StringVar(&form.Email, "email", "", "buyer email")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "buyer phone")
	cmd.Flags().StringVar(&form.Address, "address", "", "shipping address")
	cmd.Flags().StringVar(&form.City, "city", "", "city")
	cmd.Flags().StringVar(&form.Country, "country", "", "country")
	cmd.Flags().StringVar(&form.PostalCode, "postal-code", "", "postal code")
	cmd.Flags().StringVar(&method, "payment", "", "tarjeta|transferencia|efectivo")
	cmd.Flags().StringVar(&form.CardNumber, "card-number", "", "card number")
	cmd.Flags().StringVar(&form.CardExpiry, "card-expiry", "", "card expiry")
	cmd.Flags().StringVar(&form.CardCVV, "cvv", "", "card security code")
	return cmd
}

// merge copies the non-empty fields of src over dst.
func merge(dst *checkout.Form, src checkout.Form) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.Name, src.Name)
	set(&dst.Email, src.Email)
	set(&dst.Phone, src.Phone)
	set(&dst.Address, src.Address)
	set(&dst.City, src.City)
	set(&dst.Country, src.Country)
	set(&dst.PostalCode, src.PostalCode)
	set(&dst.CardNumber, src.CardNumber)
	set(&dst.CardExpiry, src.CardExpiry)
	set(&dst.CardCVV, src.CardCVV)
	if src.PaymentMethod != "" {
		dst.PaymentMethod = src.PaymentMethod
	}
}

func newOrdersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show the order history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(e *env) error {
				orders, err := e.app.Checkout.Orders(e.ctx)
				if err != nil {
					return e.fail(err, checkout.UserMessage)
				}
				return e.ok(orders, renderOrders(orders))
			})
		},
	}
}
