// Package app wires the storefront client: configuration, backend client,
// credential store, event publisher, search index and the managers built on
// them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/credstore"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/wishlist"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	API       *apiclient.Client
	Store     credstore.Store
	Publisher events.Publisher
	Notices   *notify.Notifier

	Session  *session.Manager
	Cart     *cart.Manager
	Catalog  *catalog.Service
	Wishlist *wishlist.Service
	Checkout *checkout.Service
	Admin    *admin.Service

	closers []func() error
}

type options struct {
	store     credstore.Store
	publisher events.Publisher
	skipES    bool
}

type Option func(*options)

// WithStore replaces the configured credential store.
func WithStore(s credstore.Store) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher replaces the configured event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithoutSearch disables the Elasticsearch searcher even when ES_URL is set.
func WithoutSearch() Option {
	return func(o *options) { o.skipES = true }
}

// New builds the application. The logger in ctx becomes the application
// logger. Close releases whatever New opened.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	l := logging.FromContext(ctx).With("svc", "app")

	a := &App{Config: cfg, Logger: logging.FromContext(ctx), Notices: notify.New()}

	store := o.store
	if store == nil {
		s, closer, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = s
		a.onClose(closer)
	}
	if cfg.CredKey != "" {
		store = credstore.NewSealedStore(store, cfg.CredKey)
	}
	a.Store = store

	pub := o.publisher
	if pub == nil {
		pub = events.Nop{}
		if len(cfg.KafkaBrokers) > 0 {
			kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("kafka publisher: %w", err)
			}
			pub = kp
			l.Info("kafka_publisher_ready", "brokers", cfg.KafkaBrokers)
		}
	}
	a.onClose(pub.Close)
	a.Publisher = pub

	var sess *session.Manager
	a.API = apiclient.NewClient(cfg.APIURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithTokenFunc(func() string { return sess.Token() }),
	)
	sess = session.NewManager(a.API, a.Store, session.Options{Notifier: a.Notices, Publisher: pub})
	a.Session = sess

	a.Cart = cart.NewManager(a.API, cart.SessionOwner{Session: sess, GuestID: cfg.GuestUserID},
		cart.Options{Notifier: a.Notices, Publisher: pub})

	// base carries the logger; OnChange has no request context of its own.
	base := logging.IntoContext(context.Background(), a.Logger)
	sess.OnChange(func(session.Snapshot) { a.Cart.SyncOwner(base) })

	a.Catalog = &catalog.Service{API: a.API}
	var index admin.Indexer
	if cfg.ESURL != "" && !o.skipES {
		es, err := catalog.NewESSearcher(ctx, catalog.ESConfig{
			URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword, Index: cfg.ESIndex,
		})
		if err != nil {
			l.Warn("es_unavailable", "url", cfg.ESURL, "error", err)
		} else {
			a.Catalog.Search = es
			index = es
		}
	}

	a.Wishlist = &wishlist.Service{API: a.API, Session: sess, Cart: a.Cart, Notices: a.Notices}
	a.Checkout = &checkout.Service{API: a.API, Session: sess, Cart: a.Cart, Notices: a.Notices, Publisher: pub}
	a.Admin = &admin.Service{
		API:       a.API,
		Session:   sess,
		Catalog:   a.Catalog,
		Notices:   a.Notices,
		Publisher: pub,
		Index:     index,
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (credstore.Store, func() error, error) {
	switch cfg.CredStore {
	case config.StoreMemory:
		return credstore.NewMemoryStore(), nil, nil
	case config.StoreRedis:
		client, err := credstore.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return credstore.NewRedisStore(client, cfg.ServiceName+":"), client.Close, nil
	case config.StorePostgres, config.StoreSQLite:
		var (
			gdb *gorm.DB
			err error
		)
		if cfg.CredStore == config.StorePostgres {
			gdb, err = db.OpenPostgres(ctx, cfg.DatabaseURL)
		} else {
			gdb, err = db.OpenSQLite(ctx, cfg.SQLitePath)
		}
		if err != nil {
			return nil, nil, err
		}
		s, err := credstore.NewGormStore(gdb)
		if err != nil {
			_ = db.Close(gdb)
			return nil, nil, err
		}
		return s, func() error { return db.Close(gdb) }, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.CredStore)
}

func (a *App) onClose(fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Header is what the page header shows.
type Header struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	UserName      string `json:"userName,omitempty" yaml:"userName,omitempty"`
	IsAdmin       bool   `json:"isAdmin" yaml:"isAdmin"`
	CartCount     int    `json:"cartCount" yaml:"cartCount"`
	WishlistCount int    `json:"wishlistCount" yaml:"wishlistCount"`
}

// Header refreshes the cart and reads the badge counts. A cart without an
// owner counts as zero.
func (a *App) Header(ctx context.Context) Header {
	snap := a.Session.Snapshot()
	h := Header{Authenticated: snap.IsAuthenticated(), IsAdmin: snap.IsAdmin()}
	if snap.User != nil {
		h.UserName = snap.User.Name
	}
	if err := a.Cart.Fetch(ctx); err != nil && !errors.Is(err, cart.ErrNoOwner) {
		a.Logger.Warn("header_cart_error", "error", err)
	}
	h.CartCount = a.Cart.Count()
	if h.Authenticated {
		h.WishlistCount = a.Wishlist.Count(ctx)
	}
	return h
}
