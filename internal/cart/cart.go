// Package cart holds the shopping cart aggregate of the current owner. Every
// mutation is a backend request followed by a full re-fetch.
package cart

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Snapshot struct {
	Owner   Owner             `json:"owner"           yaml:"owner"`
	Items   []models.CartLine `json:"items"           yaml:"items"`
	Total   models.Money      `json:"total"           yaml:"total"`
	Count   int               `json:"count"           yaml:"count"`
	Units   int               `json:"units"           yaml:"units"`
	Loading bool              `json:"loading"         yaml:"loading"`
	Error   string            `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s Snapshot) Empty() bool { return len(s.Items) == 0 }

// Line looks up a line by id.
func (s Snapshot) Line(lineID int64) (models.CartLine, bool) {
	for _, l := range s.Items {
		if l.ID == lineID {
			return l, true
		}
	}
	return models.CartLine{}, false
}

type addRequest struct {
	ProductID int64  `json:"fkProducto"`
	Quantity  int    `json:"cantProducto"`
	UserID    int64  `json:"fkCuentaUser"`
	Status    string `json:"estatusCarrito"`
}

type updateRequest struct {
	Quantity int `json:"cantidad"`
}

type Options struct {
	Notifier  *notify.Notifier
	Publisher events.Publisher
}

type Manager struct {
	api     apiclient.API
	owner   OwnerResolver
	notices *notify.Notifier
	events  events.Publisher

	mu      sync.RWMutex
	loaded  Owner
	items   []models.CartLine
	total   models.Money
	lastErr string
	applied uint64
	// gen changes with every owner switch; work begun under an older
	// generation never lands.
	gen uint64

	tickets  atomic.Uint64
	inflight atomic.Int32
}

func NewManager(api apiclient.API, owner OwnerResolver, opts Options) *Manager {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	return &Manager{
		api:     api,
		owner:   owner,
		notices: opts.Notifier,
		events:  opts.Publisher,
		total:   models.ZeroMoney,
	}
}

func (m *Manager) begin() func() {
	m.inflight.Add(1)
	return func() { m.inflight.Add(-1) }
}

// Loading reports whether any cart operation is outstanding.
func (m *Manager) Loading() bool {
	return m.inflight.Load() > 0
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.CartLine, len(m.items))
	copy(items, m.items)
	return Snapshot{
		Owner:   m.loaded,
		Items:   items,
		Total:   m.total.OrZero(),
		Count:   len(items),
		Units:   units(items),
		Loading: m.Loading(),
		Error:   m.lastErr,
	}
}

// Count is the number of distinct lines.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// resolve returns the current owner and the generation it belongs to. The
// generation is read first so a switch in between discards the work.
func (m *Manager) resolve() (Owner, uint64, error) {
	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()
	owner, err := m.owner.ResolveOwner()
	if err != nil {
		return Owner{}, 0, err
	}
	return owner, gen, nil
}

// apply installs one backend aggregate if no newer one was applied already
// and the owner has not changed since the work began.
func (m *Manager) apply(ctx context.Context, ticket, gen uint64, owner Owner, resp models.CartResponse) bool {
	l := logging.FromContext(ctx).With("svc", "cart.fetch")

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		l.Debug("cart_fetch_owner_changed", "user_id", owner.UserID, "gen", gen, "current_gen", m.gen)
		return false
	}
	if ticket <= m.applied {
		l.Debug("cart_fetch_discarded", "ticket", ticket, "applied", m.applied)
		return false
	}
	m.applied = ticket

	items := resp.Items
	if items == nil {
		items = []models.CartLine{}
	}
	if resp.ItemCount != len(items) && resp.ItemCount != units(items) {
		l.Warn("cart_count_mismatch", "backend_count", resp.ItemCount, "lines", len(items))
	}
	m.loaded = owner
	m.items = items
	m.total = resp.Total.OrZero()
	m.lastErr = ""
	return true
}

func units(items []models.CartLine) int {
	n := 0
	for _, l := range items {
		n += l.Quantity
	}
	return n
}

func (m *Manager) reset(owner Owner) {
	m.items = []models.CartLine{}
	m.total = models.ZeroMoney
	m.loaded = owner
	m.lastErr = ""
}

func (m *Manager) fail(ctx context.Context, msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
	m.notices.Error(ctx, msg)
}

// Fetch replaces the aggregate with the backend's view of the owner's cart.
func (m *Manager) Fetch(ctx context.Context) error {
	owner, gen, err := m.resolve()
	if err != nil {
		return err
	}
	defer m.begin()()
	return m.fetch(ctx, gen, owner)
}

func (m *Manager) fetch(ctx context.Context, gen uint64, owner Owner) error {
	l := logging.FromContext(ctx).With("svc", "cart.fetch")
	ticket := m.tickets.Add(1)

	var resp models.CartResponse
	path := "/carrito/usuario/" + strconv.FormatInt(owner.UserID, 10)
	if err := m.api.Get(ctx, path, &resp); err != nil {
		l.Error("cart_fetch_error", "user_id", owner.UserID, "kind", string(apiclient.KindOf(err)), "error", err)
		m.mu.Lock()
		if ticket > m.applied && gen == m.gen {
			m.lastErr = MsgLoad
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrCartLoad, err)
	}
	m.apply(ctx, ticket, gen, owner, resp)
	return nil
}

// refetch runs after a successful mutation. Its failure is recorded on the
// snapshot but does not undo the mutation's success.
func (m *Manager) refetch(ctx context.Context, gen uint64, owner Owner) {
	if err := m.fetch(ctx, gen, owner); err != nil {
		logging.FromContext(ctx).Warn("cart_refetch_error", "user_id", owner.UserID, "error", err)
	}
}

func (m *Manager) AddItem(ctx context.Context, productID int64, qty int) error {
	l := logging.FromContext(ctx).With("svc", "cart.add")
	if qty < 1 {
		return fmt.Errorf("%w: quantity %d below 1", ErrValidation, qty)
	}
	if productID <= 0 {
		return fmt.Errorf("%w: product id required", ErrValidation)
	}
	owner, gen, err := m.resolve()
	if err != nil {
		return err
	}
	defer m.begin()()

	req := addRequest{ProductID: productID, Quantity: qty, UserID: owner.UserID, Status: models.CartStatusActive}
	if err := m.api.Post(ctx, "/carrito", req, nil); err != nil {
		l.Error("add_to_cart_error", "user_id", owner.UserID, "product_id", productID, "kind", string(apiclient.KindOf(err)), "error", err)
		m.fail(ctx, MsgAdd)
		return fmt.Errorf("%w: %w", ErrCartAdd, err)
	}
	m.refetch(ctx, gen, owner)

	l.Info("item added successfully to cart", "user_id", owner.UserID, "product_id", productID, "quantity", qty)
	m.notices.Success(ctx, MsgAdded)
	events.Emit(ctx, m.events, events.TopicCart, events.Event{
		Type:   events.CartItemAdded,
		UserID: owner.UserID,
		Data:   map[string]any{"productID": productID, "quantity": qty},
	})
	return nil
}

// UpdateItem sets a line's quantity. It never removes a line.
func (m *Manager) UpdateItem(ctx context.Context, lineID int64, qty int) error {
	l := logging.FromContext(ctx).With("svc", "cart.update")
	if qty < 1 {
		return fmt.Errorf("%w: quantity %d below 1", ErrValidation, qty)
	}
	if lineID <= 0 {
		return fmt.Errorf("%w: line id required", ErrValidation)
	}
	owner, gen, err := m.resolve()
	if err != nil {
		return err
	}
	defer m.begin()()

	path := "/carrito/" + strconv.FormatInt(lineID, 10)
	if err := m.api.Put(ctx, path, updateRequest{Quantity: qty}, nil); err != nil {
		l.Error("update_cart_error", "line_id", lineID, "kind", string(apiclient.KindOf(err)), "error", err)
		m.fail(ctx, MsgUpdate)
		return fmt.Errorf("%w: %w", ErrCartUpdate, err)
	}
	m.refetch(ctx, gen, owner)

	l.Info("cart line updated", "line_id", lineID, "quantity", qty)
	m.notices.Success(ctx, MsgUpdated)
	events.Emit(ctx, m.events, events.TopicCart, events.Event{
		Type:   events.CartItemUpdated,
		UserID: owner.UserID,
		Data:   map[string]any{"lineID": lineID, "quantity": qty},
	})
	return nil
}

func (m *Manager) RemoveItem(ctx context.Context, lineID int64) error {
	l := logging.FromContext(ctx).With("svc", "cart.remove")
	if lineID <= 0 {
		return fmt.Errorf("%w: line id required", ErrValidation)
	}
	owner, gen, err := m.resolve()
	if err != nil {
		return err
	}
	defer m.begin()()

	path := "/carrito/" + strconv.FormatInt(lineID, 10)
	if err := m.api.Delete(ctx, path, nil); err != nil {
		l.Error("delete_one_from_cart_error", "line_id", lineID, "kind", string(apiclient.KindOf(err)), "error", err)
		m.fail(ctx, MsgRemove)
		return fmt.Errorf("%w: %w", ErrCartRemove, err)
	}
	m.refetch(ctx, gen, owner)

	l.Info("cart line removed", "line_id", lineID)
	m.notices.Success(ctx, MsgRemoved)
	events.Emit(ctx, m.events, events.TopicCart, events.Event{
		Type:   events.CartItemRemoved,
		UserID: owner.UserID,
		Data:   map[string]any{"lineID": lineID},
	})
	return nil
}

// Clear empties the owner's cart on the backend and then locally. It always
// issues the request, even when the cart already looks empty.
func (m *Manager) Clear(ctx context.Context) error {
	l := logging.FromContext(ctx).With("svc", "cart.clear")
	owner, gen, err := m.resolve()
	if err != nil {
		return err
	}
	defer m.begin()()

	path := "/carrito/usuario/" + strconv.FormatInt(owner.UserID, 10) + "/clear"
	if err := m.api.Delete(ctx, path, nil); err != nil {
		l.Error("delete_all_from_cart_error", "user_id", owner.UserID, "kind", string(apiclient.KindOf(err)), "error", err)
		m.fail(ctx, MsgClear)
		return fmt.Errorf("%w: %w", ErrCartClear, err)
	}

	// Taken after the backend confirmed, so any fetch issued earlier is older.
	ticket := m.tickets.Add(1)
	m.mu.Lock()
	if ticket > m.applied && gen == m.gen {
		m.applied = ticket
		m.reset(owner)
	}
	m.mu.Unlock()

	l.Info("cart successfully cleared", "user_id", owner.UserID)
	m.notices.Success(ctx, MsgCleared)
	events.Emit(ctx, m.events, events.TopicCart, events.Event{Type: events.CartCleared, UserID: owner.UserID})
	return nil
}

// SyncOwner drops the local aggregate when the resolved owner differs from
// the one it was loaded for. In-flight fetches for the old owner are
// discarded when they land. No request is issued.
func (m *Manager) SyncOwner(ctx context.Context) {
	owner, err := m.owner.ResolveOwner()
	if err != nil {
		owner = Owner{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if owner == m.loaded {
		return
	}
	m.gen++
	m.applied = m.tickets.Add(1)
	m.reset(owner)
	logging.FromContext(ctx).Debug("cart_owner_changed", "user_id", owner.UserID, "guest", owner.Guest)
}
