package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/platform/logger"
	"github.com/yungbote/storefront-backend/internal/pricing"
	"github.com/yungbote/storefront-backend/internal/realtime/bus"
	"github.com/yungbote/storefront-backend/internal/repos"
	"github.com/yungbote/storefront-backend/internal/types"
)

// NewLineItemID builds the opaque identity of a configured item:
// <catalog id>-<unix millis>-<random suffix>.
func NewLineItemID(catalogItemID string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", catalogItemID, now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// RemoveFilter selects rows to remove. LineItemID wins when it matches a row.
// Otherwise every row of CatalogItemID is removed; when AddOnIDs is non-nil
// only rows whose add-on id set equals it (order-independent) are removed.
type RemoveFilter struct {
	LineItemID    string
	CatalogItemID string
	AddOnIDs      []string
}

// Cart is one owner's cart. Rows merge only by LineItemID: two separately
// configured rows of the same catalog item stay separate even when their
// add-ons are identical. Every mutation first re-reads the stored snapshot,
// so writes made through another instance are never overwritten, then
// recomputes the total and writes the full snapshot back before returning.
type Cart struct {
	mu      sync.Mutex
	log     *logger.Logger
	ownerID string
	store   repos.CartStore
	catalog Catalog
	now     func() time.Time
	// onWrite runs after every successful persist.
	onWrite func(ctx context.Context, ownerID string)

	items []types.LineItem
	total float64
}

func NewCart(log *logger.Logger, store repos.CartStore, catalog Catalog, ownerID string) *Cart {
	return &Cart{
		log:     log.With("service", "Cart", "owner_id", ownerID),
		ownerID: ownerID,
		store:   store,
		catalog: catalog,
		now:     time.Now,
		items:   []types.LineItem{},
	}
}

func (c *Cart) OwnerID() string { return c.ownerID }

// Load replaces the in-memory rows with the persisted snapshot.
func (c *Cart) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

func (c *Cart) reloadLocked(ctx context.Context) error {
	items, err := c.store.ReadCart(ctx, c.ownerID)
	if err != nil {
		return fmt.Errorf("read cart: %w", err)
	}
	if items == nil {
		items = []types.LineItem{}
	}
	c.items = items
	c.total = pricing.CartTotal(items)
	return nil
}

// Add appends li, or adds its quantity to the row with the same LineItemID.
// A row without an id gets a fresh one. The stored row is returned.
func (c *Cart) Add(ctx context.Context, li types.LineItem) (types.LineItem, error) {
	li = c.applyCatalog(ctx, c.normalize(li))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reloadLocked(ctx); err != nil {
		return li, err
	}

	stored := li
	if i := c.indexOf(li.LineItemID); i >= 0 {
		c.items[i].Quantity += li.Quantity
		stored = c.items[i].Clone()
	} else {
		c.items = append(c.items, li)
	}
	return stored, c.persistLocked(ctx)
}

// Update replaces the row with li's LineItemID, inserting it when absent.
func (c *Cart) Update(ctx context.Context, li types.LineItem) (types.LineItem, error) {
	li = c.applyCatalog(ctx, c.normalize(li))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reloadLocked(ctx); err != nil {
		return li, err
	}

	if i := c.indexOf(li.LineItemID); i >= 0 {
		c.items[i] = li
	} else {
		c.items = append(c.items, li)
	}
	return li.Clone(), c.persistLocked(ctx)
}

// Remove deletes the rows selected by f and reports how many went away.
// Nothing is written when nothing matched.
func (c *Cart) Remove(ctx context.Context, f RemoveFilter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reloadLocked(ctx); err != nil {
		return 0, err
	}

	before := len(c.items)
	if id := strings.TrimSpace(f.LineItemID); id != "" {
		if i := c.indexOf(id); i >= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return 1, c.persistLocked(ctx)
		}
	}
	if strings.TrimSpace(f.CatalogItemID) == "" {
		return 0, nil
	}

	var want map[string]struct{}
	if f.AddOnIDs != nil {
		want = idSet(f.AddOnIDs)
	}
	kept := c.items[:0]
	for _, li := range c.items {
		match := li.CatalogItemID == f.CatalogItemID
		if match && want != nil {
			match = sameSet(want, addOnIDSet(li.AddOns))
		}
		if !match {
			kept = append(kept, li)
		}
	}
	c.items = kept

	removed := before - len(c.items)
	if removed == 0 {
		return 0, nil
	}
	return removed, c.persistLocked(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = []types.LineItem{}
	return c.persistLocked(ctx)
}

// Items returns a copy of the rows in display order.
func (c *Cart) Items() []types.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.LineItem, len(c.items))
	for i, li := range c.items {
		out[i] = li.Clone()
	}
	return out
}

func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Count is the number of units across all rows.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// ResolveDisplayItem fills image and description from the catalog. Fields
// already stored on the row win. Any lookup problem returns li unchanged.
func (c *Cart) ResolveDisplayItem(ctx context.Context, li types.LineItem) types.LineItem {
	if c.catalog == nil || li.CatalogItemID == "" {
		return li
	}
	item, ok, err := c.catalog.LookupItem(ctx, li.CatalogItemID)
	if err != nil {
		c.log.Warn("catalog lookup failed", "catalog_item_id", li.CatalogItemID, "error", err)
		return li
	}
	if !ok {
		return li
	}
	out := li.Clone()
	if out.ImageRef == "" {
		out.ImageRef = item.ImageRef
	}
	if out.Description == "" {
		out.Description = item.Description
	}
	if out.Name == "" {
		out.Name = item.Name
	}
	return out
}

// applyCatalog takes the name, base price and add-on prices from the catalog
// when it lists the item, and drops add-ons the catalog item does not offer.
// Client values stand only when the catalog is absent, unreachable or does
// not know the item.
func (c *Cart) applyCatalog(ctx context.Context, li types.LineItem) types.LineItem {
	if c.catalog == nil || li.CatalogItemID == "" {
		return li
	}
	item, ok, err := c.catalog.LookupItem(ctx, li.CatalogItemID)
	if err != nil {
		c.log.Warn("catalog pricing unavailable, keeping submitted prices", "catalog_item_id", li.CatalogItemID, "error", err)
		return li
	}
	if !ok {
		return li
	}
	if item.Name != "" {
		li.Name = item.Name
	}
	li.BasePrice = item.BasePrice
	if len(item.AddOns) == 0 {
		return li
	}

	offered := make(map[string]types.CatalogAddOn, len(item.AddOns))
	for _, a := range item.AddOns {
		offered[a.ID] = a
	}
	addOns := li.AddOns[:0]
	for _, sel := range li.AddOns {
		a, ok := offered[sel.ID]
		if !ok {
			c.log.Warn("dropping add-on not offered by catalog", "catalog_item_id", li.CatalogItemID, "add_on_id", sel.ID)
			continue
		}
		sel.UnitPrice = a.UnitPrice
		if a.Name != "" {
			sel.Name = a.Name
		}
		addOns = append(addOns, sel)
	}
	li.AddOns = addOns
	return li
}

func (c *Cart) normalize(li types.LineItem) types.LineItem {
	li = li.Clone()
	if li.Quantity < 1 {
		li.Quantity = 1
	}
	li.AddOns = pricing.NormalizeAddOns(li.AddOns)
	if strings.TrimSpace(li.LineItemID) == "" {
		li.LineItemID = NewLineItemID(li.CatalogItemID, c.now())
	}
	return li
}

func (c *Cart) indexOf(lineItemID string) int {
	for i := range c.items {
		if c.items[i].LineItemID == lineItemID {
			return i
		}
	}
	return -1
}

func (c *Cart) persistLocked(ctx context.Context) error {
	c.total = pricing.CartTotal(c.items)
	if err := c.store.WriteCart(ctx, c.ownerID, c.items); err != nil {
		c.log.Error("persist cart failed", "error", err)
		return fmt.Errorf("write cart: %w", err)
	}
	if c.onWrite != nil {
		c.onWrite(ctx, c.ownerID)
	}
	return nil
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func addOnIDSet(addOns []types.AddOnSelection) map[string]struct{} {
	ids := make([]string, 0, len(addOns))
	for _, a := range addOns {
		ids = append(ids, a.ID)
	}
	return idSet(ids)
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// CartRegistry hands out one loaded Cart per owner. With a bus attached it
// announces every write and reloads its cached carts when another instance
// announces one.
// Carts unused for longer than the idle TTL are dropped from memory and load
// fresh from the store on next use.
type CartRegistry struct {
	log     *logger.Logger
	store   repos.CartStore
	catalog Catalog

	bus    bus.Bus
	origin string

	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time

	mu    sync.Mutex
	carts map[string]*cachedCart
}

type cachedCart struct {
	cart     *Cart
	lastUsed time.Time
}

const defaultCartIdleTTL = 30 * time.Minute

func NewCartRegistry(log *logger.Logger, store repos.CartStore, catalog Catalog) *CartRegistry {
	return &CartRegistry{
		log:     log,
		store:   store,
		catalog: catalog,
		idleTTL: defaultCartIdleTTL,
		now:     time.Now,
		carts:   map[string]*cachedCart{},
	}
}

// SetIdleTTL changes how long an unused cart stays cached. Non-positive
// values keep the default.
func (r *CartRegistry) SetIdleTTL(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.idleTTL = d
	r.mu.Unlock()
}

// Len reports how many carts are cached.
func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Listen attaches b and starts reloading carts changed elsewhere. origin
// names this instance; events it published itself are ignored. Call it
// before serving traffic.
func (r *CartRegistry) Listen(ctx context.Context, b bus.Bus, origin string) error {
	if origin == "" {
		origin = uuid.NewString()
	}
	r.mu.Lock()
	r.bus = b
	r.origin = origin
	r.mu.Unlock()
	return b.StartForwarder(ctx, func(m bus.CartChanged) {
		if m.Origin == origin {
			return
		}
		r.Refresh(context.WithoutCancel(ctx), m.OwnerID)
	})
}

// Refresh reloads a cached cart from the store. Owners without a cached cart
// are left alone; they load fresh on first use.
func (r *CartRegistry) Refresh(ctx context.Context, ownerID string) {
	r.mu.Lock()
	e, ok := r.carts[ownerID]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := e.cart.Load(ctx); err != nil {
		r.log.Warn("reload cart after remote change failed", "owner_id", ownerID, "error", err)
	}
}

func (r *CartRegistry) announce(ctx context.Context, ownerID string) {
	r.mu.Lock()
	b, origin := r.bus, r.origin
	r.mu.Unlock()
	if b == nil {
		return
	}
	msg := bus.CartChanged{OwnerID: ownerID, Origin: origin, At: time.Now()}
	if err := b.Publish(ctx, msg); err != nil {
		r.log.Warn("publish cart change failed", "owner_id", ownerID, "error", err)
	}
}

func (r *CartRegistry) Get(ctx context.Context, ownerID string) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweepLocked(now)
	if e, ok := r.carts[ownerID]; ok {
		e.lastUsed = now
		return e.cart, nil
	}
	c := NewCart(r.log, r.store, r.catalog, ownerID)
	c.onWrite = r.announce
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	r.carts[ownerID] = &cachedCart{cart: c, lastUsed: now}
	return c, nil
}

// sweepLocked drops idle carts, at most once per tenth of the idle TTL.
func (r *CartRegistry) sweepLocked(now time.Time) {
	if now.Sub(r.lastSweep) < r.idleTTL/10 {
		return
	}
	r.lastSweep = now
	for owner, e := range r.carts {
		if now.Sub(e.lastUsed) > r.idleTTL {
			delete(r.carts, owner)
		}
	}
}
