package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/model"
	"go-shop-api/internal/repository"
)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	backend := cache.NewMemoryBackend(0)
	t.Cleanup(func() { _ = backend.Close() })
	return cache.NewStore(backend, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

// downBackend fails every operation, like an unreachable Redis.
type downBackend struct{}

var errCacheDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func (downBackend) Get(context.Context, string) ([]byte, error)              { return nil, errCacheDown }
func (downBackend) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (downBackend) Del(context.Context, ...string) error                     { return errCacheDown }
func (downBackend) Exists(context.Context, string) (bool, error)             { return false, errCacheDown }
func (downBackend) Ping(context.Context) error                               { return errCacheDown }
func (downBackend) Close() error                                             { return nil }

func newDownCache() *cache.Store {
	return cache.NewStore(downBackend{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

type fakeUserStore struct {
	mu             sync.Mutex
	users          map[int64]model.User
	nextID         int64
	identityLoads  int
	failIdentities error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, u.Username) || existing.Email == u.Email {
			return model.User{}, model.ErrUserAlreadyExists
		}
	}

	f.nextID++
	now := time.Now().UTC()
	u.ID = f.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) ExistsByUsernameOrEmail(_ context.Context, username string, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, username) || existing.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) FindIdentity(_ context.Context, id int64) (model.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.identityLoads++
	if f.failIdentities != nil {
		return model.AuthUser{}, f.failIdentities
	}
	u, ok := f.users[id]
	if !ok {
		return model.AuthUser{}, model.ErrUserNotFound
	}
	return u.Identity(), nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.users[id]
	u.LastLoginAt = &at
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) delete(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUserStore) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identityLoads
}

type fakeProductStore struct {
	mu       sync.Mutex
	products map[int64]model.Product
	reads    int
}

func newFakeProductStore(products ...model.Product) *fakeProductStore {
	f := &fakeProductStore{products: map[int64]model.Product{}}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductStore) FindByID(_ context.Context, id int64) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	p, ok := f.products[id]
	if !ok {
		return model.Product{}, model.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductStore) List(_ context.Context, q model.ProductQuery) ([]model.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	ids := make([]int64, 0, len(f.products))
	for id, p := range f.products {
		if q.Category == "" || strings.EqualFold(p.Category, q.Category) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	start := (q.Page - 1) * q.Limit
	out := make([]model.Product, 0)
	for i := start; i < len(ids) && i < start+q.Limit; i++ {
		out = append(out, f.products[ids[i]])
	}
	return out, len(ids), nil
}

func (f *fakeProductStore) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeOrderStore models row locks: a transaction holds a per-product mutex
// from LockProducts until commit or rollback, and staged writes only become
// visible on commit.
type fakeOrderStore struct {
	mu          sync.Mutex
	products    map[int64]model.Product
	rowLocks    map[int64]*sync.Mutex
	orders      map[int64]model.Order
	nextOrderID int64
	nextItemID  int64
	failCreate  error
	finds       int
}

func newFakeOrderStore(products ...model.Product) *fakeOrderStore {
	f := &fakeOrderStore{
		products: map[int64]model.Product{},
		rowLocks: map[int64]*sync.Mutex{},
		orders:   map[int64]model.Order{},
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeOrderStore) lockFor(id int64) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		f.rowLocks[id] = l
	}
	return l
}

func (f *fakeOrderStore) WithinTx(ctx context.Context, fn func(tx repository.OrderTx) error) error {
	tx := &fakeOrderTx{store: f, decrements: map[int64]int{}}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (f *fakeOrderStore) FindByID(_ context.Context, id int64) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finds++
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, model.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) ListByUser(_ context.Context, q model.OrderQuery) ([]model.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mine := make([]model.Order, 0)
	for _, o := range f.orders {
		if o.UserID == q.UserID {
			mine = append(mine, o)
		}
	}
	slices.SortFunc(mine, func(a, b model.Order) int { return int(b.ID - a.ID) })

	start := (q.Page - 1) * q.Limit
	out := make([]model.Order, 0)
	for i := start; i < len(mine) && i < start+q.Limit; i++ {
		out = append(out, mine[i])
	}
	return out, len(mine), nil
}

func (f *fakeOrderStore) StatsByUser(_ context.Context, userID int64) (model.OrderStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := model.OrderStats{TotalSpent: decimal.Zero}
	for _, o := range f.orders {
		if o.UserID == userID {
			stats.TotalOrders++
			stats.TotalSpent = stats.TotalSpent.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

func (f *fakeOrderStore) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	orders, _, err := f.ListByUser(ctx, model.OrderQuery{UserID: userID, Page: 1, Limit: limit})
	return orders, err
}

func (f *fakeOrderStore) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].StockQuantity
}

func (f *fakeOrderStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeOrderTx struct {
	store      *fakeOrderStore
	held       []*sync.Mutex
	order      *model.Order
	decrements map[int64]int
}

func (t *fakeOrderTx) LockProducts(_ context.Context, ids []int64) (map[int64]model.Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	for _, id := range slices.Compact(sorted) {
		l := t.store.lockFor(id)
		l.Lock()
		t.held = append(t.held, l)
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	locked := make(map[int64]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.store.products[id]; ok {
			locked[id] = p
		}
	}
	return locked, nil
}

func (t *fakeOrderTx) CreateOrder(_ context.Context, userID int64, total decimal.Decimal) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.failCreate != nil {
		return 0, t.store.failCreate
	}
	t.store.nextOrderID++
	t.order = &model.Order{
		ID:          t.store.nextOrderID,
		UserID:      userID,
		Status:      model.OrderStatusPending,
		TotalAmount: total,
		CreatedAt:   time.Now().UTC(),
	}
	return t.order.ID, nil
}

func (t *fakeOrderTx) InsertItem(_ context.Context, item model.OrderItem) error {
	t.store.mu.Lock()
	t.store.nextItemID++
	item.ID = t.store.nextItemID
	t.store.mu.Unlock()

	t.order.Items = append(t.order.Items, item)
	return nil
}

func (t *fakeOrderTx) DecrementStock(_ context.Context, productID int64, quantity int) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	p, ok := t.store.products[productID]
	if !ok || p.StockQuantity-t.decrements[productID] < quantity {
		return model.ErrInsufficientStock
	}
	t.decrements[productID] += quantity
	return nil
}

func (t *fakeOrderTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for id, qty := range t.decrements {
		p := t.store.products[id]
		p.StockQuantity -= qty
		t.store.products[id] = p
	}
	if t.order != nil {
		t.store.orders[t.order.ID] = *t.order
	}
}

func (t *fakeOrderTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[int64]model.Profile
	reads    int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[int64]model.Profile{}}
}

func (f *fakeProfileStore) FindByUserID(_ context.Context, userID int64) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	p, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, model.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) Upsert(_ context.Context, userID int64, req model.UpdateProfileRequest) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.profiles[userID]
	if !ok {
		p = model.Profile{UserID: userID, CreatedAt: time.Now().UTC()}
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Bio != nil {
		p.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		p.AvatarURL = *req.AvatarURL
	}
	p.UpdatedAt = time.Now().UTC()
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeProfileStore) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (f *fakeAuditStore) Log(_ context.Context, entry model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) Query(_ context.Context, q model.AuditQuery) ([]model.AuditEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.AuditEntry, 0)
	for _, e := range f.entries {
		if q.UserID > 0 && (e.UserID == nil || *e.UserID != q.UserID) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeAuditStore) snapshot() []model.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.entries)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
