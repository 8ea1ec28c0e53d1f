package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, st *memory.Store, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, st *memory.Store, name string, price string, qty int64) model.Product {
	t.Helper()
	p, err := st.Products().Create(context.Background(), model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		OwnerID:  1,
	})
	require.NoError(t, err)
	return p
}

func stockOf(t *testing.T, st *memory.Store, productID int64) int64 {
	t.Helper()
	p, err := st.Products().FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func cartLen(t *testing.T, st *memory.Store, userID int64) int {
	t.Helper()
	items, err := st.CartItems().ListByUserID(context.Background(), userID)
	require.NoError(t, err)
	return len(items)
}

// 世代付きのメモリ版カタログキャッシュ
type memCatalogCache struct {
	mu    sync.Mutex
	items []model.Product
	ok    bool
	gen   int64
}

func (c *memCatalogCache) GetProducts(ctx context.Context) ([]model.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok {
		return nil, false, nil
	}
	return append([]model.Product(nil), c.items...), true, nil
}

func (c *memCatalogCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memCatalogCache) SetProducts(ctx context.Context, products []model.Product, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.items = append([]model.Product(nil), products...)
	c.ok = true
	return nil
}

func (c *memCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
	c.ok = false
	return nil
}
