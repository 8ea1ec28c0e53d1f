package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TEST_DATABASE_URL が無ければskip
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	gdb, err := db.Connect(config.Config{DatabaseURL: url, GoEnv: "test"})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, gdb))
	require.NoError(t, gdb.Exec("TRUNCATE order_items, orders, cart_items, sessions, products, users RESTART IDENTITY CASCADE").Error)
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, PasswordHash: "x", Role: model.RoleCustomer, CreatedAt: time.Now()}
	require.NoError(t, infraRepo.NewUserGormRepository(gdb).Create(context.Background(), u))
	return u
}

func createProduct(t *testing.T, gdb *gorm.DB, owner int64, name string, price string, qty int64) model.Product {
	t.Helper()
	p, err := infraRepo.NewProductGormRepository(gdb).Create(context.Background(), model.Product{
		Name: name, Price: decimal.RequireFromString(price), Quantity: qty, OwnerID: owner,
	})
	require.NoError(t, err)
	return p
}

func TestUserGorm(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	users := infraRepo.NewUserGormRepository(gdb)

	u := createUser(t, gdb, "alice")
	assert.NotZero(t, u.ID)

	err := users.Create(ctx, &model.User{Username: "alice", PasswordHash: "y", Role: model.RoleCustomer})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	got, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)
}

func TestSessionGorm(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	sessions := infraRepo.NewSessionGormRepository(gdb)
	u := createUser(t, gdb, "alice")

	now := time.Now()
	require.NoError(t, sessions.Create(ctx, &model.Session{UserID: u.ID, TokenHash: hash64("a"), ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, sessions.Create(ctx, &model.Session{UserID: u.ID, TokenHash: hash64("b"), ExpiresAt: now.Add(-time.Minute)}))

	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = sessions.FindByTokenHash(ctx, hash64("b"))
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)

	s, err := sessions.FindByTokenHash(ctx, hash64("a"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)

	require.NoError(t, sessions.DeleteByTokenHash(ctx, hash64("a")))
	_, err = sessions.FindByTokenHash(ctx, hash64("a"))
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func hash64(c string) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c[0]
	}
	return string(b)
}

func TestProductAndCartGorm(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	products := infraRepo.NewProductGormRepository(gdb)
	carts := infraRepo.NewCartItemGormRepository(gdb)
	u := createUser(t, gdb, "alice")
	p := createProduct(t, gdb, u.ID, "Tea", "3.50", 5)

	img := "images/tea.png"
	p.Name = "Green tea"
	p.ImagePath = &img
	require.NoError(t, products.Update(ctx, p))

	// nilなら画像は据え置き
	p.ImagePath = nil
	p.Quantity = 7
	require.NoError(t, products.Update(ctx, p))

	got, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green tea", got.Name)
	assert.Equal(t, int64(7), got.Quantity)
	require.NotNil(t, got.ImagePath)
	assert.Equal(t, img, *got.ImagePath)
	assert.True(t, decimal.RequireFromString("3.5").Equal(got.Price))

	require.NoError(t, carts.UpsertAdd(ctx, u.ID, p.ID, 1))
	require.NoError(t, carts.UpsertAdd(ctx, u.ID, p.ID, 2))
	items, err := carts.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Quantity)

	require.NoError(t, carts.DeleteByProductID(ctx, p.ID))
	require.NoError(t, products.Delete(ctx, p.ID))
	_, err = products.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, products.Update(ctx, p), repo.ErrNotFound)
}

func TestTxManagerGorm_Rollback(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	u := createUser(t, gdb, "alice")
	p := createProduct(t, gdb, u.ID, "Tea", "3.50", 2)
	tx := infraRepo.NewTxManagerGorm(gdb)

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := infraRepo.NewProductGormRepository(gdb).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Quantity)

	err = tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestCheckoutGorm_LastUnitSoldOnce(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	owner := createUser(t, gdb, "root")
	p := createProduct(t, gdb, owner.ID, "Last", "9.99", 1)

	carts := infraRepo.NewCartItemGormRepository(gdb)
	buyers := make([]*model.User, 4)
	for i := range buyers {
		buyers[i] = createUser(t, gdb, "buyer"+string(rune('a'+i)))
		require.NoError(t, carts.UpsertAdd(ctx, buyers[i].ID, p.ID, 1))
	}

	uc := usecase.NewOrderUsecase(infraRepo.NewTxManagerGorm(gdb), infraRepo.NewOrderGormRepository(gdb), true)

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, userID int64) {
			defer wg.Done()
			_, errs[i] = uc.PlaceOrder(ctx, userID)
		}(i, b.ID)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		_, ok := usecase.AsOversold(err)
		assert.True(t, ok, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, placed)

	got, err := infraRepo.NewProductGormRepository(gdb).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Quantity)
}

func TestCartGorm_CheckoutDeletesOnlyLinesRead(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	u := createUser(t, gdb, "alice")
	a := createProduct(t, gdb, u.ID, "A", "1.00", 5)
	b := createProduct(t, gdb, u.ID, "B", "1.00", 5)
	carts := infraRepo.NewCartItemGormRepository(gdb)
	require.NoError(t, carts.UpsertAdd(ctx, u.ID, a.ID, 1))

	err := gdb.Transaction(func(tx *gorm.DB) error {
		inTx := infraRepo.NewCartItemGormRepository(tx)
		items, err := inTx.ListByUserIDForUpdate(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)

		// 別接続で新しい商品の明細がコミットされる
		require.NoError(t, carts.UpsertAdd(ctx, u.ID, b.ID, 2))

		return inTx.DeleteByIDs(ctx, u.ID, []int64{items[0].ID})
	})
	require.NoError(t, err)

	left, err := carts.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ProductID)
	assert.Equal(t, int64(2), left[0].Quantity)
}

func TestCheckoutGorm_KeepsLineAddedDuringCheckout(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	u := createUser(t, gdb, "alice")
	a := createProduct(t, gdb, u.ID, "A", "1.00", 5)
	b := createProduct(t, gdb, u.ID, "B", "1.00", 5)
	carts := infraRepo.NewCartItemGormRepository(gdb)
	require.NoError(t, carts.UpsertAdd(ctx, u.ID, a.ID, 1))

	// 明細を読んだあとに別接続の追加がコミットされる
	tm := addAfterReadTx{db: gdb, other: carts, userID: u.ID, productID: b.ID}
	uc := usecase.NewOrderUsecase(tm, infraRepo.NewOrderGormRepository(gdb), true)
	o, err := uc.PlaceOrder(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)

	left, err := carts.ListByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ProductID)
}

type addAfterReadTx struct {
	db        *gorm.DB
	other     repo.CartItemRepository
	userID    int64
	productID int64
}

func (tm addAfterReadTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return infraRepo.NewTxManagerGorm(tm.db).WithinTx(ctx, func(r repo.TxRepos) error {
		return fn(addAfterReadRepos{TxRepos: r, tm: tm})
	})
}

type addAfterReadRepos struct {
	repo.TxRepos
	tm addAfterReadTx
}

func (r addAfterReadRepos) CartItems() repo.CartItemRepository {
	return addAfterReadCart{CartItemRepository: r.TxRepos.CartItems(), tm: r.tm}
}

type addAfterReadCart struct {
	repo.CartItemRepository
	tm addAfterReadTx
}

func (c addAfterReadCart) ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error) {
	items, err := c.CartItemRepository.ListByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return items, c.tm.other.UpsertAdd(ctx, c.tm.userID, c.tm.productID, 1)
}
