// Package memory はDBを使わないリポジトリ実装。
// テストとSTORE=memoryでの起動に使う。
package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type cartKey struct {
	userID    int64
	productID int64
}

type state struct {
	seq int64

	users      map[int64]model.User
	sessions   map[string]model.Session
	products   map[int64]model.Product
	cartItems  map[cartKey]model.CartItem
	orders     map[int64]model.Order
	orderItems map[int64]model.OrderItem
}

func newState() *state {
	return &state{
		users:      map[int64]model.User{},
		sessions:   map[string]model.Session{},
		products:   map[int64]model.Product{},
		cartItems:  map[cartKey]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64]model.OrderItem{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// rollback用のコピー
func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = v
	}
	return c
}

// Store は全テーブルを1つのmutexで守る。
// WithinTx中はロックを握ったままなので、トランザクションは直列に実行される
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// locked=trueならWithinTxがロック済み
func (s *Store) run(locked bool, fn func(st *state) error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.state)
}

func (s *Store) Users() repo.UserRepository           { return &userRepo{s: s} }
func (s *Store) Sessions() repo.SessionRepository     { return &sessionRepo{s: s} }
func (s *Store) Products() repo.ProductRepository     { return &productRepo{s: s} }
func (s *Store) CartItems() repo.CartItemRepository   { return &cartItemRepo{s: s} }
func (s *Store) Orders() repo.OrderRepository         { return &orderRepo{s: s} }
func (s *Store) OrderItems() repo.OrderItemRepository { return &orderItemRepo{s: s} }
func (s *Store) Inventory() repo.InventoryRepository  { return &inventoryRepo{s: s} }

type txRepos struct {
	s *Store
}

func (r txRepos) Orders() repo.OrderRepository         { return &orderRepo{s: r.s, locked: true} }
func (r txRepos) OrderItems() repo.OrderItemRepository { return &orderItemRepo{s: r.s, locked: true} }
func (r txRepos) CartItems() repo.CartItemRepository   { return &cartItemRepo{s: r.s, locked: true} }
func (r txRepos) Inventory() repo.InventoryRepository  { return &inventoryRepo{s: r.s, locked: true} }
func (r txRepos) Products() repo.ProductRepository     { return &productRepo{s: r.s, locked: true} }

// fnがerrorを返すかpanicしたらスナップショットに戻す
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	return fn(txRepos{s: s})
}

var _ repo.TransactionManager = (*Store)(nil)
