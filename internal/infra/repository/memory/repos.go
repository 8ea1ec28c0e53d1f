package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type userRepo struct {
	s      *Store
	locked bool
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.s.run(r.locked, func(st *state) error {
		for _, u := range st.users {
			if u.Username == user.Username {
				return fmt.Errorf("username %q: %w", user.Username, repo.ErrDuplicate)
			}
		}
		user.ID = st.nextID()
		if user.CreatedAt.IsZero() {
			user.CreatedAt = r.s.now()
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var out *model.User
	err := r.s.run(r.locked, func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return repo.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var out *model.User
	err := r.s.run(r.locked, func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found := u
				out = &found
				return nil
			}
		}
		return repo.ErrUserNotFound
	})
	return out, err
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := r.s.run(r.locked, func(st *state) error {
		out = make([]model.User, 0, len(st.users))
		for _, u := range st.users {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

type sessionRepo struct {
	s      *Store
	locked bool
}

func (r *sessionRepo) Create(ctx context.Context, sess *model.Session) error {
	return r.s.run(r.locked, func(st *state) error {
		if _, ok := st.sessions[sess.TokenHash]; ok {
			return repo.ErrDuplicate
		}
		sess.ID = st.nextID()
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = r.s.now()
		}
		st.sessions[sess.TokenHash] = *sess
		return nil
	})
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var out *model.Session
	err := r.s.run(r.locked, func(st *state) error {
		sess, ok := st.sessions[tokenHash]
		if !ok {
			return repo.ErrSessionNotFound
		}
		out = &sess
		return nil
	})
	return out, err
}

func (r *sessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return r.s.run(r.locked, func(st *state) error {
		delete(st.sessions, tokenHash)
		return nil
	})
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.run(r.locked, func(st *state) error {
		for k, sess := range st.sessions {
			if sess.Expired(now) {
				delete(st.sessions, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type productRepo struct {
	s      *Store
	locked bool
}

func (r *productRepo) List(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := r.s.run(r.locked, func(st *state) error {
		out = make([]model.Product, 0, len(st.products))
		for _, p := range st.products {
			out = append(out, p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var out model.Product
	err := r.s.run(r.locked, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	err := r.s.run(r.locked, func(st *state) error {
		p.ID = st.nextID()
		now := r.s.now()
		p.CreatedAt = now
		p.UpdatedAt = now
		st.products[p.ID] = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	return r.s.run(r.locked, func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return repo.ErrNotFound
		}
		cur.Name = p.Name
		cur.Description = p.Description
		cur.Price = p.Price
		cur.Quantity = p.Quantity
		if p.ImagePath != nil {
			cur.ImagePath = p.ImagePath
		}
		cur.UpdatedAt = r.s.now()
		st.products[p.ID] = cur
		return nil
	})
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.s.run(r.locked, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return repo.ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

type cartItemRepo struct {
	s      *Store
	locked bool
}

func (r *cartItemRepo) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	err := r.s.run(r.locked, func(st *state) error {
		out = make([]model.CartItem, 0)
		for k, it := range st.cartItems {
			if k.userID == userID {
				out = append(out, it)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
		return nil
	})
	return out, err
}

// Store全体がロックされているので通常の一覧と同じ
func (r *cartItemRepo) ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return r.ListByUserID(ctx, userID)
}

func (r *cartItemRepo) UpsertAdd(ctx context.Context, userID int64, productID int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	return r.s.run(r.locked, func(st *state) error {
		key := cartKey{userID: userID, productID: productID}
		now := r.s.now()
		if it, ok := st.cartItems[key]; ok {
			it.Quantity += addQty
			it.UpdatedAt = now
			st.cartItems[key] = it
			return nil
		}
		st.cartItems[key] = model.CartItem{
			ID:        st.nextID(),
			UserID:    userID,
			ProductID: productID,
			Quantity:  addQty,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	})
}

func (r *cartItemRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	return r.s.run(r.locked, func(st *state) error {
		for k := range st.cartItems {
			if k.userID == userID {
				delete(st.cartItems, k)
			}
		}
		return nil
	})
}

func (r *cartItemRepo) DeleteByIDs(ctx context.Context, userID int64, ids []int64) error {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return r.s.run(r.locked, func(st *state) error {
		for k, it := range st.cartItems {
			if k.userID == userID && want[it.ID] {
				delete(st.cartItems, k)
			}
		}
		return nil
	})
}

func (r *cartItemRepo) DeleteByProductID(ctx context.Context, productID int64) error {
	return r.s.run(r.locked, func(st *state) error {
		for k := range st.cartItems {
			if k.productID == productID {
				delete(st.cartItems, k)
			}
		}
		return nil
	})
}

type orderRepo struct {
	s      *Store
	locked bool
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	var out []model.Order
	err := r.s.run(r.locked, func(st *state) error {
		out = make([]model.Order, 0)
		for _, o := range st.orders {
			if o.UserID != userID {
				continue
			}
			o.Items = itemsOf(st, o.ID)
			out = append(out, o)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		return nil
	})
	return out, err
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	var id int64
	err := r.s.run(r.locked, func(st *state) error {
		order.ID = st.nextID()
		order.Items = nil
		st.orders[order.ID] = order
		id = order.ID
		return nil
	})
	return id, err
}

type orderItemRepo struct {
	s      *Store
	locked bool
}

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return r.s.run(r.locked, func(st *state) error {
		if _, ok := st.orders[orderID]; !ok {
			return repo.ErrNotFound
		}
		for i := range items {
			items[i].ID = st.nextID()
			items[i].OrderID = orderID
			st.orderItems[items[i].ID] = items[i]
		}
		return nil
	})
}

func itemsOf(st *state, orderID int64) []model.OrderItem {
	out := make([]model.OrderItem, 0)
	for _, it := range st.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type inventoryRepo struct {
	s      *Store
	locked bool
}

func (r *inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	ok := false
	err := r.s.run(r.locked, func(st *state) error {
		p, found := st.products[productID]
		if !found || p.Quantity < qty {
			return nil
		}
		p.Quantity -= qty
		st.products[productID] = p
		ok = true
		return nil
	})
	return ok, err
}

func (r *inventoryRepo) DecreaseStock(ctx context.Context, productID int64, qty int64) error {
	return r.s.run(r.locked, func(st *state) error {
		p, found := st.products[productID]
		if !found {
			return repo.ErrNotFound
		}
		p.Quantity -= qty
		st.products[productID] = p
		return nil
	})
}
