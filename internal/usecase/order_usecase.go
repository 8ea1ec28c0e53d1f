package usecase

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/rs/zerolog"
)

// 注文確定の結果を外へ通知する（メトリクス）
type CheckoutObserver interface {
	OrderPlaced(lines int)
	CheckoutFailed(reason string)
}

type nopObserver struct{}

func (nopObserver) OrderPlaced(int)       {}
func (nopObserver) CheckoutFailed(string) {}

type OrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	clock  Clock
	log    zerolog.Logger
	obs    CheckoutObserver
	// 在庫が変わるので確定後に捨てる
	catalog repo.CatalogCache

	// falseなら在庫を無条件に減算する（マイナスになり得る）
	strictStock bool
}

type OrderOption func(*OrderUsecase)

func WithCheckoutObserver(o CheckoutObserver) OrderOption {
	return func(u *OrderUsecase) {
		if o != nil {
			u.obs = o
		}
	}
}

func WithCatalogCache(c repo.CatalogCache) OrderOption {
	return func(u *OrderUsecase) { u.catalog = c }
}

func WithLogger(l zerolog.Logger) OrderOption {
	return func(u *OrderUsecase) { u.log = l }
}

func WithClock(c Clock) OrderOption {
	return func(u *OrderUsecase) { u.clock = c }
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, strictStock bool, opts ...OrderOption) *OrderUsecase {
	u := &OrderUsecase{
		tx:          tx,
		orders:      orders,
		clock:       SystemClock{},
		log:         zerolog.Nop(),
		obs:         nopObserver{},
		strictStock: strictStock,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// PlaceOrder はカートを注文に変える。全部コミットされるか何も残らないかのどちらか
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, ErrUnauthorized
	}

	var out model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//明細を行ロック。product_id昇順なので在庫の行ロック順も揃う
		cartItems, err := r.CartItems().ListByUserIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("list cart items: %w", err)
		}
		if len(cartItems) == 0 {
			return ErrEmptyCart
		}

		now := u.clock.Now()
		order := model.Order{
			UserID:    userID,
			Status:    model.OrderStatusProcessing,
			CreatedAt: now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order.ID = orderID

		items := make([]model.OrderItem, 0, len(cartItems))
		var oversold []OversoldLine

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("product %d: %w", ci.ProductID, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("find product %d: %w", ci.ProductID, err)
			}

			//価格は確定時点のもの
			items = append(items, model.OrderItem{
				ProductID: ci.ProductID,
				Quantity:  ci.Quantity,
				Price:     p.Price,
			})

			if !u.strictStock {
				if err := r.Inventory().DecreaseStock(ctx, ci.ProductID, ci.Quantity); err != nil {
					return fmt.Errorf("decrease stock %d: %w", ci.ProductID, err)
				}
				continue
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return fmt.Errorf("decrease stock %d: %w", ci.ProductID, err)
			}
			if !ok {
				available := p.Quantity
				//他の注文が先に減らしていることがあるので読み直す
				if cur, err := r.Products().FindByID(ctx, ci.ProductID); err == nil {
					available = cur.Quantity
				}
				oversold = append(oversold, OversoldLine{
					ProductID: ci.ProductID,
					Name:      p.Name,
					Requested: ci.Quantity,
					Available: available,
				})
			}
		}

		if len(oversold) > 0 {
			return &OversoldError{Lines: oversold}
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		//読んだ明細だけ消す。確定中に追加された明細はカートに残る
		lineIDs := make([]int64, 0, len(cartItems))
		for _, ci := range cartItems {
			lineIDs = append(lineIDs, ci.ID)
		}
		if err := r.CartItems().DeleteByIDs(ctx, userID, lineIDs); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		order.Items = items
		out = order
		return nil
	})

	if err != nil {
		u.observeFailure(userID, err)
		return model.Order{}, err
	}

	if u.catalog != nil {
		if err := u.catalog.Invalidate(ctx); err != nil {
			u.log.Warn().Err(err).Msg("catalog cache invalidate failed")
		}
	}

	u.obs.OrderPlaced(len(out.Items))
	u.log.Info().
		Int64("user_id", userID).
		Int64("order_id", out.ID).
		Int("lines", len(out.Items)).
		Str("total", out.TotalPrice().StringFixed(2)).
		Msg("order placed")
	return out, nil
}

func (u *OrderUsecase) observeFailure(userID int64, err error) {
	if oe, ok := AsOversold(err); ok {
		u.obs.CheckoutFailed("oversold")
		u.log.Warn().
			Int64("user_id", userID).
			Interface("lines", oe.Lines).
			Msg("checkout rejected")
		return
	}
	switch {
	case errors.Is(err, ErrEmptyCart):
		u.obs.CheckoutFailed("empty_cart")
	case errors.Is(err, ErrNotFound):
		u.obs.CheckoutFailed("product_missing")
	default:
		u.obs.CheckoutFailed("error")
	}
}

// ListOrders は新しい順。合計は明細から計算する
func (u *OrderUsecase) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
