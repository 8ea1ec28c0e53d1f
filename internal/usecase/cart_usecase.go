package usecase

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
type CartUsecase struct {
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(cartItemRepo repo.CartItemRepository, productRepo repo.ProductRepository) *CartUsecase {
	return &CartUsecase{
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

type CartLine struct {
	Product  model.Product
	Quantity int64
	Subtotal decimal.Decimal
}

type CartView struct {
	Lines []CartLine
	Total decimal.Decimal
}

func (v CartView) IsEmpty() bool {
	return len(v.Lines) == 0
}

// AddLine はカートに追加（同一商品は数量加算）。
// 在庫チェックは今回の数量だけ。合算後の数量は注文確定時に見る
func (u *CartUsecase) AddLine(ctx context.Context, userID int64, productID int64, qty int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if qty < 1 {
		return validationf("quantity must be >= 1")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find product %d: %w", productID, err)
	}
	if !p.InStock(qty) {
		return ErrInsufficientStock
	}

	if err := u.cartItemRepo.UpsertAdd(ctx, userID, productID, qty); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// List はproduct_id昇順の明細と合計。
func (u *CartUsecase) List(ctx context.Context, userID int64) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}

	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartView{}, fmt.Errorf("list cart items: %w", err)
	}

	view := CartView{Lines: make([]CartLine, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			// 削除済み商品の明細は表示しない
			continue
		}
		if err != nil {
			return CartView{}, fmt.Errorf("find product %d: %w", it.ProductID, err)
		}

		sub := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		view.Lines = append(view.Lines, CartLine{Product: p, Quantity: it.Quantity, Subtotal: sub})
		view.Total = view.Total.Add(sub)
	}
	return view, nil
}

// 何度呼んでも同じ
func (u *CartUsecase) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if err := u.cartItemRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
