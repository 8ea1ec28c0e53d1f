package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartItemRepository interface {
	// product_id昇順
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 注文確定用。明細を行ロックして返す
	ListByUserIDForUpdate(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertAdd(ctx context.Context, userID int64, productID int64, addQty int64) error
	DeleteByUserID(ctx context.Context, userID int64) error
	// 注文確定用。指定した明細だけ消す
	DeleteByIDs(ctx context.Context, userID int64, ids []int64) error
	DeleteByProductID(ctx context.Context, productID int64) error
}
