package repository

import "context"

type InventoryRepository interface {
	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 無条件に減算（マイナスになり得る）
	DecreaseStock(ctx context.Context, productID int64, qty int64) error
}
