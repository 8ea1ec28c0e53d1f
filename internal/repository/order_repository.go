package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OrderRepository interface {
	// 新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)
}
