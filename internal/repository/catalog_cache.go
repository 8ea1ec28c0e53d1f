package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 商品一覧のキャッシュ。ミス時は (nil, false, nil)
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]model.Product, bool, error)
	// Invalidateのたびに進む世代番号
	Generation(ctx context.Context) (int64, error)
	// genはDBを読む前に取った世代。その後Invalidateされていたら保存しない
	SetProducts(ctx context.Context, products []model.Product, gen int64) error
	Invalidate(ctx context.Context) error
}
