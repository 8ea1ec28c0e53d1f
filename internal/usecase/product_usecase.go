package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
	tx          repo.TransactionManager
	cache       repo.CatalogCache
	images      repo.ImageStorage
	log         zerolog.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	tx repo.TransactionManager,
	cache repo.CatalogCache,
	images repo.ImageStorage,
	log zerolog.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		tx:          tx,
		cache:       cache,
		images:      images,
		log:         log,
	}
}

// products.price は NUMERIC(12,2)
var maxPrice = decimal.RequireFromString("9999999999.99")

// フォームの入力
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Quantity    int64
	Description *string
}

// アップロードされた画像。無ければnil
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return validationf("name required")
	}
	if len(in.Name) > 255 {
		return validationf("name too long")
	}
	if in.Price.IsNegative() {
		return validationf("price must be >= 0")
	}
	if in.Price.Round(2).GreaterThan(maxPrice) {
		return validationf("price must be <= %s", maxPrice.StringFixed(2))
	}
	if in.Quantity < 0 {
		return validationf("quantity must be >= 0")
	}
	return nil
}

// キャッシュが壊れていてもDBから返す
func (u *ProductUsecase) List(ctx context.Context) ([]model.Product, error) {
	if items, ok, err := u.cache.GetProducts(ctx); err != nil {
		u.log.Warn().Err(err).Msg("catalog cache get failed")
	} else if ok {
		return items, nil
	}

	// DBを読む前の世代。読んでいる間にInvalidateされたら古い一覧は保存されない
	gen, genErr := u.cache.Generation(ctx)
	if genErr != nil {
		u.log.Warn().Err(genErr).Msg("catalog cache generation failed")
	}

	items, err := u.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if genErr == nil {
		if err := u.cache.SetProducts(ctx, items, gen); err != nil {
			u.log.Warn().Err(err).Msg("catalog cache set failed")
		}
	}
	return items, nil
}

func (u *ProductUsecase) Get(ctx context.Context, productID int64) (model.Product, error) {
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, ErrNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product %d: %w", productID, err)
	}
	return p, nil
}

func (u *ProductUsecase) Create(ctx context.Context, actor *model.User, in ProductInput, img *ImageUpload) (model.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Product{}, err
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	imagePath, err := u.saveImage(ctx, img)
	if err != nil {
		return model.Product{}, err
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		ImagePath:   imagePath,
		Description: normalizeDescription(in.Description),
		OwnerID:     actor.ID,
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}

	u.invalidate(ctx)
	return p, nil
}

// 画像がnilなら今の画像を残す
func (u *ProductUsecase) Update(ctx context.Context, actor *model.User, productID int64, in ProductInput, img *ImageUpload) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}

	if _, err := u.Get(ctx, productID); err != nil {
		return err
	}

	imagePath, err := u.saveImage(ctx, img)
	if err != nil {
		return err
	}

	err = u.productRepo.Update(ctx, model.Product{
		ID:          productID,
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		ImagePath:   imagePath,
		Description: normalizeDescription(in.Description),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", productID, err)
	}

	u.invalidate(ctx)
	return nil
}

// カート明細も同じトランザクションで消す。注文明細は履歴として残る
func (u *ProductUsecase) Delete(ctx context.Context, actor *model.User, productID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.CartItems().DeleteByProductID(ctx, productID); err != nil {
			return fmt.Errorf("delete cart items: %w", err)
		}
		if err := r.Products().Delete(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("delete product %d: %w", productID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.invalidate(ctx)
	return nil
}

func (u *ProductUsecase) saveImage(ctx context.Context, img *ImageUpload) (*string, error) {
	if img == nil || img.Body == nil || img.Filename == "" {
		return nil, nil
	}
	path, err := u.images.Save(ctx, img.Filename, img.ContentType, img.Body)
	if errors.Is(err, repo.ErrInvalidImage) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}
	return &path, nil
}

func (u *ProductUsecase) invalidate(ctx context.Context) {
	if err := u.cache.Invalidate(ctx); err != nil {
		u.log.Warn().Err(err).Msg("catalog cache invalidate failed")
	}
}

func requireAdmin(actor *model.User) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	s := strings.TrimSpace(*d)
	if s == "" {
		return nil
	}
	return &s
}
