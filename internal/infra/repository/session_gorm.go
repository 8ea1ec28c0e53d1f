package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type sessionGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewSessionGormRepository(db *gorm.DB) repo.SessionRepository {
	return &sessionGormRepository{db: db}
}

// セッションを保存
func (r *sessionGormRepository) Create(ctx context.Context, s *model.Session) error {
	//タイムアウトやキャンセルをDB処理に伝える
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return err
	}
	return nil
}

// token_hashで1件検索します。
func (r *sessionGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var s model.Session

	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&s).Error

	if err != nil {
		if isNotFound(err) {
			return nil, repo.ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

// ログアウト。無くてもエラーにしない
func (r *sessionGormRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&model.Session{}).Error
}

// 期限切れのセッションを削除します。
func (r *sessionGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.Session{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
