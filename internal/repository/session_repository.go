package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
)

var ErrSessionNotFound = errors.New("session not found")

// セッションの保存・取得・削除
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// 期限切れを掃除して件数を返す
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
