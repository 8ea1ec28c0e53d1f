package auth

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

// cookieが無い、期限切れ、ユーザーが消えた
var ErrNoSession = errors.New("no valid session")

type SessionUsecase struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	signer      *CookieSigner
	clock       Clock
}

func NewSessionUsecase(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	signer *CookieSigner,
	clock Clock,
) *SessionUsecase {
	return &SessionUsecase{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		signer:      signer,
		clock:       clock,
	}
}

// Resolveはcookieの値から生きているセッションのユーザーを返す
func (u *SessionUsecase) Resolve(ctx context.Context, cookie string) (*model.User, error) {
	if cookie == "" {
		return nil, ErrNoSession
	}
	plain, err := u.signer.Parse(cookie)
	if err != nil {
		return nil, ErrNoSession
	}

	sess, err := u.sessionRepo.FindByTokenHash(ctx, hashToken(plain))
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess.Expired(u.clock.Now()) {
		return nil, ErrNoSession
	}

	user, err := u.userRepo.FindByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// 何度呼んでもエラーにしない。署名が壊れたcookieも無視する
func (u *SessionUsecase) Logout(ctx context.Context, cookie string) error {
	if cookie == "" {
		return nil
	}
	plain, err := u.signer.Parse(cookie)
	if err != nil {
		return nil
	}
	if err := u.sessionRepo.DeleteByTokenHash(ctx, hashToken(plain)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// 期限切れのセッションを消す
func (u *SessionUsecase) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := u.sessionRepo.DeleteExpired(ctx, u.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
