package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Username string
	Password string
}

// CookieはSESSION cookieに入れる署名付きの値
type LoginOutput struct {
	User      model.User
	Cookie    string
	ExpiresAt time.Time
}

// ユーザー名またはパスワードが違う（どちらかは区別しない）
var ErrInvalidCredentials = errors.New("invalid credentials")

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginUsecase struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	validator   CredentialValidator
	verifier    PasswordVerifier
	signer      *CookieSigner
	clock       Clock
	sessionTTL  time.Duration
	dummyHash   string
}

// hasherはユーザーがいない時の比較用ハッシュを作るためだけに使う
func NewLoginUsecase(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	validator CredentialValidator,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	signer *CookieSigner,
	clock Clock,
	sessionTTL time.Duration,
) (*LoginUsecase, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &LoginUsecase{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		validator:   validator,
		verifier:    verifier,
		signer:      signer,
		clock:       clock,
		sessionTTL:  sessionTTL,
		dummyHash:   dummy,
	}, nil
}

// Authenticateはパスワードを照合する。
// ユーザーがいない時もbcrypt比較を1回走らせて応答時間をそろえる
func (u *LoginUsecase) Authenticate(ctx context.Context, username string, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if err := u.validator.ValidateLogin(username, password); err != nil {
		u.verifier.Verify(password, u.dummyHash)
		return nil, ErrInvalidCredentials
	}

	user, err := u.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			u.verifier.Verify(password, u.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if ok := u.verifier.Verify(password, user.PasswordHash); !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	var out LoginOutput

	user, err := u.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		return out, err
	}

	plain, err := generateSecureToken(32)
	if err != nil {
		return out, err
	}

	now := u.clock.Now()
	sess := &model.Session{
		UserID:    user.ID,
		TokenHash: hashToken(plain),
		ExpiresAt: now.Add(u.sessionTTL),
		CreatedAt: now,
	}
	if err := u.sessionRepo.Create(ctx, sess); err != nil {
		return out, fmt.Errorf("create session: %w", err)
	}

	cookie, err := u.signer.Sign(plain, sess.ExpiresAt)
	if err != nil {
		return out, fmt.Errorf("sign session: %w", err)
	}

	out.User = *user
	out.Cookie = cookie
	out.ExpiresAt = sess.ExpiresAt
	return out, nil
}

func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", fmt.Errorf("bytesLen must be positive")
	}

	// ランダムなバイト列を作る（OSが持つ安全な乱数）
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DBにはsha256のhexだけ保存する
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
