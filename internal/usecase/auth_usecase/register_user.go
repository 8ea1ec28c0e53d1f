package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 会員登録の入力。Roleは空ならcustomer
type RegisterUserInput struct {
	Username string
	Password string
	Role     string
}

// 会員登録の出力
type RegisterUserOutput struct {
	User model.User
}

// ユーザー名が使用済み
var ErrUsernameTaken = errors.New("username already taken")

// 入力チェックの約束（validatorパッケージが実装）
type CredentialValidator interface {
	ValidateRegister(username string, password string) error
	ValidateLogin(username string, password string) error
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	userRepo   repository.UserRepository
	validator  CredentialValidator
	hasher     PasswordHasher
	clock      Clock
	allowAdmin bool
}

// DI。allowAdminがfalseならadmin希望でもcustomerで作る
func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	validator CredentialValidator,
	hasher PasswordHasher,
	clock Clock,
	allowAdmin bool,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo:   userRepo,
		validator:  validator,
		hasher:     hasher,
		clock:      clock,
		allowAdmin: allowAdmin,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	username := strings.TrimSpace(in.Username)
	if err := u.validator.ValidateRegister(username, in.Password); err != nil {
		return out, err
	}

	// 重複チェック（同時登録はDBの一意制約で弾く）
	existing, err := u.userRepo.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return out, ErrUsernameTaken
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return out, fmt.Errorf("find user: %w", err)
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, fmt.Errorf("hash password: %w", err)
	}

	role := model.ParseRole(strings.ToLower(strings.TrimSpace(in.Role)))
	if role == model.RoleAdmin && !u.allowAdmin {
		role = model.RoleCustomer
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hashed, // ハッシュを保存（平文は保存しない）
		Role:         role,
		CreatedAt:    u.clock.Now(),
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return out, ErrUsernameTaken
		}
		return out, fmt.Errorf("create user: %w", err)
	}

	out.User = *user
	return out, nil
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

// bcryptでハッシュ化
func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

// 平文(plain)をbcryptで比較
func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
