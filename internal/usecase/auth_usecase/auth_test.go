package auth_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/repository/memory"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
	"storefront/internal/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type shiftedClock struct{ d time.Duration }

func (c shiftedClock) Now() time.Time { return time.Now().Add(c.d) }

type VerifierMock struct{ mock.Mock }

func (m *VerifierMock) Verify(plain string, hashed string) bool {
	return m.Called(plain, hashed).Bool(0)
}

type authFixture struct {
	st       *memory.Store
	register *auth.RegisterUserUsecase
	login    *auth.LoginUsecase
	sessions *auth.SessionUsecase
	signer   *auth.CookieSigner
}

func newAuthFixture(t *testing.T, allowAdmin bool) authFixture {
	t.Helper()
	st := memory.NewStore()
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	v := validator.NewAuthValidator()
	signer := auth.NewCookieSigner("test-secret")

	login, err := auth.NewLoginUsecase(st.Users(), st.Sessions(), v, hasher, auth.NewBcryptPasswordVerifier(), signer, auth.SystemClock{}, time.Hour)
	require.NoError(t, err)

	return authFixture{
		st:       st,
		register: auth.NewRegisterUserUsecase(st.Users(), v, hasher, auth.SystemClock{}, allowAdmin),
		login:    login,
		sessions: auth.NewSessionUsecase(st.Users(), st.Sessions(), signer, auth.SystemClock{}),
		signer:   signer,
	}
}

// =====================
// Register
// =====================

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t, false)

	out, err := f.register.Execute(context.Background(), auth.RegisterUserInput{Username: " alice ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", out.User.Username)
	assert.Equal(t, model.RoleCustomer, out.User.Role)
	assert.NotEqual(t, "password1", out.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out.User.PasswordHash), []byte("password1")))
}

func TestRegister_UsernameTaken(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	_, err := f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	_, err = f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password2"})
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t, false)

	_, err := f.register.Execute(context.Background(), auth.RegisterUserInput{Username: "al", Password: "password1"})
	assert.ErrorIs(t, err, usecase.ErrValidation)

	_, err = f.register.Execute(context.Background(), auth.RegisterUserInput{Username: "alice", Password: "short"})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestRegister_AdminRole(t *testing.T) {
	ctx := context.Background()

	closed := newAuthFixture(t, false)
	out, err := closed.register.Execute(ctx, auth.RegisterUserInput{Username: "mallory", Password: "password1", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, out.User.Role)

	open := newAuthFixture(t, true)
	out, err = open.register.Execute(ctx, auth.RegisterUserInput{Username: "root", Password: "password1", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, out.User.Role)
}

// =====================
// Login / Session
// =====================

func TestLogin_AndResolve(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	out, err := f.login.Execute(ctx, auth.LoginInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Cookie)
	assert.WithinDuration(t, time.Now().Add(time.Hour), out.ExpiresAt, time.Minute)

	user, err := f.sessions.Resolve(ctx, out.Cookie)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	_, err = f.login.Execute(ctx, auth.LoginInput{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = f.login.Execute(ctx, auth.LoginInput{Username: "nobody", Password: "password1"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = f.login.Execute(ctx, auth.LoginInput{Username: "", Password: ""})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthenticate_MissingUserStillCompares(t *testing.T) {
	st := memory.NewStore()
	v := new(VerifierMock)
	login, err := auth.NewLoginUsecase(st.Users(), st.Sessions(), validator.NewAuthValidator(),
		auth.NewBcryptPasswordHasher(bcrypt.MinCost), v, auth.NewCookieSigner("s"), auth.SystemClock{}, time.Hour)
	require.NoError(t, err)

	v.On("Verify", "password1", mock.AnythingOfType("string")).Return(false).Once()

	_, err = login.Authenticate(context.Background(), "ghost", "password1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	v.AssertExpectations(t)
}

func TestResolve_Rejects(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)
	out, err := f.login.Execute(ctx, auth.LoginInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := f.sessions.Resolve(ctx, "")
		assert.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := f.sessions.Resolve(ctx, out.Cookie+"x")
		assert.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("other secret", func(t *testing.T) {
		forged, err := auth.NewCookieSigner("other").Sign("whatever", time.Now().Add(time.Hour))
		require.NoError(t, err)
		_, err = f.sessions.Resolve(ctx, forged)
		assert.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("unknown session", func(t *testing.T) {
		c, err := f.signer.Sign("never-issued", time.Now().Add(time.Hour))
		require.NoError(t, err)
		_, err = f.sessions.Resolve(ctx, c)
		assert.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("expired row", func(t *testing.T) {
		later := auth.NewSessionUsecase(f.st.Users(), f.st.Sessions(), f.signer, shiftedClock{2 * time.Hour})
		_, err := later.Resolve(ctx, out.Cookie)
		assert.ErrorIs(t, err, auth.ErrNoSession)
	})
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)
	out, err := f.login.Execute(ctx, auth.LoginInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, out.Cookie))
	require.NoError(t, f.sessions.Logout(ctx, out.Cookie))
	require.NoError(t, f.sessions.Logout(ctx, "garbage"))

	_, err = f.sessions.Resolve(ctx, out.Cookie)
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestPurgeExpired(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, auth.RegisterUserInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)
	_, err = f.login.Execute(ctx, auth.LoginInput{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	n, err := f.sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	later := auth.NewSessionUsecase(f.st.Users(), f.st.Sessions(), f.signer, shiftedClock{2 * time.Hour})
	n, err = later.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// =====================
// CookieSigner
// =====================

func TestCookieSigner(t *testing.T) {
	s := auth.NewCookieSigner("secret")

	v, err := s.Sign("sid-1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	sid, err := s.Parse(v)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)

	expired, err := s.Sign("sid-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = s.Parse(expired)
	assert.ErrorIs(t, err, auth.ErrInvalidCookie)

	// alg=noneは受け付けない
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sid": "sid-1",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(none)
	assert.ErrorIs(t, err, auth.ErrInvalidCookie)
}
