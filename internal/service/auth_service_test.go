package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leetcode-tracker/internal/model"
	"leetcode-tracker/internal/repository"
)

func newTestAuthService(t *testing.T, users UserStore) *AuthService {
	t.Helper()

	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	svc, err := NewAuthService(users, NewPasswordHasher(bcrypt.MinCost, 4), issuer)
	require.NoError(t, err)
	return svc
}

// mockUserStore lets a test force store failures the in-memory repository
// never produces.
type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) FindByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) Create(ctx context.Context, u model.User) (model.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUserStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := repository.NewMemoryUserRepository()
	svc := newTestAuthService(t, users)

	registered, err := svc.Register(ctx, "  A@X.com ", "  alice  ", "password1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", registered.Email)
	assert.Equal(t, "alice", registered.Username)
	assert.NotZero(t, registered.ID)
	assert.False(t, registered.CreatedAt.IsZero())
	assert.Empty(t, registered.Token)

	stored, err := users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password1", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password1")))

	result, err := svc.Login(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, model.PublicUser{ID: registered.ID, Email: "a@x.com", Username: "alice"}, result.User)

	identity, err := svc.Verify(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{UserID: registered.ID, Email: "a@x.com"}, identity)

	profile, err := svc.GetProfile(ctx, registered.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.LastLogin, "successful login records last_login")

	_, err = svc.Login(ctx, "A@X.COM", "password1")
	require.NoError(t, err, "login email is case-insensitive")
}

func TestRegisterPreconditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		username string
		password string
		want     error
	}{
		{name: "invalid email", email: "not-an-email", username: "alice", password: "password1", want: model.ErrInvalidEmail},
		{name: "empty email", email: "", username: "alice", password: "password1", want: model.ErrInvalidEmail},
		{name: "email checked before password", email: "bad", username: "", password: "short", want: model.ErrInvalidEmail},
		{name: "missing password", email: "a@x.com", username: "alice", password: "", want: model.ErrWeakPassword},
		{name: "seven characters", email: "a@x.com", username: "alice", password: "passwor", want: model.ErrWeakPassword},
		{name: "password checked before username", email: "a@x.com", username: " ", password: "short", want: model.ErrWeakPassword},
		{name: "too long for bcrypt", email: "a@x.com", username: "alice", password: strings.Repeat("p", MaxPasswordBytes+1), want: model.ErrPasswordTooLong},
		{name: "blank username", email: "a@x.com", username: "   ", password: "password1", want: model.ErrMissingUsername},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestAuthService(t, repository.NewMemoryUserRepository())
			_, err := svc.Register(ctx, tc.email, tc.username, tc.password)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRegisterPasswordBoundary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestAuthService(t, repository.NewMemoryUserRepository())

	_, err := svc.Register(ctx, "seven@x.com", "s", "1234567")
	require.ErrorIs(t, err, model.ErrWeakPassword)

	_, err = svc.Register(ctx, "eight@x.com", "e", "12345678")
	require.NoError(t, err)

	// Length counts characters, not bytes.
	_, err = svc.Register(ctx, "runes@x.com", "r", "pässwörd")
	require.NoError(t, err)
}

func TestRegisterEmailTaken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestAuthService(t, repository.NewMemoryUserRepository())

	_, err := svc.Register(ctx, "a@x.com", "alice", "password1")
	require.NoError(t, err)

	for _, email := range []string{"a@x.com", "A@X.COM", " a@X.com "} {
		_, err := svc.Register(ctx, email, "someone-else", "another-password")
		require.ErrorIs(t, err, model.ErrEmailTaken, email)
	}
}

func TestRegisterEmailTakenAtInsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := new(mockUserStore)
	store.On("ExistsByEmail", ctx, "a@x.com").Return(false, nil)
	store.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
		return u.Email == "a@x.com" && u.Username == "alice" && u.PasswordHash != "password1"
	})).Return(model.User{}, model.ErrEmailTaken)

	svc := newTestAuthService(t, store)
	_, err := svc.Register(ctx, "a@x.com", "alice", "password1")
	require.ErrorIs(t, err, model.ErrEmailTaken)
	store.AssertExpectations(t)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestAuthService(t, repository.NewMemoryUserRepository())

	_, err := svc.Register(ctx, "a@x.com", "alice", "password1")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "password1")
	_, wrongErr := svc.Login(ctx, "a@x.com", "wrong-password")

	require.ErrorIs(t, unknownErr, model.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, model.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginMissingCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestAuthService(t, repository.NewMemoryUserRepository())

	for _, pair := range [][2]string{{"", "password1"}, {"a@x.com", ""}, {"  ", ""}} {
		_, err := svc.Login(ctx, pair[0], pair[1])
		require.ErrorIs(t, err, model.ErrMissingCredentials)
	}
}

func TestLoginSurvivesLastLoginFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{ID: 9, Email: "a@x.com", Username: "alice", PasswordHash: string(hash)}
	store := new(mockUserStore)
	store.On("FindByEmail", ctx, "a@x.com").Return(user, nil)
	store.On("TouchLastLogin", ctx, int64(9), mock.AnythingOfType("time.Time")).Return(errors.New("connection reset"))

	svc := newTestAuthService(t, store)
	result, err := svc.Login(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(9), result.User.ID)
	store.AssertExpectations(t)
}

func TestLoginStoreFailurePropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("connection refused")
	store := new(mockUserStore)
	store.On("FindByEmail", ctx, "a@x.com").Return(model.User{}, boom)

	svc := newTestAuthService(t, store)
	_, err := svc.Login(ctx, "a@x.com", "password1")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestAuthService(t, repository.NewMemoryUserRepository())

	registered, err := svc.Register(ctx, "a@x.com", "alice", "password1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, registered.ID, "", "password2"), model.ErrBadRequest)
	require.ErrorIs(t, svc.ChangePassword(ctx, registered.ID, "password1", "short"), model.ErrWeakPassword)
	require.ErrorIs(t, svc.ChangePassword(ctx, registered.ID, "password1", strings.Repeat("x", 80)), model.ErrPasswordTooLong)
	require.ErrorIs(t, svc.ChangePassword(ctx, registered.ID, "wrong-pass", "password2"), model.ErrInvalidPassword)
	require.ErrorIs(t, svc.ChangePassword(ctx, 999, "password1", "password2"), model.ErrUserNotFound)

	require.NoError(t, svc.ChangePassword(ctx, registered.ID, "password1", "password2"))

	_, err = svc.Login(ctx, "a@x.com", "password1")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@x.com", "password2")
	require.NoError(t, err)
}

func TestLogoutWithoutDenylist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestAuthService(t, repository.NewMemoryUserRepository())
	require.False(t, svc.RevocationEnabled())

	token, err := svc.IssueToken(1, "a@x.com")
	require.NoError(t, err)
	identity, err := svc.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, nil))
	require.NoError(t, svc.Logout(ctx, &identity))

	_, err = svc.Verify(ctx, token)
	require.NoError(t, err, "stateless tokens stay valid until expiry")
}

// countingDenylist records revocations and lookups so a test can assert how
// often the store is consulted.
type countingDenylist struct {
	revoked map[string]time.Time
	lookups int
}

func (d *countingDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	d.revoked[tokenID] = expiresAt
	return nil
}

func (d *countingDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.lookups++
	_, ok := d.revoked[tokenID]
	return ok, nil
}

func TestLogoutRevokesVerifiedIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	denylist := &countingDenylist{revoked: map[string]time.Time{}}

	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	issuer.WithDenylist(denylist)

	svc, err := NewAuthService(repository.NewMemoryUserRepository(), NewPasswordHasher(bcrypt.MinCost, 2), issuer)
	require.NoError(t, err)

	token, err := svc.IssueToken(1, "a@x.com")
	require.NoError(t, err)
	identity, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, 1, denylist.lookups)

	require.NoError(t, svc.Logout(ctx, &identity))
	assert.Equal(t, 1, denylist.lookups, "logout reuses the verified identity")
	assert.Equal(t, identity.ExpiresAt, denylist.revoked[identity.TokenID])

	_, err = svc.Verify(ctx, token)
	require.ErrorIs(t, err, model.ErrTokenRevoked)
}
