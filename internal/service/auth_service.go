package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"leetcode-tracker/internal/model"
)

type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// registration field order is the order the preconditions fail in.
type registration struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,bcryptlen"`
	Username string `validate:"required"`
}

type AuthService struct {
	users    UserStore
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(users UserStore, hasher *PasswordHasher, tokens *TokenIssuer) (*AuthService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token issuer is required", model.ErrConfiguration)
	}
	if hasher == nil {
		hasher = NewPasswordHasher(DefaultBcryptCost, 0)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	}); err != nil {
		return nil, fmt.Errorf("register password validation: %w", err)
	}

	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email string, username string, password string) (model.RegisteredUser, error) {
	in := registration{
		Email:    strings.TrimSpace(email),
		Password: password,
		Username: strings.TrimSpace(username),
	}
	if err := s.validate.Struct(in); err != nil {
		return model.RegisteredUser{}, registrationError(err)
	}

	normalized := normalizeEmail(in.Email)

	exists, err := s.users.ExistsByEmail(ctx, normalized)
	if err != nil {
		return model.RegisteredUser{}, err
	}
	if exists {
		return model.RegisteredUser{}, model.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return model.RegisteredUser{}, err
	}

	// The existence check above is not atomic with the insert; the store's
	// unique constraint settles races and reports model.ErrEmailTaken too.
	created, err := s.users.Create(ctx, model.User{
		Email:        normalized,
		Username:     in.Username,
		PasswordHash: hash,
	})
	if err != nil {
		return model.RegisteredUser{}, err
	}

	slog.Info("user registered", "user_id", created.ID)

	return model.RegisteredUser{
		ID:        created.ID,
		Email:     created.Email,
		Username:  created.Username,
		CreatedAt: created.CreatedAt,
	}, nil
}

func registrationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate registration: %w", err)
	}

	first := verrs[0]
	switch first.StructField() {
	case "Email":
		return model.ErrInvalidEmail
	case "Password":
		if first.Tag() == "bcryptlen" {
			return model.ErrPasswordTooLong
		}
		return model.ErrWeakPassword
	default:
		return model.ErrMissingUsername
	}
}

// Login never tells an unknown email apart from a wrong password.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.LoginResult{}, model.ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.DummyCompare(ctx, password)
		return model.LoginResult{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.LoginResult{}, err
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return model.LoginResult{}, err
	}
	if !ok {
		return model.LoginResult{}, model.ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return model.LoginResult{}, err
	}

	return model.LoginResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) IssueToken(userID int64, email string) (string, error) {
	return s.tokens.Issue(userID, email)
}

func (s *AuthService) Verify(ctx context.Context, token string) (model.Identity, error) {
	return s.tokens.Verify(ctx, token)
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (model.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword string, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return model.ErrBadRequest.WithDetails("currentPassword and newPassword are required")
	}

	if err := s.validate.Var(newPassword, "min=8,bcryptlen"); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "bcryptlen" {
			return model.ErrPasswordTooLong
		}
		return model.ErrWeakPassword
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, currentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	slog.Info("password changed", "user_id", userID)
	return nil
}

// Logout revokes the caller's token when a denylist is configured. An
// anonymous caller has nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, identity *model.Identity) error {
	if identity == nil || !s.tokens.RevocationEnabled() {
		return nil
	}
	return s.tokens.Revoke(ctx, *identity)
}

func (s *AuthService) RevocationEnabled() bool {
	return s.tokens.RevocationEnabled()
}
