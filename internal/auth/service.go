package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// One message for unknown email and wrong password alike.
var errBadCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.Profile, error)
}

type userStore interface {
	Create(ctx context.Context, in users.NewUser) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionStarter interface {
	Start(ctx context.Context, userID uuid.UUID) (string, error)
	Revoke(ctx context.Context, accessID string) error
}

type ServiceParams struct {
	UserRepo       userStore
	SessionManager sessionStarter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	users     userStore
	sessions  sessionStarter
	jwt       config.JWTConfig
	passwords *security.PasswordHasher
	// decoy is verified when the email is unknown so both failure paths
	// cost one Argon2id run.
	decoy string
	now   func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.UserRepo == nil:
		return nil, errors.New("user repository is required")
	case p.SessionManager == nil:
		return nil, errors.New("session manager is required")
	}
	hasher := security.NewPasswordHasher(p.PasswordConfig)
	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}
	return &service{
		users:     p.UserRepo,
		sessions:  p.SessionManager,
		jwt:       p.JWTConfig,
		passwords: hasher,
		decoy:     decoy,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register creates a customer account and signs it in. Accounts created here
// are never admins.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := users.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password does not meet policy").
			WithDetails(map[string]string{"password": err.Error()})
	}

	switch _, err := s.users.FindByEmail(ctx, email); {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.NewUser{Email: email, PasswordHash: hash, Name: name})
	switch {
	case db.IsUniqueViolation(err, ""):
		// Lost a race with a concurrent sign-up for the same address.
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return s.signIn(ctx, user, s.now())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.checkCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	if s.passwords.NeedsRehash(user.PasswordHash) {
		hash, err := s.passwords.Hash(req.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rehash password")
		}
		if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store rehashed password")
		}
		user.PasswordHash = hash
	}
	return s.signIn(ctx, user, now)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Me returns the profile of the signed-in user.
func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.NotFound("user")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.ProfileOf(user), nil
}

func (s *service) signIn(ctx context.Context, user *models.User, now time.Time) (*LoginResponse, error) {
	accessID, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start session")
	}
	token, err := pkgAuth.MintAccessToken(s.jwt, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   enums.RoleFor(user.IsAdmin),
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwt.AccessTokenTTL() / time.Second),
		User:        users.ProfileOf(user),
	}, nil
}

func (s *service) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	email = users.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errBadCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	hash := s.decoy
	switch {
	case err == nil:
		hash = user.PasswordHash
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, verr := s.passwords.Verify(password, hash)
	if verr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, verr, "verify password")
	}
	if !ok || user == nil {
		return nil, errBadCredentials
	}
	return user, nil
}
