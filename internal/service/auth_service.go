package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-shop-api/internal/cache"
	"go-shop-api/internal/event"
	"go-shop-api/internal/model"
	"go-shop-api/pkg/apierror"
)

// Cache is the best-effort store services read through and invalidate.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...string) bool
	Exists(ctx context.Context, key string) bool
	Version(ctx context.Context, namespace string) string
	BumpVersion(ctx context.Context, namespace string) bool
}

type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username string, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindIdentity(ctx context.Context, id int64) (model.AuthUser, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type AuthConfig struct {
	JWTSecret     string
	AccessTTL     time.Duration
	RevocationTTL time.Duration
	UserCacheTTL  time.Duration
	BcryptCost    int
}

type AuthService struct {
	users         UserStore
	cache         Cache
	bus           event.Bus
	jwtSecret     []byte
	accessTTL     time.Duration
	revocationTTL time.Duration
	userCacheTTL  time.Duration
	bcryptCost    int
	dummyHash     []byte
	now           func() time.Time
}

const invalidTokenMessage = "invalid or expired token"

func NewAuthService(users UserStore, c Cache, bus event.Bus, cfg AuthConfig) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = 12
	}

	revocationTTL := cfg.RevocationTTL
	if revocationTTL < cfg.AccessTTL {
		revocationTTL = cfg.AccessTTL
	}

	userCacheTTL := cfg.UserCacheTTL
	if userCacheTTL <= 0 {
		userCacheTTL = time.Hour
	}

	// compared against when the email is unknown so both paths cost a bcrypt round
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)

	return &AuthService{
		users:         users,
		cache:         c,
		bus:           bus,
		jwtSecret:     []byte(cfg.JWTSecret),
		accessTTL:     cfg.AccessTTL,
		revocationTTL: revocationTTL,
		userCacheTTL:  userCacheTTL,
		bcryptCost:    cost,
		dummyHash:     dummy,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResult, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("signup: %w", err)
	}
	if exists {
		return model.AuthResult{}, apierror.Conflict("user with this email or username already exists", "")
	}

	hash, err := s.hashPassword(req.Password, "password")
	if err != nil {
		return model.AuthResult{}, err
	}

	user, err := s.users.Create(ctx, model.User{Username: username, Email: email, PasswordHash: string(hash)})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.AuthResult{}, apierror.Conflict("user with this email or username already exists", "")
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("signup: %w", err)
	}

	token, err := s.issueToken(user.Identity())
	if err != nil {
		return model.AuthResult{}, err
	}

	s.cache.Set(ctx, cache.UserKey(user.ID), user.Identity(), s.userCacheTTL)
	s.publish(event.New(event.TypeUserSignedUp, user.ID, cache.UserKey(user.ID), map[string]any{"username": user.Username}))

	return model.AuthResult{User: user.Identity(), Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.publish(event.Failure(event.TypeLoginFailed, 0, "", map[string]any{"reason": "unknown email"}))
		return model.AuthResult{}, apierror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.publish(event.Failure(event.TypeLoginFailed, user.ID, cache.UserKey(user.ID), map[string]any{"reason": "wrong password"}))
		return model.AuthResult{}, apierror.Unauthorized("invalid email or password")
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	token, err := s.issueToken(user.Identity())
	if err != nil {
		return model.AuthResult{}, err
	}

	s.cache.Delete(ctx, cache.DashboardKey(user.ID), cache.ProfileKey(user.ID))
	s.cache.Set(ctx, cache.UserKey(user.ID), user.Identity(), s.userCacheTTL)
	s.publish(event.New(event.TypeUserLoggedIn, user.ID, cache.UserKey(user.ID), nil))

	return model.AuthResult{User: user.Identity(), Token: token}, nil
}

// Logout revokes the presented token for the full revocation window. It
// fails when the revocation cannot be recorded, since the token would
// otherwise stay usable.
func (s *AuthService) Logout(ctx context.Context, user model.AuthUser, token string) error {
	if !s.cache.Set(ctx, cache.BlacklistKey(token), s.now(), s.revocationTTL) {
		return fmt.Errorf("logout: revocation not recorded for user %d", user.ID)
	}

	s.publish(event.New(event.TypeUserLoggedOut, user.ID, cache.UserKey(user.ID), nil))
	return nil
}

// Authenticate admits a raw token or returns an error wrapping the
// rejection reason. Callers must not expose the reason to clients.
func (s *AuthService) Authenticate(ctx context.Context, token string) (model.AuthUser, error) {
	if strings.TrimSpace(token) == "" {
		return model.AuthUser{}, model.ErrNoCredential
	}

	if s.cache.Exists(ctx, cache.BlacklistKey(token)) {
		return model.AuthUser{}, model.ErrTokenRevoked
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return model.AuthUser{}, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.AuthUser{}, fmt.Errorf("%w: bad subject %q", model.ErrTokenInvalid, claims.Subject)
	}

	// an unreadable cutoff admits the token, like an unreachable blacklist
	var cutoff int64
	if s.cache.Get(ctx, cache.RevokedBeforeKey(userID), &cutoff) && claims.IssuedAt != nil && claims.IssuedAt.Unix() < cutoff {
		return model.AuthUser{}, fmt.Errorf("%w: issued before password change", model.ErrTokenRevoked)
	}

	var identity model.AuthUser
	if s.cache.Get(ctx, cache.UserKey(userID), &identity) && identity.ID == userID {
		return identity, nil
	}

	identity, err = s.users.FindIdentity(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AuthUser{}, fmt.Errorf("%w: user %d", model.ErrUnknownSubject, userID)
	}
	if err != nil {
		return model.AuthUser{}, fmt.Errorf("resolve token subject: %w", err)
	}

	s.cache.Set(ctx, cache.UserKey(userID), identity, s.userCacheTTL)
	return identity, nil
}

// ChangePassword replaces the hash and returns a fresh token. Every token
// the user was issued before the change is revoked, not only the one
// presented.
func (s *AuthService) ChangePassword(ctx context.Context, identity model.AuthUser, token string, req model.ChangePasswordRequest) (model.AuthResult, error) {
	user, err := s.users.FindByID(ctx, identity.ID)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("change password: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		s.publish(event.Failure(event.TypePasswordChanged, user.ID, cache.UserKey(user.ID), map[string]any{"reason": "wrong current password"}))
		return model.AuthResult{}, apierror.Unauthorized("current password is incorrect")
	}

	hash, err := s.hashPassword(req.NewPassword, "new_password")
	if err != nil {
		return model.AuthResult{}, err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return model.AuthResult{}, fmt.Errorf("change password: %w", err)
	}

	s.cache.Delete(ctx, cache.UserKey(user.ID), cache.DashboardKey(user.ID))
	if !s.cache.Set(ctx, cache.BlacklistKey(token), s.now(), s.revocationTTL) {
		slog.Warn("previous token not revoked after password change", "user_id", user.ID)
	}
	if !s.cache.Set(ctx, cache.RevokedBeforeKey(user.ID), s.now().Unix(), s.revocationTTL) {
		slog.Warn("older sessions not revoked after password change", "user_id", user.ID)
	}

	fresh, err := s.issueToken(identity)
	if err != nil {
		return model.AuthResult{}, err
	}

	s.publish(event.New(event.TypePasswordChanged, user.ID, cache.UserKey(user.ID), nil))
	return model.AuthResult{User: identity, Token: fresh}, nil
}

func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *AuthService) issueToken(user model.AuthUser) (string, error) {
	now := s.now()
	claims := model.AuthClaims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) hashPassword(password, field string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apierror.Validation("validation failed", apierror.FieldError{Field: field, Message: "must be at most 72 bytes"})
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *AuthService) parseToken(token string) (*model.AuthClaims, error) {
	claims := &model.AuthClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token not valid")
	}
	return claims, nil
}

func (s *AuthService) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// InvalidTokenError is the only rejection clients ever see.
func InvalidTokenError() *apierror.APIError {
	return apierror.Unauthorized(invalidTokenMessage)
}
