package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/repository"
)

// Common auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active")
	ErrEmailTaken           = errors.New("email already registered")
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// AuthService handles registration, authentication, JWT, and the
// single-device session registry in Redis.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	userRepo *repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, userRepo *repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, userRepo: userRepo}
}

// Register creates a new learner account with a hashed password.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		TargetScore:  req.TargetScore,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a JWT. A login while another device
// holds an active session is rejected; logout (or expiry) frees it.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// generateToken creates a JWT and registers the session in Redis.
func (s *AuthService) generateToken(ctx context.Context, userID int) (string, error) {
	sessionKey := config.CacheKey.UserSessionKey(userID)

	existing, err := s.rdb.Get(ctx, sessionKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("check session: %w", err)
	}
	if existing != "" {
		return "", ErrSessionAlreadyActive
	}

	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := s.rdb.Set(ctx, sessionKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateSession checks that the token's JTI matches the active session.
func (s *AuthService) ValidateSession(ctx context.Context, userID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.New("no active session")
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return errors.New("session invalidated")
	}
	return nil
}

// ResetSession removes a user's login session, allowing a new login.
func (s *AuthService) ResetSession(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID)).Err()
}

// GetUser returns the account for the given ID.
func (s *AuthService) GetUser(ctx context.Context, userID int) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// SetTargetScore updates the learner's goal and returns the fresh account.
func (s *AuthService) SetTargetScore(ctx context.Context, userID, targetScore int) (*model.User, error) {
	if err := s.userRepo.UpdateTargetScore(ctx, userID, targetScore); err != nil {
		return nil, fmt.Errorf("update target score: %w", err)
	}
	return s.userRepo.GetByID(ctx, userID)
}
