// Package service provides the business logic of FitKeeper: accounts and
// sessions, the meal ledger, workout recommendations and the home screen,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/FitKeeper/internal/gate"
	"github.com/atinyakov/FitKeeper/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new user or returns models.ErrUserExists.
	CreateUser(ctx context.Context, u models.User) error
	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, id string) error
	// UserByEmail returns the user or models.ErrNotFound.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateSession records an issued session.
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time) error
	// ActiveSession returns the owner of a live session or models.ErrUnauthorized.
	ActiveSession(ctx context.Context, id string) (*models.User, error)
	// RevokeSession ends a session.
	RevokeSession(ctx context.Context, id string) error
}

// RegisterRequest is the input of a registration.
type RegisterRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	Name     string      `json:"name" validate:"notblank"`
	Weight   float64     `json:"weight" validate:"gt=0"`
	Height   float64     `json:"height" validate:"gt=0"`
	Age      int         `json:"age" validate:"gt=0"`
	Gender   string      `json:"gender" validate:"oneof=Male Female"`
	Goal     models.Goal `json:"goal" validate:"goal"`
}

// sessionClaims are carried by issued tokens. ID is the session id and
// Subject the identity handle.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService is the identity provider: it registers users, issues and
// revokes sessions and resolves tokens to identities.
type AuthService struct {
	// repo performs the data-layer operations.
	repo    AuthRepository
	records RecordStore
	secret  []byte
	ttl     time.Duration
	hub     *IdentityHub
	logger  *zap.Logger
}

// NewAuthService constructs a new AuthService. Tokens are signed with secret
// and live for ttl.
func NewAuthService(repo AuthRepository, records RecordStore, secret string, ttl time.Duration, hub *IdentityHub, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:    repo,
		records: records,
		secret:  []byte(secret),
		ttl:     ttl,
		hub:     hub,
		logger:  logger,
	}
}

// Register validates req, creates the user and its initial record.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{ID: uuid.NewString(), Email: req.Email, PasswordHash: hash}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	rec := &models.UserRecord{
		UserID: u.ID,
		Profile: models.Profile{
			Name:   req.Name,
			Weight: req.Weight,
			Height: req.Height,
			Age:    req.Age,
			Gender: req.Gender,
			Goal:   req.Goal,
		},
		WeightHistory: []float64{req.Weight},
		Exercises:     []models.Exercise{},
		Meals:         []models.Meal{},
	}
	if err := s.records.Create(ctx, rec); err != nil {
		if delErr := s.repo.DeleteUser(ctx, u.ID); delErr != nil {
			s.logger.Error("failed to roll back user", zap.String("uid", u.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.logger.Info("user registered", zap.String("uid", u.ID))
	return &u, nil
}

// SignIn checks the credentials and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		return "", models.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	now := time.Now()
	exp := now.Add(s.ttl)
	sid := uuid.NewString()
	if err := s.repo.CreateSession(ctx, sid, u.ID, exp); err != nil {
		return "", err
	}

	claims := &sessionClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// SignOut revokes the session behind token and tells its subscribers that
// there is no identity anymore. Unknown tokens are ignored.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	if err := s.repo.RevokeSession(ctx, claims.ID); err != nil {
		return err
	}
	s.hub.Publish(claims.ID, nil)
	return nil
}

// Resolve returns the identity behind a live token or models.ErrUnauthorized.
func (s *AuthService) Resolve(ctx context.Context, token string) (*gate.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	u, err := s.repo.ActiveSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if u.ID != claims.Subject {
		return nil, models.ErrUnauthorized
	}
	return &gate.Identity{Handle: u.ID, Email: u.Email}, nil
}

// Stream returns an identity stream bound to token.
func (s *AuthService) Stream(ctx context.Context, token string) gate.IdentityStream {
	sid := ""
	if claims, err := s.parse(token, jwt.WithoutClaimsValidation()); err == nil {
		sid = claims.ID
	}
	return &tokenStream{ctx: ctx, auth: s, token: token, sessionID: sid}
}

func (s *AuthService) parse(token string, opts ...jwt.ParserOption) (*sessionClaims, error) {
	if token == "" {
		return nil, models.ErrUnauthorized
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}
