package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies password credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type AuthConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

type Auth struct {
	store     repository.Store
	hasher    PasswordHasher
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

var _ core.AuthService = (*Auth)(nil)

func NewAuth(store repository.Store, hasher PasswordHasher, cfg AuthConfig, logger *zap.Logger) *Auth {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{
		store:     store,
		hasher:    hasher,
		secretKey: []byte(cfg.SecretKey),
		tokenTTL:  ttl,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *Auth) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateCredentials(username, email, password); err != nil {
		return nil, "", err
	}

	existingUser, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existingUser != nil {
		return nil, "", core.ErrEmailAlreadyExists
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Balance:      model.DefaultBalance,
	}

	if err := s.store.Users().Save(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *Auth) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", core.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, "", core.ErrInvalidCredentials
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *Auth) Authenticate(ctx context.Context, tokenString string) (string, error) {
	userID, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", &core.Error{Kind: core.KindUnauthorized, Msg: "invalid or expired token", Err: err}
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", core.NewError(core.KindUnauthorized, "token subject no longer exists")
	}
	return user.Email, nil
}

func (s *Auth) ValidateToken(tokenString string) (int64, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secretKey, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, jwt.ErrSignatureInvalid
	}

	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, errors.New("token has no user_id claim")
	}
	return int64(id), nil
}

func (s *Auth) generateToken(userID int64) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}
