package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// RoleAdmin 后台令牌角色
const RoleAdmin = "admin"

// Claims 后台 JWT 载荷
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token 登录结果
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService 后台管理员登录与令牌校验
type AuthService interface {
	Login(ctx context.Context, username, password string) (*Token, error)
	ParseToken(raw string) (*Claims, error)
}

type authService struct {
	jwt   config.JWTConfig
	admin config.AdminConfig
	now   func() time.Time
}

func NewAuthService(jwtCfg config.JWTConfig, admin config.AdminConfig) AuthService {
	if jwtCfg.TTL <= 0 {
		jwtCfg.TTL = 12 * time.Hour
	}
	return &authService{jwt: jwtCfg, admin: admin, now: time.Now}
}

// HashPassword 生成管理员密码的 bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *authService) Login(_ context.Context, username, password string) (*Token, error) {
	if s.admin.PasswordHash == "" || username != s.admin.Username {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logger.Warn("admin login rejected", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	now := s.now()
	exp := now.Add(s.jwt.TTL)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.jwt.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwt.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func (s *authService) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now)}
	if s.jwt.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwt.Issuer))
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.jwt.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Role != RoleAdmin {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
