package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/herdbook/paycore/internal/logger"
)

// AuthService 管理端登录认证
type AuthService struct {
	username     string
	passwordHash string
	jwtSecret    []byte
	expire       time.Duration
}

// NewAuthService 创建认证服务
func NewAuthService(username, passwordHash, jwtSecret string, expireHours int) *AuthService {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &AuthService{
		username:     username,
		passwordHash: passwordHash,
		jwtSecret:    []byte(jwtSecret),
		expire:       time.Duration(expireHours) * time.Hour,
	}
}

// Claims JWT 载荷
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Login 校验凭据并签发令牌
func (s *AuthService) Login(username, password string) (string, error) {
	if username != s.username {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		logger.Warnw("admin_login_failed", "username", username)
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
			Issuer:    "paycore",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	logger.Infow("admin_login_success", "username", username)
	return signed, nil
}

// ParseToken 解析并校验令牌
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
