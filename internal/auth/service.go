// Package auth 实现单一管理员角色的登录、令牌校验与注销。
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"corpsite/backend/internal/auth/jwt"
	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/storage"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPassword 密码不满足要求
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
	// ErrTokenRevoked 令牌已注销
	ErrTokenRevoked = errors.New("token revoked")
	// ErrForbidden 不是管理员
	ErrForbidden = errors.New("admin role required")
	// ErrUnavailable 令牌黑名单存储不可用，无法判断令牌是否已注销
	ErrUnavailable = errors.New("token store unavailable")
)

// TokenVerifier 校验 bearer 令牌并返回调用者身份。
//
// 管理接口只依赖这个接口，将来换成多管理员模型时只需替换实现。
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.Admin, error)
}

// Credentials 配置中的管理员账号
type Credentials struct {
	Username     string
	PasswordHash string
}

// LoginResult 登录结果
type LoginResult struct {
	AccessToken string        `json:"accessToken"`
	TokenType   string        `json:"tokenType"`
	ExpiresIn   int64         `json:"expiresIn"`
	Admin       *domain.Admin `json:"admin"`
}

// Service 认证服务
type Service struct {
	tokens      *jwt.Manager
	credentials Credentials
	blacklist   storage.JWTRepository
	log         *zap.Logger
}

// NewService 创建认证服务
func NewService(tokens *jwt.Manager, credentials Credentials, blacklist storage.JWTRepository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tokens:      tokens,
		credentials: credentials,
		blacklist:   blacklist,
		log:         log,
	}
}

// Login 校验管理员账号并签发访问令牌
func (s *Service) Login(_ context.Context, username, password string) (*LoginResult, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.credentials.Username)) == 1
	// 用户名错误时也执行一次 bcrypt，避免通过响应时间枚举用户名
	passOK := CheckPassword(password, s.credentials.PasswordHash)
	if !userOK || !passOK {
		s.log.Warn("Admin login failed", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	admin := s.admin()
	token, _, err := s.tokens.GenerateAccessToken(admin.ID, admin.Username, admin.Role)
	if err != nil {
		return nil, err
	}

	s.log.Info("Admin logged in", zap.String("username", admin.Username))
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.AccessExpiry().Seconds()),
		Admin:       admin,
	}, nil
}

// VerifyToken 校验令牌签名、有效期与注销状态
func (s *Service) VerifyToken(ctx context.Context, token string) (*domain.Admin, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: check token blacklist: %w", ErrUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	admin := &domain.Admin{ID: claims.AdminID, Username: claims.Username, Role: claims.Role}
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return admin, nil
}

// Logout 注销令牌，黑名单条目在令牌过期时一并失效
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: revoke token: %w", ErrUnavailable, err)
	}

	s.log.Info("Admin logged out", zap.String("username", claims.Username))
	return nil
}

func (s *Service) admin() *domain.Admin {
	return &domain.Admin{
		ID:       "admin:" + s.credentials.Username,
		Username: s.credentials.Username,
		Role:     domain.RoleAdmin,
	}
}

// HashPassword 生成 bcrypt 哈希
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 检查密码与哈希是否匹配
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
