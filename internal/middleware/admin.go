package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/auth"
	"corpsite/backend/internal/domain"
)

const (
	contextKeyAdmin = "admin"
	contextKeyToken = "accessToken"
)

// AdminAuth 管理员认证中间件
type AdminAuth struct {
	verifier auth.TokenVerifier
	log      *zap.Logger
}

// NewAdminAuth 创建管理员认证中间件
func NewAdminAuth(verifier auth.TokenVerifier, log *zap.Logger) *AdminAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminAuth{verifier: verifier, log: log}
}

// RequireAdmin 要求有效的管理员令牌
func (a *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "authentication required")
			return
		}

		admin, err := a.verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnavailable) {
				a.log.Error("Admin token verification unavailable",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
				abortJSON(c, http.StatusServiceUnavailable, "authentication temporarily unavailable")
				return
			}
			a.log.Warn("Admin token rejected",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			if errors.Is(err, auth.ErrForbidden) {
				abortJSON(c, http.StatusForbidden, "admin access required")
				return
			}
			abortJSON(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(contextKeyAdmin, admin)
		c.Set(contextKeyToken, token)
		c.Next()
	}
}

// AdminFromContext 取出当前请求的管理员
func AdminFromContext(c *gin.Context) (*domain.Admin, bool) {
	v, ok := c.Get(contextKeyAdmin)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*domain.Admin)
	return admin, ok
}

// TokenFromContext 取出当前请求使用的令牌
func TokenFromContext(c *gin.Context) string {
	return c.GetString(contextKeyToken)
}

// extractToken 从 Authorization 头或 cookie 中提取令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	token, err := c.Cookie("access_token")
	if err == nil && token != "" {
		return token
	}

	return ""
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
