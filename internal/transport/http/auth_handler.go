package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/auth"
	"corpsite/backend/internal/middleware"
)

// AuthHandler 处理管理员登录相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 校验账号密码并返回访问令牌，同时写入 HttpOnly cookie
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} Response{data=auth.LoginResult}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 429 {object} Response
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("access_token", result.AccessToken, int(result.ExpiresIn), "/api", "", c.Request.TLS != nil, true)
	Success(c, "login successful", result)
}

// Logout 注销当前令牌
// @Summary 管理员注销
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Failure 503 {object} Response
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.TokenFromContext(c)); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.SetCookie("access_token", "", -1, "/api", "", c.Request.TLS != nil, true)
	Success(c, "logged out", nil)
}

// Me 返回当前管理员
// @Summary 当前管理员
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=domain.Admin}
// @Failure 401 {object} Response
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	admin, ok := middleware.AdminFromContext(c)
	if !ok {
		Unauthorized(c, "authentication required")
		return
	}
	Success(c, "ok", admin)
}
