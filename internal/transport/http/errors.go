package httptransport

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/auth"
	"corpsite/backend/internal/service"
)

// 通用错误消息
const (
	MsgInvalidJSON        = "invalid JSON body"
	MsgMessageNotFound    = "message not found"
	MsgSendFailed         = "failed to send email"
	MsgStoreFailed        = "failed to access storage"
	MsgInternalError      = "internal server error"
	MsgInvalidCredentials = "invalid username or password"
	MsgMailSinkDisabled   = "mail sink is not enabled"
	MsgAuthUnavailable    = "authentication temporarily unavailable"
)

// writeError 把业务错误映射为 HTTP 状态码与统一错误响应。
//
// 校验错误会把原因返回给调用方；发送和存储错误只返回固定文案，细节写日志。
func writeError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, validationMessage(err))
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, MsgMessageNotFound)
	case errors.Is(err, service.ErrSend):
		log.Error("Send error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		InternalError(c, MsgSendFailed)
	case errors.Is(err, service.ErrStore):
		log.Error("Store error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		InternalError(c, MsgStoreFailed)
	case errors.Is(err, auth.ErrUnavailable):
		log.Error("Token store error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		ServiceUnavailable(c, MsgAuthUnavailable)
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(c, MsgInvalidCredentials)
	default:
		log.Error("Unexpected error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		InternalError(c, MsgInternalError)
	}
}

// validationMessage 去掉 "validation failed: " 前缀
func validationMessage(err error) string {
	msg := err.Error()
	prefix := service.ErrValidation.Error() + ": "
	if rest, ok := strings.CutPrefix(msg, prefix); ok && rest != "" {
		return rest
	}
	return msg
}
