package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"corpsite/backend/internal/smtp"
)

// OutboxHandler 查看开发用捕获服务器收到的邮件
type OutboxHandler struct {
	outbox *smtp.Outbox
}

// NewOutboxHandler 创建捕获箱处理器，outbox 为 nil 表示未启用
func NewOutboxHandler(outbox *smtp.Outbox) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// List 列出最近捕获的出站邮件
// @Summary 捕获的出站邮件
// @Description 仅在启用本地 SMTP 捕获服务器时可用
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]smtp.CapturedMail}
// @Failure 404 {object} Response
// @Router /api/admin/outbox [get]
func (h *OutboxHandler) List(c *gin.Context) {
	if h.outbox == nil {
		Error(c, http.StatusNotFound, MsgMailSinkDisabled)
		return
	}
	Success(c, "outbox retrieved", h.outbox.List())
}
