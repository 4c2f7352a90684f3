package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/service"
)

// ReplyHandler 管理员回复与转发接口
type ReplyHandler struct {
	replies *service.ReplyService
	log     *zap.Logger
}

// NewReplyHandler 创建回复处理器
func NewReplyHandler(replies *service.ReplyService, log *zap.Logger) *ReplyHandler {
	return &ReplyHandler{replies: replies, log: log}
}

type replyRequest struct {
	To              string `json:"to"`
	Subject         string `json:"subject"`
	Message         string `json:"message"`
	OriginalMessage string `json:"originalMessage"`
	RecipientName   string `json:"recipientName"`
	ContactID       string `json:"contactId"`
}

type forwardRequest struct {
	To              string `json:"to"`
	Subject         string `json:"subject"`
	Message         string `json:"message"`
	OriginalMessage string `json:"originalMessage"`
	OriginalSender  string `json:"originalSender"`
	OriginalEmail   string `json:"originalEmail"`
	ContactID       string `json:"contactId"`
}

// Reply 回复来信
// @Summary 回复来信
// @Description 发送回复邮件，发送成功且带 contactId 时记录出站历史
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body replyRequest true "回复内容"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/admin/reply [post]
func (h *ReplyHandler) Reply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	err := h.replies.Reply(c.Request.Context(), service.ReplyInput{
		To:              req.To,
		Subject:         req.Subject,
		Message:         req.Message,
		OriginalMessage: req.OriginalMessage,
		RecipientName:   req.RecipientName,
		ContactID:       req.ContactID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	Success(c, "reply sent", nil)
}

// Forward 转发来信
// @Summary 转发来信
// @Description 把原始来信转发给其他人，发送成功且带 contactId 时记录出站历史
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body forwardRequest true "转发内容"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/admin/forward [post]
func (h *ReplyHandler) Forward(c *gin.Context) {
	var req forwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	err := h.replies.Forward(c.Request.Context(), service.ForwardInput{
		To:              req.To,
		Subject:         req.Subject,
		Message:         req.Message,
		OriginalMessage: req.OriginalMessage,
		OriginalSender:  req.OriginalSender,
		OriginalEmail:   req.OriginalEmail,
		ContactID:       req.ContactID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	Success(c, "message forwarded", nil)
}
