package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/service"
)

// MessageHandler 管理员来信接口
type MessageHandler struct {
	messages *service.MessageService
	log      *zap.Logger
}

// NewMessageHandler 创建来信处理器
func NewMessageHandler(messages *service.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, log: log}
}

// List 列出所有来信
// @Summary 来信列表
// @Description 按创建时间倒序返回所有来信
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]domain.Message}
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /api/admin/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	messages, err := h.messages.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	Success(c, "messages retrieved", messages)
}

// History 返回来信的会话历史
// @Summary 会话历史
// @Description 来信在前，随后是按时间升序排列的回复与转发
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "来信ID"
// @Success 200 {object} Response{data=[]domain.ThreadEntry}
// @Failure 404 {object} Response
// @Router /api/admin/messages/{id}/history [get]
func (h *MessageHandler) History(c *gin.Context) {
	thread, err := h.messages.GetThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	Success(c, "thread retrieved", thread)
}

// Delete 删除来信及其出站记录
// @Summary 删除来信
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "来信ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/admin/messages/{id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	Success(c, "message deleted", nil)
}

// UpdateFlags 更新 read/starred 标记
// @Summary 更新来信标记
// @Description 只更新请求中出现的字段
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "来信ID"
// @Param request body domain.FlagsUpdate true "标记"
// @Success 200 {object} Response{data=domain.Message}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/admin/messages/{id} [patch]
func (h *MessageHandler) UpdateFlags(c *gin.Context) {
	var req domain.FlagsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	msg, err := h.messages.UpdateFlags(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	Success(c, "message updated", msg)
}
