package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/service"
)

// ContactHandler 公开的联系表单接口
type ContactHandler struct {
	contacts *service.ContactService
	log      *zap.Logger
}

// NewContactHandler 创建联系表单处理器
func NewContactHandler(contacts *service.ContactService, log *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, log: log}
}

type contactRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

// Submit 提交联系表单
// @Summary 提交联系表单
// @Tags Public
// @Accept json
// @Produce json
// @Param request body contactRequest true "表单内容"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 429 {object} Response
// @Router /api/contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	msg, err := h.contacts.Submit(c.Request.Context(), service.ContactInput{
		FullName: req.FullName,
		Email:    req.Email,
		Subject:  req.Subject,
		Message:  req.Message,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	Created(c, "message received", gin.H{"id": msg.ID})
}
