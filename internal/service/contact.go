package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/security"
	"corpsite/backend/internal/storage"
)

// 联系表单字段长度上限
const (
	maxNameLength    = 255
	maxEmailLength   = 255
	maxSubjectLength = 500
	maxBodyLength    = 10000
)

// ContactInput 公开联系表单的输入
type ContactInput struct {
	FullName string
	Email    string
	Subject  string
	Message  string
}

// ContactService 处理官网联系表单提交。
type ContactService struct {
	contacts storage.ContactRepository
	filter   *security.ContentFilter // 可选
	log      *zap.Logger
	now      func() time.Time
}

// NewContactService 创建联系表单服务
func NewContactService(contacts storage.ContactRepository, log *zap.Logger) *ContactService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactService{contacts: contacts, log: log, now: time.Now}
}

// SetContentFilter 设置内容过滤器，未设置时不过滤
func (s *ContactService) SetContentFilter(filter *security.ContentFilter) {
	s.filter = filter
}

// Submit 保存一条来信。邮箱只做非空检查，不校验格式。
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*domain.Message, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(input.Email)
	input.Subject = strings.TrimSpace(input.Subject)

	if input.FullName == "" || input.Email == "" {
		return nil, fmt.Errorf("%w: fullName and email are required", ErrValidation)
	}
	switch {
	case utf8.RuneCountInString(input.FullName) > maxNameLength:
		return nil, fmt.Errorf("%w: fullName is too long", ErrValidation)
	case utf8.RuneCountInString(input.Email) > maxEmailLength:
		return nil, fmt.Errorf("%w: email is too long", ErrValidation)
	case utf8.RuneCountInString(input.Subject) > maxSubjectLength:
		return nil, fmt.Errorf("%w: subject is too long", ErrValidation)
	case utf8.RuneCountInString(input.Message) > maxBodyLength:
		return nil, fmt.Errorf("%w: message is too long", ErrValidation)
	}

	if s.filter != nil {
		if err := s.filter.Check(input.FullName, input.Subject, input.Message); err != nil {
			s.log.Warn("Contact message rejected by content filter", zap.Error(err))
			return nil, fmt.Errorf("%w: message content was rejected", ErrValidation)
		}
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		FullName:  input.FullName,
		Email:     input.Email,
		Subject:   input.Subject,
		Body:      input.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.contacts.CreateContact(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: save contact: %w", ErrStore, err)
	}

	s.log.Info("Contact message received", zap.String("contact_id", msg.ID))
	return msg, nil
}
