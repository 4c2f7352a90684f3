package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/storage"
)

// MessageService 管理员对来信的读取和维护。
type MessageService struct {
	contacts storage.ContactRepository
	replies  storage.ReplyRepository
	log      *zap.Logger
}

// NewMessageService 创建来信服务。
func NewMessageService(contacts storage.ContactRepository, replies storage.ReplyRepository, log *zap.Logger) *MessageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{contacts: contacts, replies: replies, log: log}
}

// List 列出所有来信，最新的在前。
func (s *MessageService) List(ctx context.Context) ([]domain.Message, error) {
	messages, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %w", ErrStore, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// UpdateFlags 部分更新 read/starred 标记并返回更新后的来信。
func (s *MessageService) UpdateFlags(ctx context.Context, id string, update domain.FlagsUpdate) (*domain.Message, error) {
	msg, err := s.contacts.UpdateContactFlags(ctx, id, update)
	if err != nil {
		return nil, s.mapStoreError(err, id)
	}
	return msg, nil
}

// Delete 删除来信，同时删除它的全部出站记录。
func (s *MessageService) Delete(ctx context.Context, id string) error {
	removed, err := s.contacts.DeleteContact(ctx, id)
	if err != nil {
		return s.mapStoreError(err, id)
	}

	s.log.Info("Contact message deleted",
		zap.String("contact_id", id),
		zap.Int("replies_removed", removed),
	)
	return nil
}

// GetThread 返回来信及其所有出站记录组成的会话。
func (s *MessageService) GetThread(ctx context.Context, contactID string) ([]domain.ThreadEntry, error) {
	msg, err := s.contacts.GetContact(ctx, contactID)
	if err != nil {
		return nil, s.mapStoreError(err, contactID)
	}

	replies, err := s.replies.ListReplies(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("%w: list replies: %w", ErrStore, err)
	}

	return domain.BuildThread(msg, replies), nil
}

func (s *MessageService) mapStoreError(err error, id string) error {
	if errors.Is(err, storage.ErrContactNotFound) {
		return fmt.Errorf("%w: message %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}
