package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/mailtmpl"
	"corpsite/backend/internal/notify"
	"corpsite/backend/internal/storage"
)

// forwardedFallback 既没有附言也不知道原发件人时的转发记录正文
const forwardedFallback = "Forwarded message"

// ReplyInput 回复来信的输入
type ReplyInput struct {
	To              string
	Subject         string
	Message         string
	OriginalMessage string
	RecipientName   string
	ContactID       string
}

// ForwardInput 转发来信的输入
type ForwardInput struct {
	To              string
	Subject         string
	Message         string
	OriginalMessage string
	OriginalSender  string
	OriginalEmail   string
	ContactID       string
}

// ReplyService 发送回复/转发邮件并记录出站历史。
//
// 只有邮件发送成功后才会写出站记录，发送失败不会留下任何记录。
// 两个操作都不会修改来信的 read 标记。
type ReplyService struct {
	replies  storage.ReplyRepository
	notifier notify.Notifier
	siteName string
	log      *zap.Logger
	now      func() time.Time
}

// NewReplyService 创建回复服务
func NewReplyService(replies storage.ReplyRepository, notifier notify.Notifier, siteName string, log *zap.Logger) *ReplyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReplyService{
		replies:  replies,
		notifier: notifier,
		siteName: siteName,
		log:      log,
		now:      time.Now,
	}
}

// Reply 回复来信。
func (s *ReplyService) Reply(ctx context.Context, input ReplyInput) error {
	if blank(input.To) || blank(input.Subject) || blank(input.Message) {
		return fmt.Errorf("%w: to, subject and message are required", ErrValidation)
	}
	to := strings.TrimSpace(input.To)
	if err := domain.ValidateRecipient(to); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := checkSubject(input.Subject); err != nil {
		return err
	}

	html, err := mailtmpl.Render(domain.ReplyKindReply, mailtmpl.Fields{
		SiteName:      s.siteName,
		RecipientName: input.RecipientName,
		Body:          input.Message,
		OriginalBody:  input.OriginalMessage,
	})
	if err != nil {
		return fmt.Errorf("render reply: %w", err)
	}

	return s.dispatch(ctx, domain.ReplyKindReply, to, input.Subject, html, input.ContactID, input.Message)
}

// Forward 把来信转发给其他人。
func (s *ReplyService) Forward(ctx context.Context, input ForwardInput) error {
	if blank(input.To) || blank(input.Subject) || blank(input.OriginalMessage) {
		return fmt.Errorf("%w: to, subject and originalMessage are required", ErrValidation)
	}
	to := strings.TrimSpace(input.To)
	if err := domain.ValidateRecipient(to); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := checkSubject(input.Subject); err != nil {
		return err
	}

	html, err := mailtmpl.Render(domain.ReplyKindForward, mailtmpl.Fields{
		SiteName:       s.siteName,
		Body:           input.Message,
		OriginalBody:   input.OriginalMessage,
		OriginalSender: input.OriginalSender,
		OriginalEmail:  input.OriginalEmail,
	})
	if err != nil {
		return fmt.Errorf("render forward: %w", err)
	}

	body := forwardRecordBody(input)

	return s.dispatch(ctx, domain.ReplyKindForward, to, input.Subject, html, input.ContactID, body)
}

// dispatch 先发信，成功后再按需写出站记录
func (s *ReplyService) dispatch(ctx context.Context, kind domain.ReplyKind, to, subject, html, contactID, body string) error {
	if err := s.notifier.Send(ctx, to, subject, html); err != nil {
		s.log.Warn("Outbound email failed",
			zap.String("kind", string(kind)),
			zap.String("to", to),
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrSend, err)
	}

	if contactID == "" {
		return nil
	}

	record := &domain.ReplyRecord{
		ID:        uuid.NewString(),
		ContactID: contactID,
		Kind:      kind,
		To:        to,
		Subject:   subject,
		Body:      body,
		SentBy:    domain.DefaultSender,
		SentAt:    s.now().UTC(),
	}
	if err := s.replies.SaveReply(ctx, record); err != nil {
		// 邮件已经发出，只是历史没有记下来
		s.log.Error("Email sent but reply record was not saved",
			zap.String("kind", string(kind)),
			zap.String("contact_id", contactID),
			zap.String("to", to),
			zap.Error(err),
		)
		return fmt.Errorf("%w: save reply record: %w", ErrStore, err)
	}

	s.log.Info("Reply record saved",
		zap.String("kind", string(kind)),
		zap.String("contact_id", contactID),
		zap.String("reply_id", record.ID),
	)
	return nil
}

// forwardRecordBody 转发记录的正文，没有附言时记录原发件人
func forwardRecordBody(input ForwardInput) string {
	if !blank(input.Message) {
		return input.Message
	}
	for _, sender := range []string{input.OriginalSender, input.OriginalEmail} {
		if !blank(sender) {
			return "Forwarded from " + strings.TrimSpace(sender)
		}
	}
	return forwardedFallback
}

// checkSubject 主题不允许换行，否则可以注入额外的邮件头
func checkSubject(subject string) error {
	if strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("%w: subject must be a single line", ErrValidation)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
