// Package notify 负责把管理员的回复/转发投递为 HTML 邮件。
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrInvalidMessage 收件人、主题或正文不合法（例如包含换行）
var ErrInvalidMessage = errors.New("invalid outbound message")

// Notifier 发送一封 HTML 邮件
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogNotifier 只记录日志，不真正发信。用于没有配置 SMTP 的开发环境。
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

// Send 记录一条发信日志
func (n *LogNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info("Outbound email (not delivered)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)),
	)
	return nil
}
