package smtp

import (
	"fmt"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

// Backend 实现 go-smtp 的 Backend 接口，作为开发环境的邮件捕获服务器。
//
// 所有投递进来的邮件只保存到内存中的 Outbox，不会被转发到任何地方。
// 配合 notify.SMTPNotifier 使用时，管理员发出的回复/转发都能在本地查看。
type Backend struct {
	outbox *Outbox
}

// NewBackend 创建 SMTP Backend。
func NewBackend(outbox *Outbox) *Backend {
	return &Backend{outbox: outbox}
}

// NewServer 创建监听指定地址的捕获服务器
func NewServer(addr, domain string, outbox *Outbox) *gosmtp.Server {
	server := gosmtp.NewServer(NewBackend(outbox))
	server.Addr = addr
	server.Domain = domain
	server.AllowInsecureAuth = true
	server.ReadTimeout = 10 * time.Second
	server.WriteTimeout = 10 * time.Second
	server.MaxMessageBytes = 10 * 1024 * 1024 // 10MB
	server.MaxRecipients = 50
	return server
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.fromAddress = normalizeAddress(from)
	return nil
}

// Rcpt 处理 RCPT 命令，捕获服务器接受任何收件人。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)
	if !strings.Contains(addr, "@") {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}
	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容。
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, 10<<20)) // 10MB
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(raw)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	s.backend.outbox.Add(CapturedMail{
		ID:         uuid.NewString(),
		From:       s.fromAddress,
		To:         append([]string(nil), s.recipients...),
		Subject:    parsed.Subject,
		HTML:       parsed.HTML,
		Text:       parsed.Text,
		ReceivedAt: time.Now().UTC(),
	})
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
