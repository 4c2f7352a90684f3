package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 连接加密方式
const (
	TLSModeStartTLS = "starttls" // 明文连接后必须升级，服务器不支持时发送失败
	TLSModeImplicit = "tls"      // 连接即 TLS（端口 465）
	TLSModeNone     = "none"     // 不加密，仅用于本地捕获服务器
)

// SMTPConfig 出站 SMTP 配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	ReplyTo  string
	// TLSMode 为空时端口 465 使用隐式 TLS，其余端口使用 STARTTLS
	TLSMode string
	// TLSConfig 可选，未设置 ServerName 时使用 Host
	TLSConfig *tls.Config
	// Timeout 同时作为拨号、握手和单条命令超时
	Timeout time.Duration
	// RatePerSecond <= 0 表示不限速
	RatePerSecond float64
}

// SMTPNotifier 通过 SMTP 投递邮件。
//
// 不会从 STARTTLS 静默降级为明文。
// 发送速率由令牌桶控制，超出时等待而不是丢弃。
type SMTPNotifier struct {
	cfg     SMTPConfig
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time
}

// NewSMTPNotifier 创建 SMTP 通知器
func NewSMTPNotifier(cfg SMTPConfig, log *zap.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid smtp from address %q: %w", cfg.From, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	switch cfg.TLSMode {
	case "":
		cfg.TLSMode = TLSModeStartTLS
		if cfg.Port == 465 {
			cfg.TLSMode = TLSModeImplicit
		}
	case TLSModeStartTLS, TLSModeImplicit, TLSModeNone:
	default:
		return nil, fmt.Errorf("unsupported smtp tls mode %q", cfg.TLSMode)
	}
	if log == nil {
		log = zap.NewNop()
	}

	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}

	return &SMTPNotifier{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
		now:     time.Now,
	}, nil
}

// Send 投递一封 HTML 邮件
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return ErrInvalidMessage
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	msg, err := n.buildMessage(to, subject, htmlBody)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := n.deliver(ctx, to, msg); err != nil {
		n.log.Warn("SMTP delivery failed",
			zap.String("to", to),
			zap.String("host", n.cfg.Host),
			zap.Error(err),
		)
		return err
	}

	n.log.Info("Email delivered",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (n *SMTPNotifier) deliver(ctx context.Context, to string, msg []byte) error {
	c, err := n.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	// ctx 取消时中断阻塞的读写
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if n.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", n.cfg.Username, n.cfg.Password)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(n.envelopeFrom(), nil); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to, nil); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish data: %w", err)
	}

	return c.Quit()
}

// dial 建立连接并完成问候与 TLS 协商，返回设置好超时的客户端
func (n *SMTPNotifier) dial(ctx context.Context) (*gosmtp.Client, error) {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	dialer := &net.Dialer{Timeout: n.cfg.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	// 握手阶段使用单独的超时，go-smtp 默认的问候超时长达 5 分钟
	hsCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(hsCtx, func() { _ = conn.Close() })

	var c *gosmtp.Client
	switch n.cfg.TLSMode {
	case TLSModeImplicit:
		c = gosmtp.NewClient(tls.Client(conn, n.tlsConfig()))
		err = c.Hello("localhost")
	case TLSModeStartTLS:
		c, err = gosmtp.NewClientStartTLS(conn, n.tlsConfig())
	default:
		c = gosmtp.NewClient(conn)
		err = c.Hello("localhost")
	}

	if !stop() || err != nil {
		_ = conn.Close()
		if err == nil {
			err = hsCtx.Err()
		}
		return nil, fmt.Errorf("smtp handshake (%s): %w", n.cfg.TLSMode, err)
	}

	c.CommandTimeout = n.cfg.Timeout
	c.SubmissionTimeout = n.cfg.Timeout
	return c, nil
}

func (n *SMTPNotifier) tlsConfig() *tls.Config {
	if n.cfg.TLSConfig == nil {
		return &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}
	}
	cfg := n.cfg.TLSConfig.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = n.cfg.Host
	}
	return cfg
}

func (n *SMTPNotifier) envelopeFrom() string {
	addr, err := mail.ParseAddress(n.cfg.From)
	if err != nil {
		return n.cfg.From
	}
	return addr.Address
}

// buildMessage 组装 RFC 5322 邮件：UTF-8 HTML 正文，quoted-printable 编码
func (n *SMTPNotifier) buildMessage(to, subject, htmlBody string) ([]byte, error) {
	from := mail.Address{Name: n.cfg.FromName, Address: n.envelopeFrom()}

	domain := "localhost"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 {
		domain = from.Address[at+1:]
	}

	var buf bytes.Buffer
	writeHeader := func(key, value string) {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	writeHeader("From", from.String())
	writeHeader("To", to)
	if n.cfg.ReplyTo != "" {
		writeHeader("Reply-To", n.cfg.ReplyTo)
	}
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Date", n.now().Format(time.RFC1123Z))
	writeHeader("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/html; charset=UTF-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(htmlBody)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return buf.Bytes(), nil
}
