package smtp

import (
	"sync"
	"time"
)

// CapturedMail 被捕获的一封出站邮件
type CapturedMail struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	HTML       string    `json:"html,omitempty"`
	Text       string    `json:"text,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Outbox 保存最近 N 封捕获的邮件
type Outbox struct {
	mu    sync.RWMutex
	mails []CapturedMail
	limit int
}

// NewOutbox 创建容量为 limit 的捕获箱
func NewOutbox(limit int) *Outbox {
	if limit <= 0 {
		limit = 100
	}
	return &Outbox{limit: limit}
}

// Add 追加一封邮件，超出容量时丢弃最旧的
func (o *Outbox) Add(mail CapturedMail) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.mails = append(o.mails, mail)
	if over := len(o.mails) - o.limit; over > 0 {
		o.mails = append([]CapturedMail(nil), o.mails[over:]...)
	}
}

// List 返回捕获的邮件，最新的在前
func (o *Outbox) List() []CapturedMail {
	o.mu.RLock()
	defer o.mu.RUnlock()

	list := make([]CapturedMail, 0, len(o.mails))
	for i := len(o.mails) - 1; i >= 0; i-- {
		list = append(list, o.mails[i])
	}
	return list
}

// Len 当前捕获数量
func (o *Outbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.mails)
}
