package domain

import "time"

// ReplyKind 出站记录类型
type ReplyKind string

const (
	ReplyKindReply   ReplyKind = "reply"
	ReplyKindForward ReplyKind = "forward"
)

// DefaultSender 未指定发送人时记录的标签
const DefaultSender = "Admin"

// ReplyRecord 是一次已成功发出的回复或转发的审计记录，只追加不修改。
type ReplyRecord struct {
	ID        string    `json:"id" db:"id" gorm:"primaryKey;type:varchar(36)"`
	ContactID string    `json:"contactId" db:"contact_id" gorm:"type:varchar(36);index;not null"`
	Kind      ReplyKind `json:"kind" db:"kind" gorm:"type:varchar(16);not null"`
	To        string    `json:"to" db:"recipient" gorm:"column:recipient;type:varchar(255);not null"`
	Subject   string    `json:"subject" db:"subject" gorm:"type:varchar(500)"`
	Body      string    `json:"message" db:"body" gorm:"type:text"`
	SentBy    string    `json:"sentBy" db:"sent_by" gorm:"type:varchar(100);default:'Admin'"`
	SentAt    time.Time `json:"sentAt" db:"sent_at" gorm:"index"`
}

// TableName 指定 GORM 表名
func (ReplyRecord) TableName() string {
	return "replies"
}
