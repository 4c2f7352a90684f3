package domain

import "time"

// Message 表示一条通过官网联系表单提交的来信。
//
// 创建后只有 Read 与 Starred 允许被管理员修改。
type Message struct {
	ID        string    `json:"id" db:"id" gorm:"primaryKey;type:varchar(36)"`
	FullName  string    `json:"fullName" db:"full_name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" db:"email" gorm:"type:varchar(255);not null"`
	Subject   string    `json:"subject" db:"subject" gorm:"type:varchar(500)"`
	Body      string    `json:"message" db:"body" gorm:"type:text"`
	Read      bool      `json:"read" db:"is_read" gorm:"column:is_read;default:false;index"`
	Starred   bool      `json:"starred" db:"is_starred" gorm:"column:is_starred;default:false"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" gorm:"index"`
}

// TableName 指定 GORM 表名
func (Message) TableName() string {
	return "contacts"
}

// FlagsUpdate 描述一次标记位的部分更新，nil 字段保持不变。
type FlagsUpdate struct {
	Read    *bool `json:"read,omitempty"`
	Starred *bool `json:"starred,omitempty"`
}

// Empty 判断是否没有任何字段需要更新
func (u FlagsUpdate) Empty() bool {
	return u.Read == nil && u.Starred == nil
}

// Apply 将更新应用到消息上
func (u FlagsUpdate) Apply(m *Message) {
	if u.Read != nil {
		m.Read = *u.Read
	}
	if u.Starred != nil {
		m.Starred = *u.Starred
	}
}
