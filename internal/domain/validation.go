package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrEmailTooLong  = errors.New("email address too long")
	ErrInvalidDomain = errors.New("invalid domain format")
)

// RFC 5322 邮箱地址长度限制
const (
	MaxEmailLength  = 254
	MaxDomainLength = 253
)

// 域名验证（支持子域名，至少包含一个点）
var domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidateRecipient 校验出站邮件的收件地址。
//
// 只接受裸地址（a@b.com），不接受 "Name <a@b.com>" 形式，
// 避免收件人字段被用来注入额外的头部。
func ValidateRecipient(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrInvalidEmail
	}
	if len(address) > MaxEmailLength {
		return ErrEmailTooLong
	}

	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address || parsed.Name != "" {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return ErrInvalidEmail
	}

	domain := address[at+1:]
	if len(domain) > MaxDomainLength || !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}

	return nil
}
