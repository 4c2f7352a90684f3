package security

import (
	"errors"
	"regexp"
	"strings"
)

// ErrRejectedContent 联系表单内容被过滤器拒绝
var ErrRejectedContent = errors.New("content rejected")

// spamThreshold 命中多少个关键词视为垃圾内容
const spamThreshold = 3

// ContentFilter 公开联系表单的内容过滤器
type ContentFilter struct {
	// 脚本注入模式
	maliciousPatterns []*regexp.Regexp

	// 垃圾内容关键词
	spamKeywords []string
}

// NewContentFilter 创建内容过滤器
func NewContentFilter() *ContentFilter {
	return &ContentFilter{
		maliciousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<script[^>]*>`),
			regexp.MustCompile(`(?i)javascript:`),
			regexp.MustCompile(`(?i)\bon(load|error|click|mouseover)\s*=`),
			regexp.MustCompile(`(?i)document\.cookie`),
			regexp.MustCompile(`(?i)<iframe[^>]*>`),
			regexp.MustCompile(`(?i)<object[^>]*>`),
			regexp.MustCompile(`(?i)<embed[^>]*>`),
		},
		spamKeywords: []string{
			"viagra", "casino", "lottery", "crypto giveaway", "free money",
			"click here", "limited time", "act now", "guaranteed",
			"no risk", "earn money", "work from home", "seo services",
		},
	}
}

// Check 检查表单各字段，拒绝时返回包装了 ErrRejectedContent 的错误
func (cf *ContentFilter) Check(fields ...string) error {
	content := strings.Join(fields, "\n")

	if reason, ok := cf.checkMaliciousContent(content); ok {
		return errors.Join(ErrRejectedContent, errors.New(reason))
	}
	if reason, ok := cf.checkSpamContent(content); ok {
		return errors.Join(ErrRejectedContent, errors.New(reason))
	}
	return nil
}

// checkMaliciousContent 检查脚本注入
func (cf *ContentFilter) checkMaliciousContent(content string) (string, bool) {
	for _, pattern := range cf.maliciousPatterns {
		if pattern.MatchString(content) {
			return "markup or script detected", true
		}
	}
	return "", false
}

// checkSpamContent 检查垃圾内容
func (cf *ContentFilter) checkSpamContent(content string) (string, bool) {
	contentLower := strings.ToLower(content)

	spamCount := 0
	for _, keyword := range cf.spamKeywords {
		if strings.Contains(contentLower, keyword) {
			spamCount++
		}
	}

	if spamCount >= spamThreshold {
		return "multiple spam keywords found", true
	}
	return "", false
}
