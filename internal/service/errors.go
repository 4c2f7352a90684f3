package service

import "errors"

// 业务错误分类，由 HTTP 层统一映射为状态码
var (
	// ErrValidation 缺少或非法的输入
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 引用的来信不存在
	ErrNotFound = errors.New("not found")
	// ErrSend 邮件发送失败，出站记录不会写入
	ErrSend = errors.New("failed to send email")
	// ErrStore 存储层不可用或拒绝写入
	ErrStore = errors.New("storage error")
)
