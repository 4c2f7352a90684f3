// Package mailtmpl 渲染管理员回复与转发邮件的 HTML 正文。
//
// Render 是纯函数：相同输入总是得到相同输出，不做任何 I/O。
package mailtmpl

import (
	"bytes"
	"errors"
	"html/template"

	"corpsite/backend/internal/domain"
)

// ErrUnknownKind 不支持的邮件类型
var ErrUnknownKind = errors.New("unknown mail kind")

// Fields 模板字段，所有文本都会被 HTML 转义
type Fields struct {
	SiteName       string
	RecipientName  string
	Body           string
	OriginalBody   string
	OriginalSender string
	OriginalEmail  string
}

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.SiteName}}</title></head>
<body style="margin:0;padding:24px;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;color:#1f2933;">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;">
{{template "content" .}}
<p style="margin-top:32px;font-size:12px;color:#7b8794;">{{.SiteName}}</p>
</div>
</body>
</html>{{end}}`

const replyContent = `{{define "content"}}{{if .RecipientName}}<p>Hi {{.RecipientName}},</p>
{{end}}<div style="white-space:pre-wrap;line-height:1.5;">{{.Body}}</div>
{{if .OriginalBody}}<div style="margin-top:24px;padding-left:12px;border-left:3px solid #cbd2d9;color:#52606d;">
<p style="font-size:12px;margin:0 0 8px;">Your original message:</p>
<div style="white-space:pre-wrap;">{{.OriginalBody}}</div>
</div>
{{end}}{{end}}`

const forwardContent = `{{define "content"}}{{if .Body}}<div style="white-space:pre-wrap;line-height:1.5;">{{.Body}}</div>
{{end}}<div style="margin-top:24px;padding:16px;background:#f5f7fa;border-radius:6px;">
<p style="font-size:12px;margin:0 0 8px;color:#52606d;">---------- Forwarded message ----------</p>
<p style="margin:0;">From: {{.OriginalSender}}{{if .OriginalEmail}} &lt;{{.OriginalEmail}}&gt;{{end}}</p>
<div style="margin-top:12px;white-space:pre-wrap;">{{.OriginalBody}}</div>
</div>
{{end}}`

var templates = map[domain.ReplyKind]*template.Template{
	domain.ReplyKindReply:   template.Must(template.Must(template.New("reply").Parse(layout)).Parse(replyContent)),
	domain.ReplyKindForward: template.Must(template.Must(template.New("forward").Parse(layout)).Parse(forwardContent)),
}

// Render 按类型渲染邮件正文
func Render(kind domain.ReplyKind, fields Fields) (string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", ErrUnknownKind
	}
	if fields.SiteName == "" {
		fields.SiteName = "Our team"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", fields); err != nil {
		return "", err
	}
	return buf.String(), nil
}
