package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// ParsedEmail 解析后的邮件内容
type ParsedEmail struct {
	Subject string
	From    string
	To      string
	Text    string
	HTML    string
}

var headerDecoder = new(mime.WordDecoder)

// decodeHeader 解码 RFC 2047 编码的头部
func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// ParseEmail 解析原始邮件数据。
func ParseEmail(rawEmail []byte) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(rawEmail))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	parsed := &ParsedEmail{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    decodeHeader(msg.Header.Get("From")),
		To:      msg.Header.Get("To"),
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		// 没有 Content-Type 时当作纯文本
		body, _ := io.ReadAll(msg.Body)
		parsed.Text = string(body)
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}
		if err := parseMultipart(multipart.NewReader(msg.Body, boundary), parsed); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		return parsed, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if strings.HasPrefix(mediaType, "text/html") {
		parsed.HTML = body
	} else {
		parsed.Text = body
	}
	return parsed, nil
}

// parseMultipart 递归解析多部分邮件，只保留第一段 text/plain 和 text/html。
func parseMultipart(mr *multipart.Reader, parsed *ParsedEmail) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if boundary := params["boundary"]; boundary != "" {
				if err := parseMultipart(multipart.NewReader(part, boundary), parsed); err != nil {
					return err
				}
			}
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(mediaType, "text/html") && parsed.HTML == "":
			parsed.HTML = body
		case strings.HasPrefix(mediaType, "text/plain") && parsed.Text == "":
			parsed.Text = body
		}
	}
}

// decodeBody 根据传输编码解码邮件体
func decodeBody(reader io.Reader, transferEncoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		reader = quotedprintable.NewReader(reader)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
