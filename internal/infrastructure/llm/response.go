package llm

import (
	"errors"
	"strings"

	"github.com/cloudwego/eino/schema"

	"book-engine/internal/domain/entity"
)

// errEmptyResponse 提供商返回了空文本
var errEmptyResponse = errors.New("empty llm response")

// normalizeResponse 将各提供商的助手消息归一为纯文本，空文本视为失败
// 优先取 Content，为空时拼接多模态消息中的文本片段
func normalizeResponse(msg *schema.Message) (string, error) {
	if msg == nil {
		return "", errEmptyResponse
	}
	text := msg.Content
	if strings.TrimSpace(text) == "" {
		var sb strings.Builder
		for _, part := range msg.MultiContent {
			if part.Type == schema.ChatMessagePartTypeText {
				sb.WriteString(part.Text)
			}
		}
		text = sb.String()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

// redactedError 错误文本中的密钥已被遮蔽，Unwrap 保留原始链以便 errors.Is 判断
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

// redactKey 遮蔽错误文本中出现的密钥
// SDK 的传输层错误可能带上完整请求信息，日志与响应只能看到遮蔽后的文本
func redactKey(err error, apiKey string) error {
	if err == nil || apiKey == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, apiKey) {
		return err
	}
	return &redactedError{
		msg: strings.ReplaceAll(msg, apiKey, entity.MaskAPIKey(apiKey)),
		err: err,
	}
}
