package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"book-engine/internal/config"
	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/service"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
)

// SettingsSource 提供当前生效的全局设置
type SettingsSource interface {
	Current(ctx context.Context) (entity.Settings, error)
}

// ErrNotConfigured 未配置密钥
var ErrNotConfigured = apperrors.ErrNotConfigured

// Client 实现 service.Generator
type Client struct {
	factory  *Factory
	settings SettingsSource
	config   *config.LLMConfig
	timeout  time.Duration
}

// NewClient 创建生成服务客户端
func NewClient(factory *Factory, settings SettingsSource, cfg *config.LLMConfig, timeout time.Duration) *Client {
	return &Client{
		factory:  factory,
		settings: settings,
		config:   cfg,
		timeout:  timeout,
	}
}

var _ service.Generator = (*Client)(nil)

// Configured 当前设置是否具备可用密钥
func (c *Client) Configured(ctx context.Context) bool {
	s, err := c.settings.Current(ctx)
	if err != nil {
		return false
	}
	_, err = c.resolve(s)
	return err == nil
}

// Generate 使用当前设置生成文本
func (c *Client) Generate(ctx context.Context, req service.GenerateRequest) (string, error) {
	s, err := c.settings.Current(ctx)
	if err != nil {
		return "", err
	}
	return c.GenerateWith(ctx, s, req)
}

// GenerateWith 使用指定设置生成文本（用于连接测试）
func (c *Client) GenerateWith(ctx context.Context, s entity.Settings, req service.GenerateRequest) (string, error) {
	cred, err := c.resolve(s)
	if err != nil {
		return "", err
	}

	ctx = service.WithWorkflowProvider(ctx, req.Workflow, cred.Provider)
	chatModel, err := c.factory.Get(ctx, cred)
	if err != nil {
		return "", apperrors.Wrap(redactKey(err, cred.APIKey), apperrors.CodeLLMProviderError, "failed to build chat model")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := make([]*schema.Message, 0, 2)
	if sp := strings.TrimSpace(req.SystemPrompt); sp != "" {
		msgs = append(msgs, schema.SystemMessage(sp))
	}
	msgs = append(msgs, schema.UserMessage(req.Prompt))

	start := time.Now()
	out, err := chatModel.Generate(ctx, msgs)
	if err == nil {
		var text string
		if text, err = normalizeResponse(out); err == nil {
			logger.Debug(ctx, "llm call completed",
				"workflow", req.Workflow,
				"provider", cred.Provider,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}
	}

	err = redactKey(err, cred.APIKey)
	logger.Warn(ctx, "llm call failed",
		"workflow", req.Workflow,
		"provider", cred.Provider,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err.Error(),
	)
	return "", apperrors.ErrLLMCallFailed.WithError(err)
}

// resolve 合并设置与配置，得到本次调用的凭据
// 设置文档中的密钥优先，配置中的同名提供商密钥兜底
func (c *Client) resolve(s entity.Settings) (Credentials, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		provider = c.config.DefaultProvider
	}
	cred := Credentials{
		Provider: provider,
		Model:    strings.TrimSpace(s.Model),
		APIKey:   strings.TrimSpace(s.APIKey),
	}
	if cred.APIKey == "" {
		cred.APIKey = strings.TrimSpace(c.config.Provider(provider).APIKey)
	}
	if RequiresCredential(provider) && cred.APIKey == "" {
		return Credentials{}, ErrNotConfigured.WithDetail(provider)
	}
	return cred, nil
}
