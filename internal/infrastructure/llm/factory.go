// Package llm 提供外部内容生成服务的客户端与各提供商适配器
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"book-engine/internal/config"
)

// 支持的提供商
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderNvidia    = "nvidia"
	ProviderDeepSeek  = "deepseek"
	ProviderMock      = "mock"
)

// Credentials 一次调用使用的提供商、模型与密钥
type Credentials struct {
	Provider string
	Model    string
	APIKey   string
}

// Factory 管理多个 Eino ChatModel 客户端实例
// 按 (provider, model, key 摘要) 惰性创建并缓存
type Factory struct {
	config *config.LLMConfig

	mu     sync.RWMutex
	models map[string]model.BaseChatModel
}

// NewFactory 创建 LLM 工厂
func NewFactory(cfg *config.LLMConfig) *Factory {
	return &Factory{
		config: cfg,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取 ChatModel
func (f *Factory) Get(ctx context.Context, cred Credentials) (model.BaseChatModel, error) {
	provider := strings.ToLower(strings.TrimSpace(cred.Provider))
	if provider == "" {
		provider = f.config.DefaultProvider
	}
	key := cacheKey(provider, cred.Model, cred.APIKey)

	f.mu.RLock()
	m, ok := f.models[key]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[key]; ok {
		return m, nil
	}

	m, err := f.build(ctx, provider, cred)
	if err != nil {
		return nil, err
	}
	f.models[key] = m
	return m, nil
}

func (f *Factory) build(ctx context.Context, provider string, cred Credentials) (model.BaseChatModel, error) {
	pc := f.config.Provider(provider)
	maxTokens := pc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	temperature := float32(pc.Temperature)
	if temperature <= 0 {
		temperature = 0.7
	}
	modelName := strings.TrimSpace(cred.Model)
	if modelName == "" {
		modelName = pc.Model
	}

	switch provider {
	case ProviderOpenAI, ProviderNvidia, ProviderDeepSeek:
		// OpenAI 兼容协议统一走 Eino 的 OpenAI 适配器
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cred.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			Timeout:     pc.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create eino chat model for %s: %w", provider, err)
		}
		return chatModel, nil
	case ProviderAnthropic:
		cc := &claude.Config{
			APIKey:      cred.APIKey,
			Model:       modelName,
			MaxTokens:   maxTokens,
			Temperature: &temperature,
		}
		if baseURL := strings.TrimSpace(pc.BaseURL); baseURL != "" {
			cc.BaseURL = &baseURL
		}
		chatModel, err := claude.NewChatModel(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("failed to create eino chat model for %s: %w", provider, err)
		}
		return chatModel, nil
	case ProviderGoogle:
		// genai 通过 x-goog-api-key 头传递密钥，不会出现在请求 URL 中
		gc := &genai.ClientConfig{
			APIKey:  cred.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if baseURL := strings.TrimSpace(pc.BaseURL); baseURL != "" {
			gc.HTTPOptions.BaseURL = baseURL
		}
		client, err := genai.NewClient(ctx, gc)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create eino chat model for %s: %w", provider, err)
		}
		return chatModel, nil
	case ProviderMock:
		return newMockChatModel(modelName), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}

// RequiresCredential 提供商是否需要密钥
func RequiresCredential(provider string) bool {
	return strings.ToLower(strings.TrimSpace(provider)) != ProviderMock
}

func cacheKey(provider, modelName, apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return provider + "|" + modelName + "|" + hex.EncodeToString(sum[:8])
}
