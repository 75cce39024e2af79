package workspace

import (
	"context"
	"strings"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/repository"
	"book-engine/internal/domain/service"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
)

// 连接测试使用的固定提示词
const (
	connectionTestSystem = `你是一个简洁的助手，只回复"连接测试"四个字`
	connectionTestPrompt = `请回复"连接测试"`
)

// ConnectionTester 使用指定设置发起一次生成
type ConnectionTester interface {
	GenerateWith(ctx context.Context, s entity.Settings, req service.GenerateRequest) (string, error)
}

// SettingsInput 设置更新参数
type SettingsInput struct {
	Provider string
	Model    string
	APIKey   string
	Theme    string
}

// ConnectionResult 连接测试结果
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reply   string `json:"reply,omitempty"`
}

// SettingsService 全局设置管理
type SettingsService struct {
	repo      repository.SettingsRepository
	tester    ConnectionTester
	providers map[string]struct{}
}

// NewSettingsService 创建设置服务，providers 为允许的提供商名
func NewSettingsService(repo repository.SettingsRepository, tester ConnectionTester, providers []string) *SettingsService {
	set := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		set[p] = struct{}{}
	}
	return &SettingsService{repo: repo, tester: tester, providers: set}
}

// Get 返回遮蔽密钥后的设置
func (s *SettingsService) Get(ctx context.Context) (entity.Settings, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return entity.Settings{}, err
	}
	return current.Masked(), nil
}

// Update 保存设置
// 密钥为空或是遮蔽后的回显时保留已存储的密钥
func (s *SettingsService) Update(ctx context.Context, in SettingsInput) (entity.Settings, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return entity.Settings{}, err
	}
	next, err := s.merge(current, in)
	if err != nil {
		return entity.Settings{}, err
	}
	if next.Theme != "light" && next.Theme != "dark" {
		return entity.Settings{}, apperrors.InvalidParam("theme must be light or dark")
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return entity.Settings{}, err
	}
	logger.Info(ctx, "settings updated", "provider", next.Provider, "model", next.Model)
	return next.Masked(), nil
}

// TestConnection 用候选设置做一次极小的生成，不落盘
func (s *SettingsService) TestConnection(ctx context.Context, in SettingsInput) (*ConnectionResult, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	candidate, err := s.merge(current, in)
	if err != nil {
		return nil, err
	}

	reply, err := s.tester.GenerateWith(ctx, candidate, service.GenerateRequest{
		Prompt:       connectionTestPrompt,
		SystemPrompt: connectionTestSystem,
		Workflow:     service.WorkflowConnectionTest,
	})
	if err != nil {
		logger.Warn(ctx, "connection test failed", "provider", candidate.Provider, "error", err.Error())
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.ErrLLMCallFailed.WithError(err)
	}
	return &ConnectionResult{Success: true, Message: "AI服务连接正常", Reply: reply}, nil
}

func (s *SettingsService) merge(current entity.Settings, in SettingsInput) (entity.Settings, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	model := strings.TrimSpace(in.Model)
	if provider == "" || model == "" {
		return entity.Settings{}, apperrors.InvalidParam("provider and model are required")
	}
	if _, ok := s.providers[provider]; len(s.providers) > 0 && !ok {
		return entity.Settings{}, apperrors.InvalidParam("unsupported provider: " + provider)
	}

	next := current
	next.Provider = provider
	next.Model = model
	if key := strings.TrimSpace(in.APIKey); key != "" && !isMaskedKey(key) {
		next.APIKey = key
	}
	if theme := strings.TrimSpace(in.Theme); theme != "" {
		next.Theme = theme
	}
	return next, nil
}

// isMaskedKey 判断是否为 Settings.Masked 产生的回显值
func isMaskedKey(key string) bool {
	return strings.HasPrefix(key, "****")
}
