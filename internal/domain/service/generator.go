// Package service 定义跨层的领域服务契约
package service

import "context"

// 工作流名称，用于日志、指标与模板选择
const (
	WorkflowOutlinePlan    = "outline_plan"
	WorkflowChapterGen     = "chapter_gen"
	WorkflowChapterSummary = "chapter_summary"
	WorkflowCharacterState = "character_state"
	WorkflowClueTrack      = "clue_track"
	WorkflowLoreExpand     = "lore_expand"
	WorkflowConnectionTest = "connection_test"
)

// GenerateRequest 一次文本生成请求
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Workflow     string
}

// Generator 外部内容生成服务
// 任何错误都视为"生成不可用"，由调用方决定降级方式
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc 函数适配器
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
