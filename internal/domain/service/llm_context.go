package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"

	unknownLabel = "unknown"
)

// WithWorkflowProvider 注入工作流与提供商，供回调打点使用
// 空值不覆盖已有标签
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	ctx = withLabel(ctx, llmCtxKeyWorkflow, workflow)
	return withLabel(ctx, llmCtxKeyProvider, provider)
}

// WorkflowFromContext 读取工作流标签，缺省为 unknown
func WorkflowFromContext(ctx context.Context) string {
	return labelFrom(ctx, llmCtxKeyWorkflow)
}

// ProviderFromContext 读取提供商标签，缺省为 unknown
func ProviderFromContext(ctx context.Context) string {
	return labelFrom(ctx, llmCtxKeyProvider)
}

func withLabel(ctx context.Context, key llmCtxKey, value string) context.Context {
	v := strings.TrimSpace(value)
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func labelFrom(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknownLabel
	}
	s, _ := ctx.Value(key).(string)
	if s == "" {
		return unknownLabel
	}
	return s
}
