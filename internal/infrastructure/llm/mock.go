package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"book-engine/internal/domain/service"
)

// mockChatModel 离线确定性模型，按工作流返回格式正确的内容
type mockChatModel struct {
	model string
}

func newMockChatModel(modelName string) *mockChatModel {
	if modelName == "" {
		modelName = "mock-writer"
	}
	return &mockChatModel{model: modelName}
}

// Generate 实现 model.BaseChatModel
func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	conf := &model.Config{Model: m.model}
	ctx = callbacks.EnsureRunInfo(ctx, m.GetType(), components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: input, Config: conf})

	prompt := ""
	if len(input) > 0 && input[len(input)-1] != nil {
		prompt = input[len(input)-1].Content
	}
	text := mockReply(service.WorkflowFromContext(ctx), prompt)

	promptTokens := 0
	for _, msg := range input {
		if msg != nil {
			promptTokens += utf8.RuneCountInString(msg.Content)
		}
	}
	completionTokens := utf8.RuneCountInString(text)
	msg := schema.AssistantMessage(text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}}
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message: msg,
		Config:  conf,
		TokenUsage: &model.TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
	return msg, nil
}

// Stream 以单块流返回完整结果
func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// GetType 实现 components.Typer
func (m *mockChatModel) GetType() string { return "Mock" }

// IsCallbacksEnabled 回调由本组件自行触发
func (m *mockChatModel) IsCallbacksEnabled() bool { return true }

func mockReply(workflow, prompt string) string {
	switch workflow {
	case service.WorkflowOutlinePlan:
		return `{"chapters":[` +
			`{"title":"第一章：雾中来信","outline":"主角收到一封没有署名的信，信中提到一桩旧案。","characters":["主角"],"clues":["无名来信"]},` +
			`{"title":"第二章：旧案重提","outline":"主角走访旧案相关人，发现证词互相矛盾。","characters":["主角","关键配角"],"clues":["矛盾证词"]},` +
			`{"title":"第三章：反向线索","outline":"来信者身份浮出水面，旧案真相指向更深的阴谋。","characters":["主角","关键配角","潜在对手"],"clues":["来信者身份"]}]}`
	case service.WorkflowChapterSummary:
		return "本章主角在压力下做出选择，主线冲突进一步升级，并留下新的悬念。"
	case service.WorkflowCharacterState:
		return "{}"
	case service.WorkflowClueTrack:
		return `{"resolved":[],"newClues":[]}`
	case service.WorkflowLoreExpand:
		return `{"world":"一座常年被雾笼罩的港口城市，旧案与新案交织。","factions":["港务局","雾港商会"],"protagonist":"被迫卷入旧案的年轻记者","sideCharacters":["退休警探"],"finalGoal":"揭开雾港旧案的真相"}`
	case service.WorkflowConnectionTest:
		return "OK"
	default:
		brief := strings.TrimSpace(prompt)
		if r := []rune(brief); len(r) > 80 {
			brief = string(r[:80])
		}
		return fmt.Sprintf("（模拟生成）夜色压在城市上空，故事沿着既定的走向缓缓展开。\n\n%s", brief)
	}
}
