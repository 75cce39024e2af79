// Package prompt 管理内嵌的提示词模板，并通过 eino ChatTemplate 渲染
package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptOutlinePlanV1    PromptID = "outline_plan_v1"
	PromptChapterGenV1     PromptID = "chapter_gen_v1"
	PromptChapterSummaryV1 PromptID = "chapter_summary_v1"
	PromptCharacterStateV1 PromptID = "character_state_v1"
	PromptClueTrackV1      PromptID = "clue_track_v1"
	PromptLoreExpandV1     PromptID = "lore_expand_v1"
)

var knownPrompts = map[PromptID]struct{}{
	PromptOutlinePlanV1:    {},
	PromptChapterGenV1:     {},
	PromptChapterSummaryV1: {},
	PromptCharacterStateV1: {},
	PromptClueTrackV1:      {},
	PromptLoreExpandV1:     {},
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// ChatTemplate 返回 system + user 两条消息组成的模板，首次访问时从内嵌文件构建
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// Render 渲染模板并拆出 system 与 user 文本
func (r *Registry) Render(ctx context.Context, id PromptID, vars map[string]any) (system string, user string, err error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return "", "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", "", fmt.Errorf("format prompt %s: %w", id, err)
	}
	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			system = strings.TrimSpace(m.Content)
		case schema.User:
			user = strings.TrimSpace(m.Content)
		}
	}
	if user == "" {
		return "", "", fmt.Errorf("prompt %s rendered an empty user message", id)
	}
	return system, user, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	if _, ok := knownPrompts[id]; !ok {
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
	return "templates/" + string(id) + ".system.txt", "templates/" + string(id) + ".user.txt", nil
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
