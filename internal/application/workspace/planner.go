// Package workspace 实现书籍工作区的应用服务：大纲规划、章节生成、设定对账
package workspace

import (
	"context"
	"fmt"
	"strings"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/repository"
	"book-engine/internal/domain/service"
	"book-engine/internal/workflow/node"
	workflowprompt "book-engine/internal/workflow/prompt"
	"book-engine/pkg/logger"
	"book-engine/pkg/metrics"
	"book-engine/pkg/tracer"
)

// PlanWindow 滚动大纲窗口大小
const PlanWindow = 3

// 大纲来源标签
const (
	planSourceLLM      = "llm"
	planSourcePartial  = "partial"
	planSourceFallback = "fallback"
)

// FallbackOutline 内置三章模板，生成不可用时使用
func FallbackOutline() entity.Outline {
	return entity.Outline{
		{
			ChapterID:             entity.ChapterIDFor(1),
			ChapterTitle:          "第一章：风起之夜",
			ChapterContentOutline: "主角第一次直面异常事件，意识到主线冲突已经启动，并留下第一层悬念。",
			Characters:            []string{"主角"},
			Clues:                 []string{"初始核心伏笔"},
			Status:                entity.NodeStatusLocked,
		},
		{
			ChapterID:             entity.ChapterIDFor(2),
			ChapterTitle:          "第二章：暗潮试探",
			ChapterContentOutline: "核心势力第一次介入，主角做出代价型选择，冲突从个人扩展到组织层面。",
			Characters:            []string{"主角", "关键配角"},
			Clues:                 []string{"旧伏笔推进"},
			Status:                entity.NodeStatusLocked,
		},
		{
			ChapterID:             entity.ChapterIDFor(3),
			ChapterTitle:          "第三章：线索反噬",
			ChapterContentOutline: "伏笔出现反向解释，抛出更大悬念，为下一轮三章滚动规划留下断点。",
			Characters:            []string{"主角", "关键配角", "潜在对手"},
			Clues:                 []string{"新伏笔埋设"},
			Status:                entity.NodeStatusLocked,
		},
	}
}

type plannedChapter struct {
	Title      string   `json:"title"`
	Outline    string   `json:"outline"`
	Characters []string `json:"characters"`
	Clues      []string `json:"clues"`
}

type outlinePlan struct {
	Chapters []plannedChapter `json:"chapters"`
}

// OutlinePlanner 刷新滚动三章大纲
type OutlinePlanner struct {
	books     repository.BookRepository
	lore      repository.LoreRepository
	outlines  repository.OutlineRepository
	generator service.Generator
	prompts   *workflowprompt.Registry
}

// NewOutlinePlanner 创建大纲规划器
func NewOutlinePlanner(
	books repository.BookRepository,
	lore repository.LoreRepository,
	outlines repository.OutlineRepository,
	generator service.Generator,
	prompts *workflowprompt.Registry,
) *OutlinePlanner {
	return &OutlinePlanner{
		books:     books,
		lore:      lore,
		outlines:  outlines,
		generator: generator,
		prompts:   prompts,
	}
}

// EnsureOutlineThree 规划接下来三章并覆盖写入大纲
//
// 生成或解析失败只记录日志，逐槽回退到内置模板；结果总是三个 locked 节点。
func (p *OutlinePlanner) EnsureOutlineThree(ctx context.Context, bookID string) (_ entity.Outline, err error) {
	ctx, span := tracer.StartWithBook(ctx, "workspace.OutlinePlanner.EnsureOutlineThree", bookID, "")
	defer func() { tracer.EndWithError(span, err) }()
	ctx = logger.WithChapter(ctx, bookID, "")

	meta, err := p.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	lore, err := p.lore.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	prior, err := p.outlines.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	plan, genErr := p.requestPlan(ctx, meta, lore, prior)
	if genErr != nil {
		logger.Warn(ctx, "outline planning degraded to built-in template", "error", genErr.Error())
	}
	outline, source := mergePlan(plan)
	metrics.OutlinePlanTotal.WithLabelValues(source).Inc()

	if err = p.outlines.Save(ctx, bookID, outline); err != nil {
		return nil, err
	}
	if _, err = p.books.Update(ctx, bookID, func(*entity.BookMeta) error { return nil }); err != nil {
		return nil, err
	}

	logger.Info(ctx, "outline planned", "source", source, "chapters", len(outline))
	return outline, nil
}

// requestPlan 调用生成服务并解析结果，失败时返回 nil 计划与原因
func (p *OutlinePlanner) requestPlan(ctx context.Context, meta *entity.BookMeta, lore *entity.LoreData, prior entity.Outline) (*outlinePlan, error) {
	system, user, err := p.prompts.Render(ctx, workflowprompt.PromptOutlinePlanV1, map[string]any{
		"title":          meta.Title,
		"genre":          orDefault(meta.Genre, entity.DefaultGenre),
		"world":          orDefault(lore.World, "未设定"),
		"final_goal":     orDefault(meta.FinalGoal, orDefault(meta.OneLiner, "未设定")),
		"previous_block": node.Block("前置剧情：", priorSynopsis(prior)),
		"clues_block":    node.Block("待处理的伏笔：", strings.Join(lore.PendingClueTitles(), ", ")),
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.generator.Generate(ctx, service.GenerateRequest{
		Prompt:       user,
		SystemPrompt: system,
		Workflow:     service.WorkflowOutlinePlan,
	})
	if err != nil {
		return nil, err
	}

	var plan outlinePlan
	if !node.DecodeJSONObject(resp, &plan) {
		return nil, fmt.Errorf("outline response is not a JSON object")
	}
	return &plan, nil
}

// mergePlan 逐槽合并：标题与梗概都非空的章节采用生成结果，否则取模板对应槽
func mergePlan(plan *outlinePlan) (entity.Outline, string) {
	outline := FallbackOutline()
	if plan == nil {
		return outline, planSourceFallback
	}

	used := 0
	for i := 0; i < PlanWindow && i < len(plan.Chapters); i++ {
		c := plan.Chapters[i]
		title := strings.TrimSpace(c.Title)
		brief := strings.TrimSpace(c.Outline)
		if title == "" || brief == "" {
			continue
		}
		outline[i] = entity.OutlineNode{
			ChapterID:             entity.ChapterIDFor(i + 1),
			ChapterTitle:          title,
			ChapterContentOutline: brief,
			Characters:            cleanStrings(c.Characters),
			Clues:                 cleanStrings(c.Clues),
			Status:                entity.NodeStatusLocked,
		}
		used++
	}

	switch used {
	case PlanWindow:
		return outline, planSourceLLM
	case 0:
		return outline, planSourceFallback
	default:
		return outline, planSourcePartial
	}
}

// priorSynopsis 把已有大纲压缩成 "标题：摘要" 列表
func priorSynopsis(prior entity.Outline) string {
	parts := make([]string, 0, len(prior))
	for _, n := range prior {
		brief := strings.TrimSpace(n.Summary)
		if brief == "" {
			brief = node.TruncateByRunes(strings.TrimSpace(n.ChapterContentOutline), 200)
		}
		if brief == "" {
			parts = append(parts, n.ChapterTitle)
			continue
		}
		parts = append(parts, n.ChapterTitle+"："+brief)
	}
	return strings.Join(parts, "; ")
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
