package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/repository"
	"book-engine/internal/domain/service"
	"book-engine/internal/infrastructure/persistence/jsonfs"
	"book-engine/internal/workflow/node"
	workflowprompt "book-engine/internal/workflow/prompt"
	"book-engine/pkg/logger"
	"book-engine/pkg/metrics"
	"book-engine/pkg/tracer"
	"book-engine/pkg/utils"
)

// 人物状态启发式描述
const (
	characterNoteMentioned = "状态在本章中有所体现"
	characterNoteUnchanged = "状态保持不变"
)

// ClueTracking 伏笔追踪结果，Degraded 表示响应缺失或无法解析
type ClueTracking struct {
	Resolved []string `json:"resolved"`
	NewClues []string `json:"newClues"`
	Degraded bool     `json:"degraded,omitempty"`
}

// ReconcileResult 一次章节对账的产出
type ReconcileResult struct {
	Summary          string            `json:"summary"`
	CharacterUpdates map[string]string `json:"characterUpdates"`
	ClueTracking     ClueTracking      `json:"clueTracking"`
	Lore             *entity.LoreData  `json:"updatedLore"`
	Outline          entity.Outline    `json:"updatedOutline"`
}

// LoreReconciler 根据新章节更新摘要、人物状态与伏笔账本
type LoreReconciler struct {
	lore      repository.LoreRepository
	outlines  repository.OutlineRepository
	chapters  repository.ChapterRepository
	generator service.Generator
	prompts   *workflowprompt.Registry
	newClueID func() string
	// budget 三次生成调用共用的时间上限，0 表示只受各调用自身超时约束
	budget time.Duration
}

// NewLoreReconciler 创建设定对账器
func NewLoreReconciler(
	lore repository.LoreRepository,
	outlines repository.OutlineRepository,
	chapters repository.ChapterRepository,
	generator service.Generator,
	prompts *workflowprompt.Registry,
) *LoreReconciler {
	return &LoreReconciler{
		lore:      lore,
		outlines:  outlines,
		chapters:  chapters,
		generator: generator,
		prompts:   prompts,
		newClueID: func() string { return utils.NewPrefixedID("clue", 5) },
	}
}

// WithBudget 限定一次对账内全部生成调用的总耗时
// 预算耗尽后剩余调用按失败降级，落盘不受影响
func (r *LoreReconciler) WithBudget(d time.Duration) *LoreReconciler {
	r.budget = d
	return r
}

// Reconcile 对一章正文执行摘要、人物状态与伏笔追踪
//
// 三次生成调用各自独立降级，不会因单个调用失败而中断。
// 设定与大纲是两次独立写入，任一失败都不回滚另一个，错误合并后返回。
func (r *LoreReconciler) Reconcile(ctx context.Context, bookID string, chapter *entity.ChapterData, outlineNode entity.OutlineNode) (_ *ReconcileResult, err error) {
	ctx, span := tracer.StartWithBook(ctx, "workspace.LoreReconciler.Reconcile", bookID, chapter.ChapterID)
	defer func() { tracer.EndWithError(span, err) }()
	ctx = logger.WithChapter(ctx, bookID, chapter.ChapterID)

	genCtx := ctx
	if r.budget > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, r.budget)
		defer cancel()
	}

	result := &ReconcileResult{}
	result.Summary = r.summarize(genCtx, chapter)
	result.CharacterUpdates = r.characterNotes(genCtx, chapter, outlineNode.Characters)

	current, err := r.lore.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	result.ClueTracking = r.trackClues(genCtx, chapter, current.ClueTitles())

	var errs []error

	if len(result.ClueTracking.Resolved)+len(result.ClueTracking.NewClues) > 0 {
		var resolved, added int
		updated, loreErr := r.lore.Update(ctx, bookID, func(lore *entity.LoreData) error {
			lore.Clues, resolved, added = applyClueTracking(lore.Clues, result.ClueTracking, r.newClueID)
			return nil
		})
		if loreErr != nil {
			logger.Error(ctx, "failed to persist clue ledger", loreErr)
			errs = append(errs, loreErr)
			result.Lore = current
		} else {
			metrics.ClueReconcileTotal.WithLabelValues("resolved").Add(float64(resolved))
			metrics.ClueReconcileTotal.WithLabelValues("added").Add(float64(added))
			result.Lore = updated
		}
	} else {
		result.Lore = current
	}

	outline, outlineErr := r.outlines.Update(ctx, bookID, func(outline *entity.Outline) error {
		i := outline.Find(chapter.ChapterID)
		if i < 0 {
			return nil
		}
		if result.Summary != "" {
			(*outline)[i].Summary = result.Summary
		}
		if len(result.CharacterUpdates) > 0 {
			(*outline)[i].CharacterNotes = result.CharacterUpdates
		}
		return nil
	})
	if outlineErr != nil {
		logger.Error(ctx, "failed to persist outline notes", outlineErr)
		errs = append(errs, outlineErr)
	} else {
		result.Outline = outline
	}

	return result, errors.Join(errs...)
}

// ReflexChapter 对已存在的章节按需重新对账
func (r *LoreReconciler) ReflexChapter(ctx context.Context, bookID, chapterID string) (*ReconcileResult, error) {
	if err := jsonfs.ValidateBookID(bookID); err != nil {
		return nil, err
	}
	if err := jsonfs.ValidateChapterID(chapterID); err != nil {
		return nil, err
	}
	chapter, err := r.chapters.Get(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	outline, err := r.outlines.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	n := entity.OutlineNode{ChapterID: chapterID, ChapterTitle: chapter.Title}
	if i := outline.Find(chapterID); i >= 0 {
		n = outline[i]
	}
	return r.Reconcile(ctx, bookID, chapter, n)
}

func (r *LoreReconciler) summarize(ctx context.Context, chapter *entity.ChapterData) string {
	resp, err := r.generate(ctx, workflowprompt.PromptChapterSummaryV1, service.WorkflowChapterSummary, map[string]any{
		"chapter_title": chapter.Title,
		"content":       chapter.Content,
	})
	if err != nil {
		logger.Warn(ctx, "chapter summary skipped", "error", err.Error())
		return ""
	}
	return resp
}

// characterNotes 优先按 JSON 解析，缺失的人物回落到是否被提及的启发式判断
func (r *LoreReconciler) characterNotes(ctx context.Context, chapter *entity.ChapterData, characters []string) map[string]string {
	names := cleanStrings(characters)
	if len(names) == 0 {
		return map[string]string{}
	}

	resp, err := r.generate(ctx, workflowprompt.PromptCharacterStateV1, service.WorkflowCharacterState, map[string]any{
		"characters": strings.Join(names, "、"),
		"content":    chapter.Content,
	})
	if err != nil {
		logger.Warn(ctx, "character notes skipped", "error", err.Error())
		return map[string]string{}
	}
	return ParseCharacterNotes(resp, names)
}

// trackClues 把账本中全部伏笔标题交给模型，由模型判断哪些在本章回收
func (r *LoreReconciler) trackClues(ctx context.Context, chapter *entity.ChapterData, titles []string) ClueTracking {
	list := strings.Join(titles, "\n")
	if list == "" {
		list = "（暂无）"
	}
	resp, err := r.generate(ctx, workflowprompt.PromptClueTrackV1, service.WorkflowClueTrack, map[string]any{
		"content": chapter.Content,
		"clues":   list,
	})
	if err != nil {
		logger.Warn(ctx, "clue tracking degraded", "error", err.Error())
		return ParseClueTracking("")
	}
	tracking := ParseClueTracking(resp)
	if tracking.Degraded {
		logger.Warn(ctx, "clue tracking response could not be parsed")
	}
	return tracking
}

func (r *LoreReconciler) generate(ctx context.Context, id workflowprompt.PromptID, workflow string, vars map[string]any) (string, error) {
	system, user, err := r.prompts.Render(ctx, id, vars)
	if err != nil {
		return "", err
	}
	resp, err := r.generator.Generate(ctx, service.GenerateRequest{
		Prompt:       user,
		SystemPrompt: system,
		Workflow:     workflow,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// ParseCharacterNotes 解析 {人物: 状态} 对象，未覆盖的人物按是否被提及给出描述
func ParseCharacterNotes(resp string, names []string) map[string]string {
	var parsed map[string]string
	if !node.DecodeJSONObject(resp, &parsed) {
		parsed = nil
	}

	notes := make(map[string]string, len(names))
	for _, name := range names {
		if note := strings.TrimSpace(parsed[name]); note != "" {
			notes[name] = note
			continue
		}
		if strings.Contains(resp, name) {
			notes[name] = characterNoteMentioned
		} else {
			notes[name] = characterNoteUnchanged
		}
	}
	return notes
}

// ParseClueTracking 提取第一个 JSON 对象，失败时返回空的降级结果，从不报错
func ParseClueTracking(resp string) ClueTracking {
	degraded := ClueTracking{Resolved: []string{}, NewClues: []string{}, Degraded: true}
	if strings.TrimSpace(resp) == "" {
		return degraded
	}

	var raw struct {
		Resolved []string `json:"resolved"`
		NewClues []string `json:"newClues"`
	}
	if !node.DecodeJSONObject(resp, &raw) {
		return degraded
	}
	return ClueTracking{
		Resolved: cleanStrings(raw.Resolved),
		NewClues: cleanStrings(raw.NewClues),
	}
}

// ApplyClueTracking 把追踪结果合并进伏笔账本，返回新切片，不修改入参
//
// 新伏笔先以 pending 追加（标题已存在或为空白则跳过），随后 resolved 中的标题翻转为 resolved。
// 同一标题同时出现在两个列表时结果为 resolved，这样第二次应用同一结果不会再翻转状态。
// resolved 不会回退为 pending，重复应用同一结果不产生变化。
func ApplyClueTracking(clues []entity.Clue, t ClueTracking, newID func() string) []entity.Clue {
	out, _, _ := applyClueTracking(clues, t, newID)
	return out
}

func applyClueTracking(clues []entity.Clue, t ClueTracking, newID func() string) (out []entity.Clue, resolved, added int) {
	out = make([]entity.Clue, len(clues), len(clues)+len(t.NewClues))
	copy(out, clues)

	exists := make(map[string]struct{}, len(out))
	for _, c := range out {
		exists[strings.TrimSpace(c.Title)] = struct{}{}
	}
	for _, title := range t.NewClues {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		if _, ok := exists[title]; ok {
			continue
		}
		exists[title] = struct{}{}
		out = append(out, entity.Clue{ID: newID(), Title: title, Status: entity.ClueStatusPending})
		added++
	}

	resolvedSet := make(map[string]struct{}, len(t.Resolved))
	for _, title := range t.Resolved {
		if title = strings.TrimSpace(title); title != "" {
			resolvedSet[title] = struct{}{}
		}
	}
	for i := range out {
		if out[i].Status == entity.ClueStatusResolved {
			continue
		}
		if _, ok := resolvedSet[strings.TrimSpace(out[i].Title)]; ok {
			out[i].Status = entity.ClueStatusResolved
			resolved++
		}
	}
	return out, resolved, added
}
