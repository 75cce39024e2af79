package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/repository"
	"book-engine/internal/domain/service"
	"book-engine/internal/infrastructure/persistence/jsonfs"
	"book-engine/internal/workflow/node"
	workflowprompt "book-engine/internal/workflow/prompt"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
	"book-engine/pkg/metrics"
	"book-engine/pkg/tracer"
)

// 章节生成结果标签
const (
	genStatusGenerated = "generated"
	genStatusFailed    = "failed"
	genStatusRejected  = "rejected"
)

// FallbackNotice 生成失败时占位正文的标记段落
const FallbackNotice = "【占位正文】内容生成服务暂不可用，本章依据大纲自动生成占位内容，请稍后重新生成。"

// GenerationOptions 章节生成参数
type GenerationOptions struct {
	// Timeout 单次生成调用的上限，<=0 表示不额外限制
	Timeout           time.Duration
	PreviousTailRunes int
	NextPreviewRunes  int
}

// DefaultGenerationOptions 默认生成参数
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		Timeout:           120 * time.Second,
		PreviousTailRunes: 500,
		NextPreviewRunes:  200,
	}
}

// BatchItem 批量生成中单章的结果
// 失败时只携带错误码与对外消息，底层错误链仅写入日志
type BatchItem struct {
	ChapterID string              `json:"chapterId"`
	Chapter   *entity.ChapterData `json:"chapter,omitempty"`
	ErrorCode string              `json:"errorCode,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// BatchResult 批量生成结果
type BatchResult struct {
	Queue []string    `json:"queue"`
	Items []BatchItem `json:"items"`
}

// ChapterGenerator 驱动单章的 locked → generating → generated|failed 状态流转
type ChapterGenerator struct {
	books      repository.BookRepository
	lore       repository.LoreRepository
	outlines   repository.OutlineRepository
	chapters   repository.ChapterRepository
	generator  service.Generator
	locker     service.GenerationLocker
	reconciler *LoreReconciler
	prompts    *workflowprompt.Registry
	opts       GenerationOptions
}

// NewChapterGenerator 创建章节生成器
func NewChapterGenerator(
	books repository.BookRepository,
	lore repository.LoreRepository,
	outlines repository.OutlineRepository,
	chapters repository.ChapterRepository,
	generator service.Generator,
	locker service.GenerationLocker,
	reconciler *LoreReconciler,
	prompts *workflowprompt.Registry,
	opts GenerationOptions,
) *ChapterGenerator {
	return &ChapterGenerator{
		books:      books,
		lore:       lore,
		outlines:   outlines,
		chapters:   chapters,
		generator:  generator,
		locker:     locker,
		reconciler: reconciler,
		prompts:    prompts,
		opts:       opts,
	}
}

// chapterContext 组装提示词所需的上下文
type chapterContext struct {
	node         entity.OutlineNode
	previousTail string
	nextPreview  string
	style        string
}

// GenerateChapterDraft 生成一章正文
//
// 同一 (book, chapter) 已在生成中时立即返回 ErrAlreadyGenerating 且不做任何修改。
// 生成失败时写入占位正文、将节点置为 failed，再返回包裹原因的 ErrGenerationUnavailable。
func (g *ChapterGenerator) GenerateChapterDraft(ctx context.Context, bookID, chapterID string) (_ *entity.ChapterData, err error) {
	if err := jsonfs.ValidateBookID(bookID); err != nil {
		return nil, err
	}
	if err := jsonfs.ValidateChapterID(chapterID); err != nil {
		return nil, err
	}

	ctx, span := tracer.StartWithBook(ctx, "workspace.ChapterGenerator.GenerateChapterDraft", bookID, chapterID)
	defer func() { tracer.EndWithError(span, err) }()
	ctx = logger.WithChapter(ctx, bookID, chapterID)

	meta, err := g.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	release, err := g.locker.Acquire(ctx, bookID, chapterID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrAlreadyGenerating) {
			metrics.ChapterGenerationTotal.WithLabelValues(genStatusRejected).Inc()
			logger.Info(ctx, "chapter generation rejected, already in flight")
		}
		return nil, err
	}
	defer release()

	metrics.ChapterGenerationInFlight.Inc()
	defer metrics.ChapterGenerationInFlight.Dec()
	start := time.Now()
	defer func() { metrics.ChapterGenerationDuration.Observe(time.Since(start).Seconds()) }()

	cc, err := g.markGenerating(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	g.assembleContext(ctx, bookID, meta, cc)

	content, genErr := g.generate(ctx, cc)
	if genErr != nil {
		logger.Warn(ctx, "chapter generation failed, writing fallback body", "error", genErr.Error())
		if err := g.persistFallback(ctx, bookID, cc.node); err != nil {
			return nil, err
		}
		metrics.ChapterGenerationTotal.WithLabelValues(genStatusFailed).Inc()
		return nil, apperrors.ErrGenerationUnavailable.WithDetail(chapterID).WithError(genErr)
	}

	chapter := entity.NewChapterData(chapterID, cc.node.ChapterTitle, content)
	if err := g.chapters.Save(ctx, bookID, chapter); err != nil {
		return nil, err
	}
	if err := g.setStatus(ctx, bookID, chapterID, entity.NodeStatusGenerated); err != nil {
		return nil, err
	}
	metrics.ChapterGenerationTotal.WithLabelValues(genStatusGenerated).Inc()
	metrics.ChapterWordCount.Observe(float64(chapter.WordCount))
	logger.Info(ctx, "chapter generated", "word_count", chapter.WordCount, "duration_ms", time.Since(start).Milliseconds())

	if g.reconciler != nil {
		cc.node.Status = entity.NodeStatusGenerated
		if _, err := g.reconciler.Reconcile(ctx, bookID, chapter, cc.node); err != nil {
			logger.Warn(ctx, "post-generation reconcile incomplete", "error", err.Error())
		}
	}
	return chapter, nil
}

// GenerateBatchThree 依次生成 ch_001..ch_003
// 单章生成不可用只记录在该章结果中，其余错误中止批次
func (g *ChapterGenerator) GenerateBatchThree(ctx context.Context, bookID string) (*BatchResult, error) {
	result := &BatchResult{
		Queue: make([]string, 0, PlanWindow),
		Items: make([]BatchItem, 0, PlanWindow),
	}
	for i := 1; i <= PlanWindow; i++ {
		result.Queue = append(result.Queue, entity.ChapterIDFor(i))
	}

	for _, chapterID := range result.Queue {
		chapter, err := g.GenerateChapterDraft(ctx, bookID, chapterID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrGenerationUnavailable) {
				appErr := apperrors.AsAppError(err)
				result.Items = append(result.Items, BatchItem{
					ChapterID: chapterID,
					ErrorCode: string(appErr.Code),
					Error:     appErr.Message,
				})
				continue
			}
			return result, err
		}
		result.Items = append(result.Items, BatchItem{ChapterID: chapterID, Chapter: chapter})
	}
	return result, nil
}

// markGenerating 在外部调用之前落盘 generating 状态，并取出前后节点
func (g *ChapterGenerator) markGenerating(ctx context.Context, bookID, chapterID string) (*chapterContext, error) {
	cc := &chapterContext{}
	var prev, next *entity.OutlineNode

	_, err := g.outlines.Update(ctx, bookID, func(outline *entity.Outline) error {
		i := outline.Find(chapterID)
		if i < 0 {
			return apperrors.ErrOutlineNodeNotFound.WithDetail(chapterID)
		}
		(*outline)[i].Status = entity.NodeStatusGenerating
		cc.node = (*outline)[i]
		if i > 0 {
			n := (*outline)[i-1]
			prev = &n
		}
		if i+1 < len(*outline) {
			n := (*outline)[i+1]
			next = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if prev != nil && prev.Status == entity.NodeStatusGenerated {
		ch, err := g.chapters.Get(ctx, bookID, prev.ChapterID)
		switch {
		case err == nil:
			cc.previousTail = node.TailByRunes(strings.TrimSpace(ch.Content), g.opts.PreviousTailRunes)
		case apperrors.Is(err, apperrors.ErrChapterNotFound):
		default:
			logger.Warn(ctx, "previous chapter unreadable, continuing without tail", "previous", prev.ChapterID, "error", err.Error())
		}
	}
	if next != nil {
		cc.nextPreview = node.TruncateByRunes(strings.TrimSpace(next.ChapterContentOutline), g.opts.NextPreviewRunes)
	}
	return cc, nil
}

// assembleContext 填充文风指令：书籍文风快照优先，其次取世界观
func (g *ChapterGenerator) assembleContext(ctx context.Context, bookID string, meta *entity.BookMeta, cc *chapterContext) {
	world := ""
	if meta.StyleSnapshot == nil {
		lore, err := g.lore.Get(ctx, bookID)
		if err != nil {
			logger.Warn(ctx, "lore unreadable, continuing without world directive", "error", err.Error())
		} else {
			world = lore.World
		}
	}
	cc.style = StyleDirective(meta.StyleSnapshot, world)
}

func (g *ChapterGenerator) generate(ctx context.Context, cc *chapterContext) (string, error) {
	system, user, err := g.prompts.Render(ctx, workflowprompt.PromptChapterGenV1, map[string]any{
		"style_directive": cc.style,
		"chapter_title":   cc.node.ChapterTitle,
		"chapter_outline": cc.node.ChapterContentOutline,
		"previous_block":  node.Block("上一章结尾：", cc.previousTail),
		"next_block":      node.Block("下一章简要：", cc.nextPreview),
	})
	if err != nil {
		return "", err
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	content, err := g.generator.Generate(ctx, service.GenerateRequest{
		Prompt:       user,
		SystemPrompt: system,
		Workflow:     service.WorkflowChapterGen,
	})
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("empty chapter content")
	}
	return content, nil
}

func (g *ChapterGenerator) persistFallback(ctx context.Context, bookID string, n entity.OutlineNode) error {
	chapter := entity.NewChapterData(n.ChapterID, n.ChapterTitle, FallbackBody(n))
	if err := g.chapters.Save(ctx, bookID, chapter); err != nil {
		return err
	}
	return g.setStatus(ctx, bookID, n.ChapterID, entity.NodeStatusFailed)
}

func (g *ChapterGenerator) setStatus(ctx context.Context, bookID, chapterID string, status entity.NodeStatus) error {
	_, err := g.outlines.Update(ctx, bookID, func(outline *entity.Outline) error {
		if !outline.SetStatus(chapterID, status) {
			return apperrors.ErrOutlineNodeNotFound.WithDetail(chapterID)
		}
		return nil
	})
	return err
}

// FallbackBody 仅由大纲标题与梗概拼成的占位正文
func FallbackBody(n entity.OutlineNode) string {
	return strings.Join([]string{
		n.ChapterTitle,
		"",
		n.ChapterContentOutline,
		"",
		FallbackNotice,
	}, "\n")
}

// StyleDirective 构造章节生成的系统提示
func StyleDirective(style *entity.StylePreset, world string) string {
	if style != nil {
		parts := make([]string, 0, 3)
		if sp := strings.TrimSpace(style.SystemPrompt); sp != "" {
			parts = append(parts, sp)
		}
		if vocab := cleanStrings(style.Vocabulary); len(vocab) > 0 {
			parts = append(parts, "推荐使用的词汇："+strings.Join(vocab, "、"))
		}
		if banned := cleanStrings(style.ProhibitedWords); len(banned) > 0 {
			parts = append(parts, "禁止使用的词汇："+strings.Join(banned, "、"))
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	if w := strings.TrimSpace(world); w != "" {
		return "你是一位专业的小说作家。请严格遵循以下世界观设定进行创作，保持设定一致：\n" + node.TruncateByRunes(w, 1000)
	}
	return "你是一位专业的小说作家，擅长撰写情节连贯、节奏紧凑的章节。"
}
