package workspace

import (
	"context"
	"math"
	"strings"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/repository"
	"book-engine/internal/domain/service"
	"book-engine/internal/infrastructure/persistence/jsonfs"
	"book-engine/internal/workflow/node"
	workflowprompt "book-engine/internal/workflow/prompt"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
	"book-engine/pkg/tracer"
)

// defaultProgressTarget 目标字数缺失时用于计算进度的分母
const defaultProgressTarget = 100000

// worldMaxRunes 解析失败时作为世界观保存的响应长度上限
const worldMaxRunes = 1000

// CredentialChecker 判断生成服务是否已配置凭据
type CredentialChecker interface {
	Configured(ctx context.Context) bool
}

// Workspace 书籍工作区快照
type Workspace struct {
	Meta    *entity.BookMeta `json:"meta"`
	Lore    entity.LoreData  `json:"lore"`
	Outline entity.Outline   `json:"outline"`
}

// CreateBookInput 创建书籍参数，零值字段取默认
type CreateBookInput struct {
	Title       string
	OneLiner    string
	Genre       string
	Readers     string
	TargetWords int
	Pace        string
	StyleID     string
}

// UpdateMetaInput 元数据部分更新，nil 表示不修改
type UpdateMetaInput struct {
	Title       *string
	OneLiner    *string
	Genre       *string
	Readers     *string
	TargetWords *int
	Pace        *string
	FinalGoal   *string
}

// LoreOverrides 扩展设定时显式指定的字段，优先于生成结果
type LoreOverrides struct {
	World          *string
	Factions       []string
	Protagonist    *string
	SideCharacters []string
}

// ExpandLoreResult 设定扩展结果
type ExpandLoreResult struct {
	Lore      *entity.LoreData `json:"lore"`
	FinalGoal string           `json:"finalGoal"`
	Degraded  bool             `json:"degraded,omitempty"`
}

// ChapterStats 章节计数
type ChapterStats struct {
	Planned int `json:"planned"`
	Written int `json:"written"`
	Locked  int `json:"locked"`
}

// Progress 写作进度
type Progress struct {
	Progress     float64      `json:"progress"`
	CurrentWords int          `json:"currentWords"`
	TargetWords  int          `json:"targetWords"`
	ChapterStats ChapterStats `json:"chapterStats"`
	LastUpdated  string       `json:"lastUpdated"`
}

// ClueStats 伏笔计数
type ClueStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}

// OutlineStats 大纲状态分布
type OutlineStats struct {
	Total      int `json:"total"`
	Planned    int `json:"planned"`
	Locked     int `json:"locked"`
	Generating int `json:"generating"`
	Generated  int `json:"generated"`
	Failed     int `json:"failed"`
}

// Stats 书籍统计
type Stats struct {
	Progress          int          `json:"progress"`
	TotalWordCount    int          `json:"totalWordCount"`
	CompletedChapters int          `json:"completedChapters"`
	ClueStats         ClueStats    `json:"clueStats"`
	OutlineStats      OutlineStats `json:"outlineStats"`
	UpdatedAt         string       `json:"updatedAt"`
}

// Clues 伏笔分组
type Clues struct {
	Pending  []entity.Clue `json:"pending"`
	Resolved []entity.Clue `json:"resolved"`
	Total    int           `json:"total"`
}

// expandedLore 设定扩展的期望 JSON 结构
type expandedLore struct {
	World          string   `json:"world"`
	Factions       []string `json:"factions"`
	Protagonist    string   `json:"protagonist"`
	SideCharacters []string `json:"sideCharacters"`
	FinalGoal      string   `json:"finalGoal"`
}

// Service 书籍工作区服务
type Service struct {
	books       repository.BookRepository
	lore        repository.LoreRepository
	outlines    repository.OutlineRepository
	chapters    repository.ChapterRepository
	styles      repository.StyleRepository
	generator   service.Generator
	credentials CredentialChecker
	prompts     *workflowprompt.Registry
}

// NewService 创建工作区服务
func NewService(
	books repository.BookRepository,
	lore repository.LoreRepository,
	outlines repository.OutlineRepository,
	chapters repository.ChapterRepository,
	styles repository.StyleRepository,
	generator service.Generator,
	credentials CredentialChecker,
	prompts *workflowprompt.Registry,
) *Service {
	return &Service{
		books:       books,
		lore:        lore,
		outlines:    outlines,
		chapters:    chapters,
		styles:      styles,
		generator:   generator,
		credentials: credentials,
		prompts:     prompts,
	}
}

// CreateBook 创建书籍并初始化工作区
func (s *Service) CreateBook(ctx context.Context, in CreateBookInput) (*entity.BookMeta, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.InvalidParam("title is required")
	}
	if in.TargetWords < 0 {
		return nil, apperrors.InvalidParam("targetWords must be positive")
	}

	meta := &entity.BookMeta{
		Title:       title,
		OneLiner:    strings.TrimSpace(in.OneLiner),
		Genre:       orDefault(in.Genre, entity.DefaultGenre),
		Readers:     orDefault(in.Readers, entity.DefaultReaders),
		TargetWords: in.TargetWords,
		Pace:        orDefault(in.Pace, entity.DefaultPace),
	}
	if meta.TargetWords == 0 {
		meta.TargetWords = entity.DefaultTargetWords
	}

	styles, err := s.styles.List(ctx)
	if err != nil {
		return nil, err
	}
	meta.StyleSnapshot = pickStyle(styles, strings.TrimSpace(in.StyleID))

	if err := s.books.Create(ctx, meta); err != nil {
		return nil, err
	}
	logger.Info(logger.WithChapter(ctx, meta.ID, ""), "book created", "title", meta.Title)
	return meta, nil
}

// pickStyle 指定预设优先，其次默认预设，都没有时为 nil
func pickStyle(styles []entity.StylePreset, styleID string) *entity.StylePreset {
	if styleID != "" {
		for _, st := range styles {
			if st.ID == styleID {
				return st.Clone()
			}
		}
	}
	for _, st := range styles {
		if st.IsDefault {
			return st.Clone()
		}
	}
	return nil
}

// GetMeta 获取元数据
func (s *Service) GetMeta(ctx context.Context, bookID string) (*entity.BookMeta, error) {
	return s.books.Get(ctx, bookID)
}

// UpdateMeta 部分更新元数据
func (s *Service) UpdateMeta(ctx context.Context, bookID string, in UpdateMetaInput) (*entity.BookMeta, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, apperrors.InvalidParam("title must not be empty")
	}
	if in.TargetWords != nil && *in.TargetWords <= 0 {
		return nil, apperrors.InvalidParam("targetWords must be positive")
	}
	return s.books.Update(ctx, bookID, func(meta *entity.BookMeta) error {
		setString(&meta.Title, in.Title)
		setString(&meta.OneLiner, in.OneLiner)
		setString(&meta.Genre, in.Genre)
		setString(&meta.Readers, in.Readers)
		setString(&meta.Pace, in.Pace)
		setString(&meta.FinalGoal, in.FinalGoal)
		if in.TargetWords != nil {
			meta.TargetWords = *in.TargetWords
		}
		return nil
	})
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// ExpandLore 调用生成服务扩写世界观、势力、人物与终极目标
//
// 生成失败时不修改任何文档；响应不是期望的 JSON 时，截取原文作为世界观。
func (s *Service) ExpandLore(ctx context.Context, bookID string, overrides LoreOverrides) (_ *ExpandLoreResult, err error) {
	ctx, span := tracer.StartWithBook(ctx, "workspace.Service.ExpandLore", bookID, "")
	defer func() { tracer.EndWithError(span, err) }()
	ctx = logger.WithChapter(ctx, bookID, "")

	meta, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if s.credentials != nil && !s.credentials.Configured(ctx) {
		return nil, apperrors.ErrNotConfigured
	}

	system, user, err := s.prompts.Render(ctx, workflowprompt.PromptLoreExpandV1, map[string]any{
		"title":     meta.Title,
		"one_liner": orDefault(meta.OneLiner, "暂无"),
		"genre":     orDefault(meta.Genre, entity.DefaultGenre),
		"readers":   orDefault(meta.Readers, entity.DefaultReaders),
	})
	if err != nil {
		return nil, err
	}
	resp, genErr := s.generator.Generate(ctx, service.GenerateRequest{
		Prompt:       user,
		SystemPrompt: system,
		Workflow:     service.WorkflowLoreExpand,
	})
	if genErr != nil {
		logger.Warn(ctx, "lore expansion unavailable", "error", genErr.Error())
		return nil, apperrors.ErrGenerationUnavailable.WithError(genErr)
	}

	expanded, degraded := parseExpandedLore(resp, meta)
	applyLoreOverrides(&expanded, overrides)

	lore, err := s.lore.Update(ctx, bookID, func(lore *entity.LoreData) error {
		lore.World = expanded.World
		lore.Protagonist = expanded.Protagonist
		if len(expanded.Factions) > 0 {
			lore.Factions = expanded.Factions
		}
		if len(expanded.SideCharacters) > 0 {
			lore.SideCharacters = expanded.SideCharacters
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err = s.books.Update(ctx, bookID, func(m *entity.BookMeta) error {
		m.FinalGoal = expanded.FinalGoal
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "lore expanded", "degraded", degraded)
	return &ExpandLoreResult{Lore: lore, FinalGoal: expanded.FinalGoal, Degraded: degraded}, nil
}

// parseExpandedLore 解析生成结果，缺字段时按书籍元数据补齐
func parseExpandedLore(resp string, meta *entity.BookMeta) (expandedLore, bool) {
	var out expandedLore
	degraded := !node.DecodeJSONObject(resp, &out) || strings.TrimSpace(out.World) == ""
	if degraded {
		out = expandedLore{World: node.TruncateByRunes(strings.TrimSpace(resp), worldMaxRunes)}
	}
	out.World = strings.TrimSpace(out.World)
	out.Factions = cleanStrings(out.Factions)
	out.SideCharacters = cleanStrings(out.SideCharacters)
	if strings.TrimSpace(out.Protagonist) == "" {
		out.Protagonist = "主角设定：" + meta.Title + "的主人公"
	}
	if strings.TrimSpace(out.FinalGoal) == "" {
		out.FinalGoal = "基于AI生成的目标：" + orDefault(meta.OneLiner, meta.Title) + "的最终实现"
	}
	out.Protagonist = strings.TrimSpace(out.Protagonist)
	out.FinalGoal = strings.TrimSpace(out.FinalGoal)
	return out, degraded
}

func applyLoreOverrides(out *expandedLore, o LoreOverrides) {
	if o.World != nil && strings.TrimSpace(*o.World) != "" {
		out.World = strings.TrimSpace(*o.World)
	}
	if o.Protagonist != nil && strings.TrimSpace(*o.Protagonist) != "" {
		out.Protagonist = strings.TrimSpace(*o.Protagonist)
	}
	if f := cleanStrings(o.Factions); len(f) > 0 {
		out.Factions = f
	}
	if sc := cleanStrings(o.SideCharacters); len(sc) > 0 {
		out.SideCharacters = sc
	}
}

// ReadWorkspace 读取工作区三件套
// 书籍不存在时 Meta 为 nil，设定与大纲为默认值，且不写入任何文件
func (s *Service) ReadWorkspace(ctx context.Context, bookID string) (*Workspace, error) {
	exists, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &Workspace{Lore: entity.NewLoreData(), Outline: entity.Outline{}}, nil
	}

	meta, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	lore, err := s.lore.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	outline, err := s.outlines.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if outline == nil {
		outline = entity.Outline{}
	}
	return &Workspace{Meta: meta, Lore: *lore, Outline: outline}, nil
}

// ListBooks 列出全部书籍，按 updatedAt 倒序
func (s *Service) ListBooks(ctx context.Context) ([]entity.BookMeta, error) {
	return s.books.List(ctx)
}

// Progress 按章节文件累计字数计算写作进度
func (s *Service) Progress(ctx context.Context, bookID string) (*Progress, error) {
	meta, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	outline, err := s.outlines.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	chapters, err := s.chapters.List(ctx, bookID)
	if err != nil {
		return nil, err
	}

	target := meta.TargetWords
	if target <= 0 {
		target = defaultProgressTarget
	}
	current := 0
	for _, ch := range chapters {
		current += ch.WordCount
	}

	locked := 0
	for _, n := range outline {
		if n.Status == entity.NodeStatusLocked || n.Status == entity.NodeStatusGenerated {
			locked++
		}
	}

	return &Progress{
		Progress:     math.Min(100, float64(current)/float64(target)*100),
		CurrentWords: current,
		TargetWords:  target,
		ChapterStats: ChapterStats{
			Planned: len(outline),
			Written: len(chapters),
			Locked:  locked,
		},
		LastUpdated: orDefault(meta.UpdatedAt, entity.Now()),
	}, nil
}

// Stats 按大纲状态统计字数、伏笔与节点分布
func (s *Service) Stats(ctx context.Context, bookID string) (*Stats, error) {
	meta, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	lore, err := s.lore.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	outline, err := s.outlines.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	st := &Stats{UpdatedAt: orDefault(meta.UpdatedAt, entity.Now())}
	for _, n := range outline {
		if n.Status != entity.NodeStatusGenerated {
			continue
		}
		st.CompletedChapters++
		ch, err := s.chapters.Get(ctx, bookID, n.ChapterID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrChapterNotFound) {
				logger.Warn(ctx, "generated chapter has no file", "book_id", bookID, "chapter_id", n.ChapterID)
				continue
			}
			return nil, err
		}
		st.TotalWordCount += ch.WordCount
	}
	if meta.TargetWords > 0 {
		st.Progress = int(math.Min(100, math.Round(float64(st.TotalWordCount)/float64(meta.TargetWords)*100)))
	}

	pending, resolved := lore.PartitionClues()
	st.ClueStats = ClueStats{Total: len(lore.Clues), Pending: len(pending), Resolved: len(resolved)}

	counts := outline.StatusCounts()
	st.OutlineStats = OutlineStats{
		Total:      len(outline),
		Planned:    counts[entity.NodeStatusPlanned],
		Locked:     counts[entity.NodeStatusLocked],
		Generating: counts[entity.NodeStatusGenerating],
		Generated:  counts[entity.NodeStatusGenerated],
		Failed:     counts[entity.NodeStatusFailed],
	}
	return st, nil
}

// Clues 按状态拆分伏笔
func (s *Service) Clues(ctx context.Context, bookID string) (*Clues, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return nil, err
	}
	lore, err := s.lore.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	pending, resolved := lore.PartitionClues()
	return &Clues{Pending: pending, Resolved: resolved, Total: len(lore.Clues)}, nil
}

// ReadBook 按大纲顺序返回已有正文的章节
func (s *Service) ReadBook(ctx context.Context, bookID string) ([]entity.ChapterData, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return nil, err
	}
	outline, err := s.outlines.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	out := make([]entity.ChapterData, 0, len(outline))
	for _, n := range outline {
		ch, err := s.chapters.Get(ctx, bookID, n.ChapterID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrChapterNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, nil
}

// GetChapter 获取章节
func (s *Service) GetChapter(ctx context.Context, bookID, chapterID string) (*entity.ChapterData, error) {
	return s.chapters.Get(ctx, bookID, chapterID)
}

// UpdateChapter 人工编辑章节标题与正文并重新计算字数
func (s *Service) UpdateChapter(ctx context.Context, bookID, chapterID, title, content string) (*entity.ChapterData, error) {
	if err := jsonfs.ValidateBookID(bookID); err != nil {
		return nil, err
	}
	if err := jsonfs.ValidateChapterID(chapterID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, apperrors.InvalidParam("title and content are required")
	}

	ch, err := s.chapters.Get(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	ch.Title = strings.TrimSpace(title)
	ch.SetContent(content)
	if err := s.chapters.Save(ctx, bookID, ch); err != nil {
		return nil, err
	}
	return ch, nil
}
