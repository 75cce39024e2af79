package handler

import (
	"github.com/gin-gonic/gin"

	"book-engine/internal/application/workspace"
	"book-engine/internal/interfaces/http/dto"
)

// BookHandler 书籍工作区处理器
type BookHandler struct {
	svc        *workspace.Service
	planner    *workspace.OutlinePlanner
	generator  *workspace.ChapterGenerator
	reconciler *workspace.LoreReconciler
}

// NewBookHandler 创建书籍处理器
func NewBookHandler(
	svc *workspace.Service,
	planner *workspace.OutlinePlanner,
	generator *workspace.ChapterGenerator,
	reconciler *workspace.LoreReconciler,
) *BookHandler {
	return &BookHandler{
		svc:        svc,
		planner:    planner,
		generator:  generator,
		reconciler: reconciler,
	}
}

// ListBooks 列出书籍
// @Router /v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	books, err := h.svc.ListBooks(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list books", err)
		return
	}
	dto.Success(c, books)
}

// CreateBook 创建书籍
// @Router /v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if !bindJSON(c, &req) {
		return
	}
	meta, err := h.svc.CreateBook(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, "failed to create book", err)
		return
	}
	dto.Created(c, meta)
}

// GetBook 获取书籍元数据
// @Router /v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	meta, err := h.svc.GetMeta(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to get book", err)
		return
	}
	dto.Success(c, meta)
}

// UpdateBook 部分更新书籍元数据
// @Router /v1/books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	var req dto.UpdateBookRequest
	if !bindJSON(c, &req) {
		return
	}
	meta, err := h.svc.UpdateMeta(c.Request.Context(), c.Param("id"), req.ToInput())
	if err != nil {
		respondError(c, "failed to update book", err)
		return
	}
	dto.Success(c, meta)
}

// GetWorkspace 读取工作区，书籍不存在时 meta 为 null
// @Router /v1/books/{id}/workspace [get]
func (h *BookHandler) GetWorkspace(c *gin.Context) {
	ws, err := h.svc.ReadWorkspace(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to read workspace", err)
		return
	}
	dto.Success(c, ws)
}

// ExpandLore 扩展世界观设定
// @Router /v1/books/{id}/expand-lore [post]
func (h *BookHandler) ExpandLore(c *gin.Context) {
	var req dto.ExpandLoreRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	res, err := h.svc.ExpandLore(c.Request.Context(), c.Param("id"), req.ToOverrides())
	if err != nil {
		respondError(c, "failed to expand lore", err)
		return
	}
	dto.Success(c, res)
}

// PlanNextThree 规划接下来三章大纲
// @Router /v1/books/{id}/outline/plan-next-three [post]
func (h *BookHandler) PlanNextThree(c *gin.Context) {
	outline, err := h.planner.EnsureOutlineThree(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to plan outline", err)
		return
	}
	dto.Success(c, gin.H{"outline": outline})
}

// GenerateChapter 生成单章
// @Router /v1/books/{id}/chapters/{chapterId}/generate [post]
func (h *BookHandler) GenerateChapter(c *gin.Context) {
	chapter, err := h.generator.GenerateChapterDraft(c.Request.Context(), c.Param("id"), c.Param("chapterId"))
	if err != nil {
		respondError(c, "chapter generation failed", err)
		return
	}
	dto.Success(c, chapter)
}

// BatchGenerateThree 依次生成前三章
// @Router /v1/books/{id}/chapters/batch-generate-three [post]
func (h *BookHandler) BatchGenerateThree(c *gin.Context) {
	res, err := h.generator.GenerateBatchThree(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "batch generation failed", err)
		return
	}
	dto.Success(c, res)
}

// GetChapter 获取章节
// @Router /v1/books/{id}/chapters/{chapterId} [get]
func (h *BookHandler) GetChapter(c *gin.Context) {
	chapter, err := h.svc.GetChapter(c.Request.Context(), c.Param("id"), c.Param("chapterId"))
	if err != nil {
		respondError(c, "failed to get chapter", err)
		return
	}
	dto.Success(c, chapter)
}

// UpdateChapter 手动编辑章节
// @Router /v1/books/{id}/chapters/{chapterId} [put]
func (h *BookHandler) UpdateChapter(c *gin.Context) {
	var req dto.UpdateChapterRequest
	if !bindJSON(c, &req) {
		return
	}
	chapter, err := h.svc.UpdateChapter(c.Request.Context(), c.Param("id"), c.Param("chapterId"), req.Title, req.Content)
	if err != nil {
		respondError(c, "failed to update chapter", err)
		return
	}
	dto.Success(c, chapter)
}

// ReflexChapter 对已有章节重新执行设定对账
// @Router /v1/books/{id}/reflex-chapter [post]
func (h *BookHandler) ReflexChapter(c *gin.Context) {
	var req dto.ReflexChapterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.reconciler.ReflexChapter(c.Request.Context(), c.Param("id"), req.ChapterID)
	if err != nil {
		respondError(c, "failed to reconcile chapter", err)
		return
	}
	dto.Success(c, res)
}

// Progress 写作进度
// @Router /v1/books/{id}/progress [get]
func (h *BookHandler) Progress(c *gin.Context) {
	p, err := h.svc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to compute progress", err)
		return
	}
	dto.Success(c, p)
}

// Stats 书籍统计
// @Router /v1/books/{id}/stats [get]
func (h *BookHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to compute stats", err)
		return
	}
	dto.Success(c, st)
}

// Clues 伏笔列表
// @Router /v1/books/{id}/clues [get]
func (h *BookHandler) Clues(c *gin.Context) {
	clues, err := h.svc.Clues(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to list clues", err)
		return
	}
	dto.Success(c, clues)
}

// ReadBook 按大纲顺序读取全书
// @Router /v1/books/{id}/read [get]
func (h *BookHandler) ReadBook(c *gin.Context) {
	chapters, err := h.svc.ReadBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to read book", err)
		return
	}
	dto.Success(c, dto.NewReadBookResponse(chapters))
}
