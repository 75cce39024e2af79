package handler

import (
	"github.com/gin-gonic/gin"

	"book-engine/internal/application/workspace"
	"book-engine/internal/interfaces/http/dto"
)

// StyleHandler 文风预设处理器
type StyleHandler struct {
	styles *workspace.StyleService
}

// NewStyleHandler 创建文风处理器
func NewStyleHandler(styles *workspace.StyleService) *StyleHandler {
	return &StyleHandler{styles: styles}
}

// ListStyles 列出预设
func (h *StyleHandler) ListStyles(c *gin.Context) {
	styles, err := h.styles.List(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list styles", err)
		return
	}
	dto.Success(c, styles)
}

// CreateStyle 新建预设
func (h *StyleHandler) CreateStyle(c *gin.Context) {
	var req dto.CreateStyleRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.styles.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, "failed to create style", err)
		return
	}
	dto.Created(c, st)
}

// UpdateStyle 更新预设
func (h *StyleHandler) UpdateStyle(c *gin.Context) {
	var req dto.UpdateStyleRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.styles.Update(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		respondError(c, "failed to update style", err)
		return
	}
	dto.Success(c, st)
}

// DeleteStyle 删除预设
func (h *StyleHandler) DeleteStyle(c *gin.Context) {
	if err := h.styles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "failed to delete style", err)
		return
	}
	dto.NoContent(c)
}
