package handler

import (
	"github.com/gin-gonic/gin"

	"book-engine/internal/application/workspace"
	"book-engine/internal/interfaces/http/dto"
)

// SettingsHandler 全局设置处理器
type SettingsHandler struct {
	settings *workspace.SettingsService
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(settings *workspace.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings 读取设置（密钥已遮蔽）
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, "failed to read settings", err)
		return
	}
	dto.Success(c, s)
}

// UpdateSettings 保存设置
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req dto.SettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.settings.Update(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, "failed to update settings", err)
		return
	}
	dto.Success(c, s)
}

// TestConnection 用候选设置测试生成服务连通性
func (h *SettingsHandler) TestConnection(c *gin.Context) {
	var req dto.SettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.settings.TestConnection(c.Request.Context(), req.ToInput())
	if err != nil {
		respondError(c, "connection test failed", err)
		return
	}
	dto.Success(c, res)
}
