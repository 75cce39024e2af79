// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"book-engine/internal/interfaces/http/dto"
	"book-engine/pkg/errors"
	"book-engine/pkg/logger"
)

// respondError 记录并输出错误；非 AppError 与 5xx 以 Error 级别记录
func respondError(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 500 && !errors.Is(err, errors.ErrGenerationUnavailable) {
		logger.Error(ctx, msg, err)
	} else {
		logger.Warn(ctx, msg, "error", err.Error())
	}
	dto.FromError(c, err)
}

// bindJSON 绑定请求体，失败时输出 400 并返回 false
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// bindOptionalJSON 请求体为空时保持零值
func bindOptionalJSON(c *gin.Context, out any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil && err != io.EOF {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
