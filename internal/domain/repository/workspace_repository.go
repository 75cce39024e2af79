// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"book-engine/internal/domain/entity"
)

// BookRepository 书籍元数据仓储
type BookRepository interface {
	// Create 分配书籍 ID 并初始化工作区（meta、空设定、空大纲）
	Create(ctx context.Context, meta *entity.BookMeta) error

	// Get 获取元数据，书籍不存在时返回 ErrBookNotFound
	Get(ctx context.Context, bookID string) (*entity.BookMeta, error)

	// Exists 判断书籍是否存在
	Exists(ctx context.Context, bookID string) (bool, error)

	// Update 在锁内修改元数据并刷新 updatedAt
	Update(ctx context.Context, bookID string, fn func(meta *entity.BookMeta) error) (*entity.BookMeta, error)

	// List 列出全部书籍，按 updatedAt 倒序
	List(ctx context.Context) ([]entity.BookMeta, error)
}

// LoreRepository 设定与伏笔账本仓储
type LoreRepository interface {
	// Get 读取设定，缺失时落盘默认值
	Get(ctx context.Context, bookID string) (*entity.LoreData, error)

	// Save 覆盖写入设定
	Save(ctx context.Context, bookID string, lore *entity.LoreData) error

	// Update 读-改-写设定
	Update(ctx context.Context, bookID string, fn func(lore *entity.LoreData) error) (*entity.LoreData, error)
}

// OutlineRepository 滚动大纲仓储
type OutlineRepository interface {
	// Get 读取大纲，缺失时落盘空大纲
	Get(ctx context.Context, bookID string) (entity.Outline, error)

	// Save 覆盖写入大纲
	Save(ctx context.Context, bookID string, outline entity.Outline) error

	// Update 读-改-写大纲
	Update(ctx context.Context, bookID string, fn func(outline *entity.Outline) error) (entity.Outline, error)
}

// ChapterRepository 章节正文仓储
type ChapterRepository interface {
	// Get 获取章节，不存在时返回 ErrChapterNotFound
	Get(ctx context.Context, bookID, chapterID string) (*entity.ChapterData, error)

	// Exists 判断章节文件是否存在
	Exists(ctx context.Context, bookID, chapterID string) (bool, error)

	// Save 覆盖写入章节
	Save(ctx context.Context, bookID string, chapter *entity.ChapterData) error

	// List 列出书籍下全部章节文件
	List(ctx context.Context, bookID string) ([]entity.ChapterData, error)
}

// StyleRepository 文风预设仓储（全局）
type StyleRepository interface {
	// List 列出全部预设，缺失时落盘空列表
	List(ctx context.Context) ([]entity.StylePreset, error)

	// Update 读-改-写预设列表
	Update(ctx context.Context, fn func(styles *[]entity.StylePreset) error) ([]entity.StylePreset, error)
}

// SettingsRepository 全局设置仓储
type SettingsRepository interface {
	// Get 读取设置，缺失时落盘默认值
	Get(ctx context.Context) (entity.Settings, error)

	// Save 覆盖写入设置
	Save(ctx context.Context, settings entity.Settings) error
}
