package dto

import (
	"book-engine/internal/application/workspace"
	"book-engine/internal/domain/entity"
)

// CreateBookRequest 创建书籍请求
type CreateBookRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	OneLiner    string `json:"oneLiner" binding:"max=2000"`
	Genre       string `json:"genre" binding:"max=64"`
	Readers     string `json:"readers" binding:"max=64"`
	TargetWords int    `json:"targetWords" binding:"omitempty,gt=0"`
	Pace        string `json:"pace" binding:"max=32"`
	StyleID     string `json:"styleId"`
}

// ToInput 转换为服务入参
func (r *CreateBookRequest) ToInput() workspace.CreateBookInput {
	return workspace.CreateBookInput{
		Title:       r.Title,
		OneLiner:    r.OneLiner,
		Genre:       r.Genre,
		Readers:     r.Readers,
		TargetWords: r.TargetWords,
		Pace:        r.Pace,
		StyleID:     r.StyleID,
	}
}

// UpdateBookRequest 更新书籍元数据请求，缺省字段不修改
type UpdateBookRequest struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,max=200"`
	OneLiner    *string `json:"oneLiner,omitempty" binding:"omitempty,max=2000"`
	Genre       *string `json:"genre,omitempty" binding:"omitempty,max=64"`
	Readers     *string `json:"readers,omitempty" binding:"omitempty,max=64"`
	TargetWords *int    `json:"targetWords,omitempty"`
	Pace        *string `json:"pace,omitempty" binding:"omitempty,max=32"`
	FinalGoal   *string `json:"finalGoal,omitempty"`
}

// ToInput 转换为服务入参
func (r *UpdateBookRequest) ToInput() workspace.UpdateMetaInput {
	return workspace.UpdateMetaInput{
		Title:       r.Title,
		OneLiner:    r.OneLiner,
		Genre:       r.Genre,
		Readers:     r.Readers,
		TargetWords: r.TargetWords,
		Pace:        r.Pace,
		FinalGoal:   r.FinalGoal,
	}
}

// ExpandLoreRequest 扩展设定请求，显式字段覆盖生成结果
type ExpandLoreRequest struct {
	World          *string  `json:"world,omitempty"`
	Factions       []string `json:"factions,omitempty"`
	Protagonist    *string  `json:"protagonist,omitempty"`
	SideCharacters []string `json:"sideCharacters,omitempty"`
}

// ToOverrides 转换为服务入参
func (r *ExpandLoreRequest) ToOverrides() workspace.LoreOverrides {
	return workspace.LoreOverrides{
		World:          r.World,
		Factions:       r.Factions,
		Protagonist:    r.Protagonist,
		SideCharacters: r.SideCharacters,
	}
}

// ReflexChapterRequest 章节重新对账请求
type ReflexChapterRequest struct {
	ChapterID string `json:"chapterId" binding:"required"`
}

// UpdateChapterRequest 手动编辑章节请求
type UpdateChapterRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ReadBookResponse 整书阅读响应
type ReadBookResponse struct {
	Chapters       []entity.ChapterData `json:"chapters"`
	TotalWordCount int                  `json:"totalWordCount"`
}

// NewReadBookResponse 汇总章节字数
func NewReadBookResponse(chapters []entity.ChapterData) ReadBookResponse {
	total := 0
	for _, ch := range chapters {
		total += ch.WordCount
	}
	return ReadBookResponse{Chapters: chapters, TotalWordCount: total}
}
