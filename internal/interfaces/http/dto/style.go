package dto

import "book-engine/internal/application/workspace"

// CreateStyleRequest 新建文风预设请求
type CreateStyleRequest struct {
	Name            string   `json:"name" binding:"required,max=64"`
	SystemPrompt    string   `json:"systemPrompt" binding:"max=4000"`
	Vocabulary      []string `json:"vocabulary"`
	ProhibitedWords []string `json:"prohibitedWords"`
	IsDefault       bool     `json:"isDefault"`
}

// ToInput 转换为服务入参
func (r *CreateStyleRequest) ToInput() workspace.StyleInput {
	return workspace.StyleInput{
		Name:            r.Name,
		SystemPrompt:    r.SystemPrompt,
		Vocabulary:      r.Vocabulary,
		ProhibitedWords: r.ProhibitedWords,
		IsDefault:       r.IsDefault,
	}
}

// UpdateStyleRequest 文风预设部分更新请求
type UpdateStyleRequest struct {
	Name            *string  `json:"name,omitempty" binding:"omitempty,max=64"`
	SystemPrompt    *string  `json:"systemPrompt,omitempty" binding:"omitempty,max=4000"`
	Vocabulary      []string `json:"vocabulary,omitempty"`
	ProhibitedWords []string `json:"prohibitedWords,omitempty"`
	IsDefault       *bool    `json:"isDefault,omitempty"`
}

// ToPatch 转换为服务入参
func (r *UpdateStyleRequest) ToPatch() workspace.StylePatch {
	return workspace.StylePatch{
		Name:            r.Name,
		SystemPrompt:    r.SystemPrompt,
		Vocabulary:      r.Vocabulary,
		ProhibitedWords: r.ProhibitedWords,
		IsDefault:       r.IsDefault,
	}
}

// SettingsRequest 设置更新与连接测试请求
type SettingsRequest struct {
	Provider     string `json:"provider" binding:"required,max=32"`
	Model        string `json:"model" binding:"required,max=128"`
	APIKeyMasked string `json:"apiKeyMasked"`
	Theme        string `json:"theme" binding:"omitempty,oneof=light dark"`
}

// ToInput 转换为服务入参
func (r *SettingsRequest) ToInput() workspace.SettingsInput {
	return workspace.SettingsInput{
		Provider: r.Provider,
		Model:    r.Model,
		APIKey:   r.APIKeyMasked,
		Theme:    r.Theme,
	}
}
