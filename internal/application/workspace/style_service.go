package workspace

import (
	"context"
	"strings"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/repository"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/utils"
)

// StyleInput 新建文风预设参数
type StyleInput struct {
	Name            string
	SystemPrompt    string
	Vocabulary      []string
	ProhibitedWords []string
	IsDefault       bool
}

// StylePatch 文风预设部分更新，nil 表示不修改
type StylePatch struct {
	Name            *string
	SystemPrompt    *string
	Vocabulary      []string
	ProhibitedWords []string
	IsDefault       *bool
}

// StyleService 文风预设管理，全局至多一个默认预设
type StyleService struct {
	styles repository.StyleRepository
}

// NewStyleService 创建文风服务
func NewStyleService(styles repository.StyleRepository) *StyleService {
	return &StyleService{styles: styles}
}

// List 列出全部预设
func (s *StyleService) List(ctx context.Context) ([]entity.StylePreset, error) {
	return s.styles.List(ctx)
}

// Create 新建预设；设为默认时清除其他预设的默认标记
func (s *StyleService) Create(ctx context.Context, in StyleInput) (*entity.StylePreset, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.InvalidParam("name is required")
	}

	item := entity.StylePreset{
		ID:              utils.NewPrefixedID("style", 6),
		Name:            name,
		SystemPrompt:    in.SystemPrompt,
		Vocabulary:      nonNil(in.Vocabulary),
		ProhibitedWords: nonNil(in.ProhibitedWords),
		IsDefault:       in.IsDefault,
	}
	_, err := s.styles.Update(ctx, func(styles *[]entity.StylePreset) error {
		*styles = append(*styles, item)
		if item.IsDefault {
			setSoleDefault(*styles, item.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update 部分更新预设
func (s *StyleService) Update(ctx context.Context, id string, patch StylePatch) (*entity.StylePreset, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperrors.InvalidParam("name must not be empty")
	}

	var updated entity.StylePreset
	_, err := s.styles.Update(ctx, func(styles *[]entity.StylePreset) error {
		i := findStyle(*styles, id)
		if i < 0 {
			return apperrors.ErrStyleNotFound.WithDetail(id)
		}
		st := &(*styles)[i]
		if patch.Name != nil {
			st.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.SystemPrompt != nil {
			st.SystemPrompt = *patch.SystemPrompt
		}
		if patch.Vocabulary != nil {
			st.Vocabulary = patch.Vocabulary
		}
		if patch.ProhibitedWords != nil {
			st.ProhibitedWords = patch.ProhibitedWords
		}
		if patch.IsDefault != nil {
			st.IsDefault = *patch.IsDefault
			if st.IsDefault {
				setSoleDefault(*styles, id)
			}
		}
		updated = (*styles)[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete 删除预设
func (s *StyleService) Delete(ctx context.Context, id string) error {
	_, err := s.styles.Update(ctx, func(styles *[]entity.StylePreset) error {
		i := findStyle(*styles, id)
		if i < 0 {
			return apperrors.ErrStyleNotFound.WithDetail(id)
		}
		*styles = append((*styles)[:i], (*styles)[i+1:]...)
		return nil
	})
	return err
}

func findStyle(styles []entity.StylePreset, id string) int {
	for i := range styles {
		if styles[i].ID == id {
			return i
		}
	}
	return -1
}

func setSoleDefault(styles []entity.StylePreset, id string) {
	for i := range styles {
		styles[i].IsDefault = styles[i].ID == id
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
