package jsonfs

import (
	"context"

	"book-engine/internal/domain/entity"
	"book-engine/pkg/tracer"
)

// StyleRepository 文风预设仓储实现
type StyleRepository struct {
	client *Client
}

// NewStyleRepository 创建文风仓储
func NewStyleRepository(client *Client) *StyleRepository {
	return &StyleRepository{client: client}
}

// List 列出全部预设
func (r *StyleRepository) List(ctx context.Context) ([]entity.StylePreset, error) {
	ctx, span := tracer.Start(ctx, "jsonfs.StyleRepository.List")
	defer span.End()

	var styles []entity.StylePreset
	if err := r.client.store.ReadJSON(ctx, r.client.paths.StylesPath(), []entity.StylePreset{}, &styles); err != nil {
		span.RecordError(err)
		return nil, storageErr(err)
	}
	if styles == nil {
		styles = []entity.StylePreset{}
	}
	return styles, nil
}

// Update 读-改-写预设列表
func (r *StyleRepository) Update(ctx context.Context, fn func(styles *[]entity.StylePreset) error) ([]entity.StylePreset, error) {
	ctx, span := tracer.Start(ctx, "jsonfs.StyleRepository.Update")
	defer span.End()

	var styles []entity.StylePreset
	err := r.client.store.UpdateJSON(ctx, r.client.paths.StylesPath(), []entity.StylePreset{}, &styles, func() error {
		if styles == nil {
			styles = []entity.StylePreset{}
		}
		return fn(&styles)
	})
	if err != nil {
		span.RecordError(err)
		return nil, storageErr(err)
	}
	return styles, nil
}
