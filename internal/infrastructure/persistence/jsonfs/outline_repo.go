package jsonfs

import (
	"context"

	"book-engine/internal/domain/entity"
	"book-engine/pkg/tracer"
)

// OutlineRepository 大纲仓储实现
type OutlineRepository struct {
	client *Client
}

// NewOutlineRepository 创建大纲仓储
func NewOutlineRepository(client *Client) *OutlineRepository {
	return &OutlineRepository{client: client}
}

// Get 读取大纲，缺失时落盘空大纲
func (r *OutlineRepository) Get(ctx context.Context, bookID string) (entity.Outline, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.OutlineRepository.Get")
	defer span.End()

	var outline entity.Outline
	if err := r.client.store.ReadJSON(ctx, r.client.paths.OutlinePath(bookID), entity.Outline{}, &outline); err != nil {
		span.RecordError(err)
		return nil, storageErr(err)
	}
	if outline == nil {
		outline = entity.Outline{}
	}
	return outline, nil
}

// Save 覆盖写入大纲
func (r *OutlineRepository) Save(ctx context.Context, bookID string, outline entity.Outline) error {
	if err := ValidateBookID(bookID); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.OutlineRepository.Save")
	defer span.End()

	if outline == nil {
		outline = entity.Outline{}
	}
	if err := r.client.store.AtomicWriteJSON(ctx, r.client.paths.OutlinePath(bookID), outline); err != nil {
		span.RecordError(err)
		return storageErr(err)
	}
	return nil
}

// Update 读-改-写大纲
func (r *OutlineRepository) Update(ctx context.Context, bookID string, fn func(outline *entity.Outline) error) (entity.Outline, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.OutlineRepository.Update")
	defer span.End()

	var outline entity.Outline
	err := r.client.store.UpdateJSON(ctx, r.client.paths.OutlinePath(bookID), entity.Outline{}, &outline, func() error {
		return fn(&outline)
	})
	if err != nil {
		span.RecordError(err)
		return nil, storageErr(err)
	}
	return outline, nil
}
