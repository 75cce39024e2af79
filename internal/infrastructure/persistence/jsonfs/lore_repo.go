package jsonfs

import (
	"context"

	"book-engine/internal/domain/entity"
	"book-engine/pkg/tracer"
)

// LoreRepository 设定仓储实现
type LoreRepository struct {
	client *Client
}

// NewLoreRepository 创建设定仓储
func NewLoreRepository(client *Client) *LoreRepository {
	return &LoreRepository{client: client}
}

// Get 读取设定，缺失时落盘默认值
func (r *LoreRepository) Get(ctx context.Context, bookID string) (*entity.LoreData, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.LoreRepository.Get")
	defer span.End()

	var lore entity.LoreData
	if err := r.client.store.ReadJSON(ctx, r.client.paths.LorePath(bookID), entity.NewLoreData(), &lore); err != nil {
		span.RecordError(err)
		return nil, storageErr(err)
	}
	lore.Normalize()
	return &lore, nil
}

// Save 覆盖写入设定
func (r *LoreRepository) Save(ctx context.Context, bookID string, lore *entity.LoreData) error {
	if err := ValidateBookID(bookID); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.LoreRepository.Save")
	defer span.End()

	lore.Normalize()
	if err := r.client.store.AtomicWriteJSON(ctx, r.client.paths.LorePath(bookID), lore); err != nil {
		span.RecordError(err)
		return storageErr(err)
	}
	return nil
}

// Update 读-改-写设定
func (r *LoreRepository) Update(ctx context.Context, bookID string, fn func(lore *entity.LoreData) error) (*entity.LoreData, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.LoreRepository.Update")
	defer span.End()

	var lore entity.LoreData
	err := r.client.store.UpdateJSON(ctx, r.client.paths.LorePath(bookID), entity.NewLoreData(), &lore, func() error {
		lore.Normalize()
		if err := fn(&lore); err != nil {
			return err
		}
		lore.Normalize()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, storageErr(err)
	}
	return &lore, nil
}
