package jsonfs

import (
	"context"

	"book-engine/internal/domain/entity"
)

// SettingsRepository 全局设置仓储实现
type SettingsRepository struct {
	client *Client
}

// NewSettingsRepository 创建设置仓储
func NewSettingsRepository(client *Client) *SettingsRepository {
	return &SettingsRepository{client: client}
}

// Get 读取设置，缺失时落盘默认值
func (r *SettingsRepository) Get(ctx context.Context) (entity.Settings, error) {
	var s entity.Settings
	if err := r.client.store.ReadJSON(ctx, r.client.paths.SettingsPath(), entity.DefaultSettings(), &s); err != nil {
		return entity.Settings{}, storageErr(err)
	}
	return s, nil
}

// Save 覆盖写入设置
func (r *SettingsRepository) Save(ctx context.Context, settings entity.Settings) error {
	return storageErr(r.client.store.AtomicWriteJSON(ctx, r.client.paths.SettingsPath(), settings))
}

// Current 实现 llm.SettingsSource
func (r *SettingsRepository) Current(ctx context.Context) (entity.Settings, error) {
	return r.Get(ctx)
}
