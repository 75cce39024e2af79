package jsonfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
)

// Client 工作区存储客户端，聚合文档存储与路径构造
type Client struct {
	store *Store
	paths Paths
}

// NewClient 创建存储客户端并确保数据目录存在
func NewClient(ctx context.Context, dataDir string) (*Client, error) {
	paths := NewPaths(dataDir)
	if err := os.MkdirAll(paths.BooksDir(), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", paths.BooksDir(), err)
	}
	logger.Info(ctx, "workspace storage ready", "data_dir", dataDir)
	return &Client{store: NewStore(), paths: paths}, nil
}

// Store 返回底层文档存储
func (c *Client) Store() *Store { return c.store }

// Paths 返回路径构造器
func (c *Client) Paths() Paths { return c.paths }

// HealthCheck 检查数据目录可写
func (c *Client) HealthCheck(ctx context.Context) error {
	probe := filepath.Join(c.paths.Root(), ".healthcheck.json")
	if err := c.store.AtomicWriteJSON(ctx, probe, map[string]string{"checkedAt": "ok"}); err != nil {
		return err
	}
	return os.Remove(probe)
}

// storageErr 将底层 I/O 错误包装为存储错误
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ErrStorage.WithError(err)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
