package jsonfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"book-engine/internal/domain/entity"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
	"book-engine/pkg/tracer"
)

// createAttempts 书籍目录抢占的最大重试次数
const createAttempts = 8

// BookRepository 书籍元数据仓储实现
type BookRepository struct {
	client *Client
}

// NewBookRepository 创建书籍仓储
func NewBookRepository(client *Client) *BookRepository {
	return &BookRepository{client: client}
}

// Create 抢占一个新的书籍目录并写入初始文档
// 目录以非递归 Mkdir 创建，已存在即视为 ID 碰撞并换新 ID 重试
func (r *BookRepository) Create(ctx context.Context, meta *entity.BookMeta) error {
	ctx, span := tracer.Start(ctx, "jsonfs.BookRepository.Create")
	defer span.End()

	paths := r.client.paths
	if err := os.MkdirAll(paths.BooksDir(), dirPerm); err != nil {
		span.RecordError(err)
		return storageErr(fmt.Errorf("failed to create books dir: %w", err))
	}

	var bookID string
	for i := 0; i < createAttempts; i++ {
		candidate := CreateBookID()
		err := os.Mkdir(paths.BookDir(candidate), dirPerm)
		if err == nil {
			bookID = candidate
			break
		}
		if errors.Is(err, fs.ErrExist) {
			logger.Warn(ctx, "book id collision, retrying", "book_id", candidate)
			continue
		}
		span.RecordError(err)
		return storageErr(fmt.Errorf("failed to claim book dir: %w", err))
	}
	if bookID == "" {
		return storageErr(fmt.Errorf("failed to allocate book id after %d attempts", createAttempts))
	}

	now := entity.Now()
	meta.ID = bookID
	meta.CreatedAt = now
	meta.UpdatedAt = now

	store := r.client.store
	if err := store.AtomicWriteJSON(ctx, paths.MetaPath(bookID), meta); err != nil {
		span.RecordError(err)
		return storageErr(err)
	}
	if err := store.AtomicWriteJSON(ctx, paths.LorePath(bookID), entity.NewLoreData()); err != nil {
		span.RecordError(err)
		return storageErr(err)
	}
	if err := store.AtomicWriteJSON(ctx, paths.OutlinePath(bookID), entity.Outline{}); err != nil {
		span.RecordError(err)
		return storageErr(err)
	}
	return nil
}

// Get 获取元数据
func (r *BookRepository) Get(ctx context.Context, bookID string) (*entity.BookMeta, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.BookRepository.Get")
	defer span.End()

	var meta entity.BookMeta
	if err := r.client.store.ReadExistingJSON(ctx, r.client.paths.MetaPath(bookID), &meta); err != nil {
		if isNotExist(err) {
			return nil, apperrors.ErrBookNotFound.WithDetail(bookID)
		}
		span.RecordError(err)
		return nil, storageErr(err)
	}
	return &meta, nil
}

// Exists 判断书籍是否存在（以 meta.json 为准）
func (r *BookRepository) Exists(_ context.Context, bookID string) (bool, error) {
	if err := ValidateBookID(bookID); err != nil {
		return false, err
	}
	return r.client.store.Exists(r.client.paths.MetaPath(bookID)), nil
}

// Update 修改元数据并刷新 updatedAt
func (r *BookRepository) Update(ctx context.Context, bookID string, fn func(meta *entity.BookMeta) error) (*entity.BookMeta, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.BookRepository.Update")
	defer span.End()

	var meta entity.BookMeta
	err := r.client.store.UpdateJSON(ctx, r.client.paths.MetaPath(bookID), nil, &meta, func() error {
		if err := fn(&meta); err != nil {
			return err
		}
		meta.ID = bookID
		meta.Touch()
		return nil
	})
	if err != nil {
		if isNotExist(err) {
			return nil, apperrors.ErrBookNotFound.WithDetail(bookID)
		}
		span.RecordError(err)
		return nil, storageErr(err)
	}
	return &meta, nil
}

// List 扫描符合书籍 ID 格式的目录
func (r *BookRepository) List(ctx context.Context) ([]entity.BookMeta, error) {
	ctx, span := tracer.Start(ctx, "jsonfs.BookRepository.List")
	defer span.End()

	entries, err := os.ReadDir(r.client.paths.BooksDir())
	if err != nil {
		if isNotExist(err) {
			return []entity.BookMeta{}, nil
		}
		span.RecordError(err)
		return nil, storageErr(fmt.Errorf("failed to list books: %w", err))
	}

	books := make([]entity.BookMeta, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || ValidateBookID(e.Name()) != nil {
			continue
		}
		var meta entity.BookMeta
		if err := r.client.store.ReadExistingJSON(ctx, r.client.paths.MetaPath(e.Name()), &meta); err != nil {
			if !isNotExist(err) {
				logger.Warn(ctx, "skipping unreadable book meta", "book_id", e.Name(), "error", err.Error())
			}
			continue
		}
		books = append(books, meta)
	}

	sort.SliceStable(books, func(i, j int) bool {
		ti, iok := entity.ParseTimestamp(books[i].UpdatedAt)
		tj, jok := entity.ParseTimestamp(books[j].UpdatedAt)
		if iok && jok {
			return ti.After(tj)
		}
		return books[i].UpdatedAt > books[j].UpdatedAt
	})
	return books, nil
}
