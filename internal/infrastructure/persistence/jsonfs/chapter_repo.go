package jsonfs

import (
	"context"
	"os"
	"sort"
	"strings"

	"book-engine/internal/domain/entity"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/tracer"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Get 获取章节，章节文件不存在时返回 ErrChapterNotFound
func (r *ChapterRepository) Get(ctx context.Context, bookID, chapterID string) (*entity.ChapterData, error) {
	if err := validateIDs(bookID, chapterID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.ChapterRepository.Get")
	defer span.End()

	var ch entity.ChapterData
	if err := r.client.store.ReadExistingJSON(ctx, r.client.paths.ChapterPath(bookID, chapterID), &ch); err != nil {
		if isNotExist(err) {
			return nil, apperrors.ErrChapterNotFound.WithDetail(chapterID)
		}
		span.RecordError(err)
		return nil, storageErr(err)
	}
	return &ch, nil
}

// Exists 判断章节文件是否存在
func (r *ChapterRepository) Exists(_ context.Context, bookID, chapterID string) (bool, error) {
	if err := validateIDs(bookID, chapterID); err != nil {
		return false, err
	}
	return r.client.store.Exists(r.client.paths.ChapterPath(bookID, chapterID)), nil
}

// Save 覆盖写入章节
func (r *ChapterRepository) Save(ctx context.Context, bookID string, chapter *entity.ChapterData) error {
	if err := validateIDs(bookID, chapter.ChapterID); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.ChapterRepository.Save")
	defer span.End()

	if err := r.client.store.AtomicWriteJSON(ctx, r.client.paths.ChapterPath(bookID, chapter.ChapterID), chapter); err != nil {
		span.RecordError(err)
		return storageErr(err)
	}
	return nil
}

// List 读取书籍下全部章节文件，按章节 ID 排序
// 章节目录不存在时返回空列表，文件名不符合章节 ID 格式的条目被忽略
func (r *ChapterRepository) List(ctx context.Context, bookID string) ([]entity.ChapterData, error) {
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "jsonfs.ChapterRepository.List")
	defer span.End()

	entries, err := os.ReadDir(r.client.paths.ChaptersDir(bookID))
	if err != nil {
		if isNotExist(err) {
			return []entity.ChapterData{}, nil
		}
		span.RecordError(err)
		return nil, storageErr(err)
	}

	out := make([]entity.ChapterData, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		chapterID := strings.TrimSuffix(name, ".json")
		if ValidateChapterID(chapterID) != nil {
			continue
		}
		var ch entity.ChapterData
		if err := r.client.store.ReadExistingJSON(ctx, r.client.paths.ChapterPath(bookID, chapterID), &ch); err != nil {
			if isNotExist(err) {
				continue
			}
			span.RecordError(err)
			return nil, storageErr(err)
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterID < out[j].ChapterID })
	return out, nil
}

func validateIDs(bookID, chapterID string) error {
	if err := ValidateBookID(bookID); err != nil {
		return err
	}
	return ValidateChapterID(chapterID)
}
