package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"book-engine/internal/config"
	"book-engine/internal/domain/service"
	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/logger"
)

// releaseScript 仅当值仍为本持有者的 token 时删除，避免误删他人续上的租约
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// GenerationLocker 基于 SET NX PX 的章节生成租约锁
// 尽力而为的单键租约，不提供共识语义
type GenerationLocker struct {
	client *Client
	ttl    time.Duration
}

// NewGenerationLocker 创建 Redis 生成锁
func NewGenerationLocker(client *Client, ttl time.Duration) *GenerationLocker {
	if ttl <= 0 {
		ttl = config.DefaultLockTTL
	}
	return &GenerationLocker{client: client, ttl: ttl}
}

// Acquire 尝试获取租约，已被持有时返回 ErrAlreadyGenerating
func (l *GenerationLocker) Acquire(ctx context.Context, bookID, chapterID string) (service.ReleaseFunc, error) {
	key := BuildGenerationLockKey(bookID, chapterID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire generation lease")
	}
	if !ok {
		return nil, apperrors.ErrAlreadyGenerating.WithDetail(bookID + "/" + chapterID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 请求上下文可能已取消，释放使用独立超时
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
			defer cancel()
			if _, err := l.client.Eval(rctx, releaseScript, []string{key}, token); err != nil && !IsNil(err) {
				logger.Warn(ctx, "failed to release generation lease", "key", key, "error", err.Error())
			}
		})
	}, nil
}

// BuildGenerationLockKey 构建生成锁键
func BuildGenerationLockKey(bookID, chapterID string) string {
	return fmt.Sprintf("book-engine:genlock:%s:%s", bookID, chapterID)
}
