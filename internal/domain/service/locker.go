package service

import "context"

// ReleaseFunc 释放生成锁，重复调用安全
type ReleaseFunc func()

// GenerationLocker 章节生成互斥
// 锁被占用时立即返回 ErrAlreadyGenerating，不排队等待
type GenerationLocker interface {
	Acquire(ctx context.Context, bookID, chapterID string) (ReleaseFunc, error)
}
