package lock

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gofrs/flock"

	apperrors "book-engine/pkg/errors"
)

func newTestLocker(t *testing.T) (*LocalLocker, LockPathFunc) {
	t.Helper()
	dir := t.TempDir()
	pathFn := func(bookID, chapterID string) string {
		return filepath.Join(dir, bookID, ".locks", chapterID+".lock")
	}
	return NewLocalLocker(pathFn), pathFn
}

func TestLocalLockerFailsFast(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	release, err := l.Acquire(ctx, "book_a", "ch_001")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "book_a", "ch_001"); !apperrors.Is(err, apperrors.ErrAlreadyGenerating) {
		t.Fatalf("second Acquire err = %v, want ErrAlreadyGenerating", err)
	}

	// 其他章节不受影响
	other, err := l.Acquire(ctx, "book_a", "ch_002")
	if err != nil {
		t.Fatalf("Acquire other chapter: %v", err)
	}
	other()

	release()
	release() // 重复释放安全

	again, err := l.Acquire(ctx, "book_a", "ch_001")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}

func TestLocalLockerExcludesOtherFlockHolder(t *testing.T) {
	ctx := context.Background()
	l, pathFn := newTestLocker(t)

	// 先获取再释放以创建锁目录
	r, err := l.Acquire(ctx, "book_a", "ch_001")
	if err != nil {
		t.Fatal(err)
	}
	r()

	// 模拟另一个进程持有同一锁文件
	foreign := flock.New(pathFn("book_a", "ch_001"))
	ok, err := foreign.TryLock()
	if err != nil || !ok {
		t.Fatalf("foreign TryLock ok=%v err=%v", ok, err)
	}
	defer foreign.Unlock()

	if _, err := l.Acquire(ctx, "book_a", "ch_001"); !apperrors.Is(err, apperrors.ErrAlreadyGenerating) {
		t.Fatalf("err = %v, want ErrAlreadyGenerating", err)
	}
}

func TestLocalLockerSingleWinner(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t)

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	releases := make(chan func(), 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			release, err := l.Acquire(ctx, "book_a", "ch_003")
			switch {
			case err == nil:
				wins.Add(1)
				releases <- release
			case apperrors.Is(err, apperrors.ErrAlreadyGenerating):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)
	for r := range releases {
		r()
	}

	if wins.Load() != 1 || conflicts.Load() != 15 {
		t.Fatalf("wins=%d conflicts=%d", wins.Load(), conflicts.Load())
	}
}
