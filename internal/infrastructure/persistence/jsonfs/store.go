// Package jsonfs 提供基于 JSON 文档的工作区持久化
// 所有写入均为临时文件 + 原子 rename，读者不会观察到半写文档
package jsonfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"book-engine/pkg/logger"
	"book-engine/pkg/metrics"
	"book-engine/pkg/tracer"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// Store JSON 文档存储
type Store struct {
	mu    sync.Mutex
	paths map[string]*sync.Mutex
	heal  singleflight.Group
}

// NewStore 创建文档存储
func NewStore() *Store {
	return &Store{paths: make(map[string]*sync.Mutex)}
}

// pathLock 返回路径对应的进程内互斥锁
func (s *Store) pathLock(path string) *sync.Mutex {
	key := filepath.Clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.paths[key]
	if !ok {
		l = &sync.Mutex{}
		s.paths[key] = l
	}
	return l
}

// ReadJSON 读取文档到 out；文档缺失或无法解析时写入 fallback 并返回之
// 仅在无法恢复的 I/O 错误时失败
func (s *Store) ReadJSON(ctx context.Context, path string, fallback, out any) error {
	if fallback == nil {
		return s.ReadExistingJSON(ctx, path, out)
	}
	data, err := os.ReadFile(path)
	if err == nil && decodeInto(data, out) == nil {
		return nil
	}

	// 同一路径的并发自愈读合并为一次
	v, err, _ := s.heal.Do(filepath.Clean(path), func() (any, error) {
		l := s.pathLock(path)
		l.Lock()
		defer l.Unlock()
		return s.readOrHealLocked(ctx, path, fallback)
	})
	if err != nil {
		return err
	}
	return decodeInto(v.([]byte), out)
}

// ReadExistingJSON 读取必须已存在的文档，缺失时返回包裹 fs.ErrNotExist 的错误
func (s *Store) ReadExistingJSON(_ context.Context, path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := decodeInto(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// AtomicWriteJSON 以两空格缩进序列化 data 并原子替换目标文件
func (s *Store) AtomicWriteJSON(ctx context.Context, path string, data any) error {
	raw, err := encode(data)
	if err != nil {
		return err
	}
	l := s.pathLock(path)
	l.Lock()
	defer l.Unlock()
	return writeFileAtomic(ctx, path, raw)
}

// UpdateJSON 在路径锁内执行读-改-写
// fallback 为 nil 时文档必须已存在，否则返回包裹 fs.ErrNotExist 的错误且不落盘
// fn 返回错误时不写入
func (s *Store) UpdateJSON(ctx context.Context, path string, fallback, out any, fn func() error) error {
	l := s.pathLock(path)
	l.Lock()
	defer l.Unlock()

	if fallback == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := decodeInto(data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		data, err := s.readOrHealLocked(ctx, path, fallback)
		if err != nil {
			return err
		}
		if err := decodeInto(data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := fn(); err != nil {
		return err
	}

	raw, err := encode(out)
	if err != nil {
		return err
	}
	return writeFileAtomic(ctx, path, raw)
}

// Exists 判断文档是否存在
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// readOrHealLocked 调用方须持有路径锁
// 锁内重读一次，避免覆盖刚由其他写者落盘的有效文档
func (s *Store) readOrHealLocked(ctx context.Context, path string, fallback any) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && decodeInto(data, reflect.New(reflect.TypeOf(fallback)).Interface()) == nil {
		return data, nil
	}

	reason := "missing"
	if err == nil {
		reason = "unparsable"
	} else if !isNotExist(err) {
		reason = "unreadable"
	}

	raw, encErr := encode(fallback)
	if encErr != nil {
		return nil, encErr
	}
	if werr := writeFileAtomic(ctx, path, raw); werr != nil {
		return nil, werr
	}
	metrics.StorageSelfHealTotal.Inc()
	if reason != "missing" {
		logger.Warn(ctx, "document healed with fallback", "path", path, "reason", reason)
	} else {
		logger.Debug(ctx, "document materialized with default", "path", path)
	}
	return raw, nil
}

// writeFileAtomic 临时文件写入 -> fsync -> rename -> 目录 fsync
func writeFileAtomic(ctx context.Context, path string, data []byte) (err error) {
	_, span := tracer.Start(ctx, "jsonfs.AtomicWrite")
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.StorageWriteTotal.WithLabelValues(status).Inc()
		tracer.EndWithError(span, err)
	}()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	// 目录 fsync 尽力而为，部分平台不支持
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	// Encoder 已追加换行
	return buf.Bytes(), nil
}

// decodeInto 解码前先清零 out，避免残留半解码字段
func decodeInto(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", out)
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid json document")
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, tmp.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}
