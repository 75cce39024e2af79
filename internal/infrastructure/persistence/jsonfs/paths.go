package jsonfs

import (
	"path/filepath"
	"regexp"

	apperrors "book-engine/pkg/errors"
	"book-engine/pkg/utils"
)

var (
	bookIDPattern    = regexp.MustCompile(`^book_[A-Za-z0-9_-]+$`)
	chapterIDPattern = regexp.MustCompile(`^ch_[0-9]{3,}$`)
)

// ValidateBookID 校验书籍 ID，是路径拼接前唯一的净化边界
func ValidateBookID(bookID string) error {
	if !bookIDPattern.MatchString(bookID) {
		return apperrors.InvalidParam("invalid book id: " + bookID)
	}
	return nil
}

// ValidateChapterID 校验章节 ID
func ValidateChapterID(chapterID string) error {
	if !chapterIDPattern.MatchString(chapterID) {
		return apperrors.InvalidParam("invalid chapter id: " + chapterID)
	}
	return nil
}

// CreateBookID 生成 book_<毫秒时间戳>_<6 位 base36>
func CreateBookID() string {
	return utils.NewPrefixedID("book", 6)
}

// Paths 工作区路径构造器，不做校验
type Paths struct {
	root string
}

// NewPaths 创建路径构造器
func NewPaths(dataDir string) Paths {
	return Paths{root: dataDir}
}

// Root 数据根目录
func (p Paths) Root() string { return p.root }

// BooksDir 书籍根目录
func (p Paths) BooksDir() string { return filepath.Join(p.root, "books") }

// BookDir 单本书目录
func (p Paths) BookDir(bookID string) string { return filepath.Join(p.BooksDir(), bookID) }

// MetaPath meta.json
func (p Paths) MetaPath(bookID string) string { return filepath.Join(p.BookDir(bookID), "meta.json") }

// LorePath lore.json
func (p Paths) LorePath(bookID string) string { return filepath.Join(p.BookDir(bookID), "lore.json") }

// OutlinePath outline.json
func (p Paths) OutlinePath(bookID string) string {
	return filepath.Join(p.BookDir(bookID), "outline.json")
}

// ChaptersDir 章节目录
func (p Paths) ChaptersDir(bookID string) string { return filepath.Join(p.BookDir(bookID), "chapters") }

// ChapterPath 章节文件
func (p Paths) ChapterPath(bookID, chapterID string) string {
	return filepath.Join(p.ChaptersDir(bookID), chapterID+".json")
}

// LockPath 章节生成锁文件
func (p Paths) LockPath(bookID, chapterID string) string {
	return filepath.Join(p.BookDir(bookID), ".locks", chapterID+".lock")
}

// SettingsPath 全局设置
func (p Paths) SettingsPath() string { return filepath.Join(p.root, "settings.json") }

// StylesPath 全局文风预设
func (p Paths) StylesPath() string { return filepath.Join(p.root, "styles.json") }
