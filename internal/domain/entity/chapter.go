package entity

import "unicode"

// ChapterData 章节正文（chapters/<chapterId>.json）
type ChapterData struct {
	ChapterID string `json:"chapterId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
	UpdatedAt string `json:"updatedAt"`
}

// NewChapterData 创建章节并计算字数
func NewChapterData(chapterID, title, content string) *ChapterData {
	return &ChapterData{
		ChapterID: chapterID,
		Title:     title,
		Content:   content,
		WordCount: CountWords(content),
		UpdatedAt: Now(),
	}
}

// SetContent 设置正文并重新计算字数
func (c *ChapterData) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.UpdatedAt = Now()
}

// CountWords 统计非空白字符数
func CountWords(content string) int {
	n := 0
	for _, r := range content {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
