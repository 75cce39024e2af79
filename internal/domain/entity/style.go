package entity

// StylePreset 文风预设（styles.json 数组元素），全局至多一个默认
type StylePreset struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	SystemPrompt    string   `json:"systemPrompt"`
	Vocabulary      []string `json:"vocabulary"`
	ProhibitedWords []string `json:"prohibitedWords"`
	IsDefault       bool     `json:"isDefault"`
}

// Clone 深拷贝，用于写入书籍的文风快照
func (s StylePreset) Clone() *StylePreset {
	cp := s
	cp.Vocabulary = append([]string{}, s.Vocabulary...)
	cp.ProhibitedWords = append([]string{}, s.ProhibitedWords...)
	return &cp
}
