package entity

import "strings"

// ClueStatus 伏笔状态
type ClueStatus string

const (
	ClueStatusPending  ClueStatus = "pending"
	ClueStatusResolved ClueStatus = "resolved"
)

// Clue 伏笔条目，标题在账本内唯一
type Clue struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status ClueStatus `json:"status"`
}

// LoreData 设定与伏笔账本（lore.json）
type LoreData struct {
	World          string   `json:"world"`
	Factions       []string `json:"factions"`
	Protagonist    string   `json:"protagonist"`
	SideCharacters []string `json:"sideCharacters"`
	Clues          []Clue   `json:"clues"`
}

// NewLoreData 返回空设定，切片均非 nil 以便序列化为 []
func NewLoreData() LoreData {
	return LoreData{
		Factions:       []string{},
		SideCharacters: []string{},
		Clues:          []Clue{},
	}
}

// Normalize 将 nil 切片替换为空切片
func (l *LoreData) Normalize() {
	if l.Factions == nil {
		l.Factions = []string{}
	}
	if l.SideCharacters == nil {
		l.SideCharacters = []string{}
	}
	if l.Clues == nil {
		l.Clues = []Clue{}
	}
}

// PendingClueTitles 返回未回收伏笔的标题
func (l LoreData) PendingClueTitles() []string {
	out := make([]string, 0, len(l.Clues))
	for _, c := range l.Clues {
		if c.Status == ClueStatusPending {
			out = append(out, c.Title)
		}
	}
	return out
}

// ClueTitles 返回全部伏笔标题，包含已回收的
func (l LoreData) ClueTitles() []string {
	out := make([]string, 0, len(l.Clues))
	for _, c := range l.Clues {
		out = append(out, c.Title)
	}
	return out
}

// PartitionClues 按状态拆分伏笔
func (l LoreData) PartitionClues() (pending, resolved []Clue) {
	pending = []Clue{}
	resolved = []Clue{}
	for _, c := range l.Clues {
		if c.Status == ClueStatusResolved {
			resolved = append(resolved, c)
		} else {
			pending = append(pending, c)
		}
	}
	return pending, resolved
}

// HasClue 按去空白后的标题判断是否存在
func (l LoreData) HasClue(title string) bool {
	t := strings.TrimSpace(title)
	for _, c := range l.Clues {
		if strings.TrimSpace(c.Title) == t {
			return true
		}
	}
	return false
}
