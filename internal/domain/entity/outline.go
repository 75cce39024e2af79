package entity

import "fmt"

// NodeStatus 大纲节点状态
type NodeStatus string

const (
	NodeStatusPlanned    NodeStatus = "planned"
	NodeStatusLocked     NodeStatus = "locked"
	NodeStatusGenerating NodeStatus = "generating"
	NodeStatusGenerated  NodeStatus = "generated"
	NodeStatusFailed     NodeStatus = "failed"
)

// OutlineNode 滚动大纲中的一章（outline.json 数组元素）
type OutlineNode struct {
	ChapterID             string            `json:"chapterId"`
	ChapterTitle          string            `json:"chapterTitle"`
	ChapterContentOutline string            `json:"chapterContentOutline"`
	Characters            []string          `json:"characters"`
	Clues                 []string          `json:"clues"`
	Status                NodeStatus        `json:"status"`
	Summary               string            `json:"summary,omitempty"`
	CharacterNotes        map[string]string `json:"characterNotes,omitempty"`
}

// Outline 有序大纲
type Outline []OutlineNode

// Find 返回指定章节在大纲中的下标，不存在时返回 -1
func (o Outline) Find(chapterID string) int {
	for i := range o {
		if o[i].ChapterID == chapterID {
			return i
		}
	}
	return -1
}

// SetStatus 修改指定章节状态，返回是否找到
func (o Outline) SetStatus(chapterID string, status NodeStatus) bool {
	i := o.Find(chapterID)
	if i < 0 {
		return false
	}
	o[i].Status = status
	return true
}

// StatusCounts 统计各状态节点数
func (o Outline) StatusCounts() map[NodeStatus]int {
	counts := map[NodeStatus]int{}
	for _, n := range o {
		counts[n.Status]++
	}
	return counts
}

// ChapterIDFor 返回第 n 章（从 1 开始）的章节 ID
func ChapterIDFor(n int) string {
	return fmt.Sprintf("ch_%03d", n)
}
