// Package entity 定义领域实体
package entity

import (
	"time"
)

// 书籍创建默认值
const (
	DefaultGenre       = "未分类"
	DefaultReaders     = "大众"
	DefaultTargetWords = 120000
	DefaultPace        = "normal"
)

// BookMeta 书籍元数据（meta.json）
type BookMeta struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	OneLiner      string       `json:"oneLiner"`
	Genre         string       `json:"genre"`
	Readers       string       `json:"readers"`
	TargetWords   int          `json:"targetWords"`
	Pace          string       `json:"pace"`
	StyleSnapshot *StylePreset `json:"styleSnapshot"`
	FinalGoal     string       `json:"finalGoal"`
	CreatedAt     string       `json:"createdAt"`
	UpdatedAt     string       `json:"updatedAt"`
}

// Touch 刷新更新时间
func (m *BookMeta) Touch() {
	m.UpdatedAt = Now()
}

// TimestampLayout ISO-8601 UTC 毫秒精度
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Now 返回 ISO-8601 UTC 时间戳
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析时间戳，兼容任意小数位
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
