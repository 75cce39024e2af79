package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject 从模型输出中截取第一个完整的 JSON 对象。
// 模型可能在 JSON 前后夹杂说明文字或 Markdown 代码块；从每个 '{' 起尝试解码，
// 返回第一个能被完整解码的对象原文。找不到时 ok 为 false。
func ExtractJSONObject(s string) (obj string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		return string(raw), true
	}
	return "", false
}

// DecodeJSONObject 截取第一个 JSON 对象并解码到 out
func DecodeJSONObject(s string, out any) bool {
	obj, ok := ExtractJSONObject(s)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(obj), out) == nil
}
