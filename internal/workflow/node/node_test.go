package node

import (
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "好的，结果如下：\n{\"resolved\":[\"x\"]}\n希望有帮助{", `{"resolved":["x"]}`, true},
		{"code fence", "```json\n{\"a\":{\"b\":[1,2]}}\n```", `{"a":{"b":[1,2]}}`, true},
		{"first brace broken", `{oops} then {"ok":true}`, `{"ok":true}`, true},
		{"two objects", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"braces inside strings", `{"t":"}{"}`, `{"t":"}{"}`, true},
		{"none", "没有 JSON", "", false},
		{"truncated", `{"a":`, "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ExtractJSONObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var v struct {
		Resolved []string `json:"resolved"`
	}
	if !DecodeJSONObject(`答：{"resolved":["古剑"]}`, &v) {
		t.Fatalf("decode failed")
	}
	if len(v.Resolved) != 1 || v.Resolved[0] != "古剑" {
		t.Fatalf("resolved = %v", v.Resolved)
	}
	if DecodeJSONObject(`{"resolved":"not a list"}`, &v) {
		t.Fatalf("expected type mismatch to fail")
	}
}

func TestRuneHelpers(t *testing.T) {
	s := "一二三四五"
	if got := TruncateByRunes(s, 2); got != "一二" {
		t.Fatalf("TruncateByRunes = %q", got)
	}
	if got := TruncateByRunes(s, 10); got != s {
		t.Fatalf("TruncateByRunes long = %q", got)
	}
	if got := TailByRunes(s, 2); got != "四五" {
		t.Fatalf("TailByRunes = %q", got)
	}
	if got := TailByRunes(s, 5); got != s {
		t.Fatalf("TailByRunes exact = %q", got)
	}
	if got := TailByRunes(s, 0); got != "" {
		t.Fatalf("TailByRunes zero = %q", got)
	}
	if got := Block("上一章结尾：", "  "); got != "" {
		t.Fatalf("Block empty = %q", got)
	}
	if got := Block("上一章结尾：", "夜色"); got != "上一章结尾：夜色\n\n" {
		t.Fatalf("Block = %q", got)
	}
}
