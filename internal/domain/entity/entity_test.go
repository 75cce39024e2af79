package entity

import "testing"

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   \n\t", 0},
		{"风起之夜", 4},
		{"风起 之夜\n第二段", 7},
		{"hello world", 10},
	}
	for _, tt := range tests {
		if got := CountWords(tt.in); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSettingsMasked(t *testing.T) {
	s := Settings{Provider: "openai", APIKey: "sk-1234567890abcd"}
	m := s.Masked()
	if m.APIKey != "********abcd" {
		t.Fatalf("masked = %q", m.APIKey)
	}
	if s.APIKey != "sk-1234567890abcd" {
		t.Fatalf("original mutated")
	}
	if (Settings{}).Masked().APIKey != "" {
		t.Fatalf("empty key should stay empty")
	}
}

func TestOutlineSetStatus(t *testing.T) {
	o := Outline{{ChapterID: "ch_001", Status: NodeStatusLocked}, {ChapterID: "ch_002", Status: NodeStatusLocked}}
	if !o.SetStatus("ch_002", NodeStatusGenerating) {
		t.Fatalf("ch_002 not found")
	}
	if o[1].Status != NodeStatusGenerating || o[0].Status != NodeStatusLocked {
		t.Fatalf("unexpected statuses %+v", o)
	}
	if o.SetStatus("ch_009", NodeStatusFailed) {
		t.Fatalf("missing chapter reported as found")
	}
	if ChapterIDFor(3) != "ch_003" {
		t.Fatalf("ChapterIDFor(3) = %s", ChapterIDFor(3))
	}
}

func TestPartitionClues(t *testing.T) {
	l := LoreData{Clues: []Clue{
		{ID: "a", Title: "玉佩", Status: ClueStatusPending},
		{ID: "b", Title: "密信", Status: ClueStatusResolved},
	}}
	pending, resolved := l.PartitionClues()
	if len(pending) != 1 || len(resolved) != 1 || resolved[0].Title != "密信" {
		t.Fatalf("pending=%v resolved=%v", pending, resolved)
	}
	if !l.HasClue(" 玉佩 ") {
		t.Fatalf("HasClue should trim")
	}
	if got := l.ClueTitles(); len(got) != 2 || got[0] != "玉佩" || got[1] != "密信" {
		t.Fatalf("ClueTitles = %v, want both pending and resolved", got)
	}
	if got := l.PendingClueTitles(); len(got) != 1 || got[0] != "玉佩" {
		t.Fatalf("PendingClueTitles = %v", got)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcd", "****"},
		{"SECRET-KEY-123", "********-123"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.in); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
