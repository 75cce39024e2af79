package jsonfs

import (
	"path/filepath"
	"testing"

	apperrors "book-engine/pkg/errors"
)

func TestValidateBookID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"book_1718000000000_abc123", true},
		{"book_x-y_z", true},
		{"book_", false},
		{"book_../../etc", false},
		{"book_a/b", false},
		{"../book_1", false},
		{"", false},
		{"BOOK_1", false},
	}
	for _, tt := range tests {
		err := ValidateBookID(tt.id)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateBookID(%q) err = %v, want ok=%v", tt.id, err, tt.ok)
		}
		if err != nil && !apperrors.Is(err, apperrors.ErrInvalidParam) {
			t.Errorf("ValidateBookID(%q) err = %v, want invalid param", tt.id, err)
		}
	}
}

func TestValidateChapterID(t *testing.T) {
	for _, id := range []string{"ch_001", "ch_042", "ch_1000"} {
		if err := ValidateChapterID(id); err != nil {
			t.Errorf("ValidateChapterID(%q) = %v", id, err)
		}
	}
	for _, id := range []string{"ch_01", "ch_abc", "chapter_001", "ch_001/../x", ""} {
		if err := ValidateChapterID(id); err == nil {
			t.Errorf("ValidateChapterID(%q) accepted", id)
		}
	}
}

func TestCreateBookIDPassesValidation(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := CreateBookID()
		if err := ValidateBookID(id); err != nil {
			t.Fatalf("generated id %q invalid: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPathsLayout(t *testing.T) {
	p := NewPaths("/data")
	tests := map[string]string{
		p.MetaPath("book_1"):              "/data/books/book_1/meta.json",
		p.LorePath("book_1"):              "/data/books/book_1/lore.json",
		p.OutlinePath("book_1"):           "/data/books/book_1/outline.json",
		p.ChapterPath("book_1", "ch_002"): "/data/books/book_1/chapters/ch_002.json",
		p.LockPath("book_1", "ch_002"):    "/data/books/book_1/.locks/ch_002.lock",
		p.SettingsPath():                  "/data/settings.json",
		p.StylesPath():                    "/data/styles.json",
	}
	for got, want := range tests {
		if got != filepath.FromSlash(want) {
			t.Errorf("path = %s, want %s", got, want)
		}
	}
}
