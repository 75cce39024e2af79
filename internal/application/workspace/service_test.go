package workspace

import (
	"context"
	"os"
	"reflect"
	"testing"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/service"
	apperrors "book-engine/pkg/errors"
)

func TestCreateBookDefaults(t *testing.T) {
	h := newHarness(t, newScriptedGenerator())
	ctx := context.Background()

	meta, err := h.svc.CreateBook(ctx, CreateBookInput{Title: "  无名之书  "})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if meta.Title != "无名之书" || meta.Genre != entity.DefaultGenre || meta.Readers != entity.DefaultReaders ||
		meta.TargetWords != entity.DefaultTargetWords || meta.Pace != entity.DefaultPace {
		t.Fatalf("defaults not applied: %+v", meta)
	}
	if meta.StyleSnapshot != nil {
		t.Fatalf("no styles exist, snapshot should be nil")
	}
	if meta.CreatedAt == "" || meta.CreatedAt != meta.UpdatedAt {
		t.Fatalf("timestamps = %q / %q", meta.CreatedAt, meta.UpdatedAt)
	}

	ws, err := h.svc.ReadWorkspace(ctx, meta.ID)
	if err != nil {
		t.Fatalf("ReadWorkspace: %v", err)
	}
	if ws.Meta == nil || ws.Meta.ID != meta.ID || len(ws.Outline) != 0 || len(ws.Lore.Clues) != 0 {
		t.Fatalf("workspace = %+v", ws)
	}

	if _, err := h.svc.CreateBook(ctx, CreateBookInput{Title: " "}); !apperrors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("blank title err = %v", err)
	}
}

func TestCreateBookSnapshotsStyle(t *testing.T) {
	h := newHarness(t, newScriptedGenerator())
	ctx := context.Background()

	def, err := h.styles.Create(ctx, StyleInput{Name: "默认", SystemPrompt: "默认文风", IsDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	picked, err := h.styles.Create(ctx, StyleInput{Name: "指定", SystemPrompt: "指定文风"})
	if err != nil {
		t.Fatal(err)
	}

	withDefault, err := h.svc.CreateBook(ctx, CreateBookInput{Title: "甲"})
	if err != nil {
		t.Fatal(err)
	}
	if withDefault.StyleSnapshot == nil || withDefault.StyleSnapshot.ID != def.ID {
		t.Fatalf("expected default style snapshot, got %+v", withDefault.StyleSnapshot)
	}

	withPicked, err := h.svc.CreateBook(ctx, CreateBookInput{Title: "乙", StyleID: picked.ID})
	if err != nil {
		t.Fatal(err)
	}
	if withPicked.StyleSnapshot == nil || withPicked.StyleSnapshot.SystemPrompt != "指定文风" {
		t.Fatalf("expected picked style snapshot, got %+v", withPicked.StyleSnapshot)
	}

	newPrompt := "修改后的文风"
	if _, err := h.styles.Update(ctx, picked.ID, StylePatch{SystemPrompt: &newPrompt}); err != nil {
		t.Fatal(err)
	}
	stored, _ := h.svc.GetMeta(ctx, withPicked.ID)
	if stored.StyleSnapshot.SystemPrompt != "指定文风" {
		t.Fatalf("snapshot must not follow later preset edits")
	}
}

func TestReadWorkspaceMissingBookWritesNothing(t *testing.T) {
	h := newHarness(t, newScriptedGenerator())
	ws, err := h.svc.ReadWorkspace(context.Background(), "book_ghost")
	if err != nil {
		t.Fatalf("ReadWorkspace: %v", err)
	}
	if ws.Meta != nil || ws.Outline == nil || len(ws.Outline) != 0 || ws.Lore.Clues == nil {
		t.Fatalf("workspace = %+v", ws)
	}
	if _, err := os.Stat(h.client.Paths().BookDir("book_ghost")); !os.IsNotExist(err) {
		t.Fatalf("book dir should not exist, stat err = %v", err)
	}

	if _, err := h.svc.ReadWorkspace(context.Background(), "../x"); !apperrors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("traversal err = %v", err)
	}
}

func TestUpdateMeta(t *testing.T) {
	h := newHarness(t, newScriptedGenerator())
	ctx := context.Background()
	bookID := h.createBook(t)

	genre := "科幻"
	words := 200000
	meta, err := h.svc.UpdateMeta(ctx, bookID, UpdateMetaInput{Genre: &genre, TargetWords: &words})
	if err != nil {
		t.Fatalf("UpdateMeta: %v", err)
	}
	if meta.Genre != "科幻" || meta.TargetWords != 200000 || meta.Title != "星海归途" {
		t.Fatalf("meta = %+v", meta)
	}

	zero := 0
	if _, err := h.svc.UpdateMeta(ctx, bookID, UpdateMetaInput{TargetWords: &zero}); !apperrors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("err = %v", err)
	}
	if _, err := h.svc.UpdateMeta(ctx, "book_ghost", UpdateMetaInput{Genre: &genre}); !apperrors.Is(err, apperrors.ErrBookNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestExpandLore(t *testing.T) {
	resp := "```json\n" + `{"world":"群星时代","factions":["联邦","星盗"],"protagonist":"林舟","sideCharacters":["白夜"],"finalGoal":"找回失落的星图"}` + "\n```"

	t.Run("json", func(t *testing.T) {
		h := newHarness(t, newScriptedGenerator().reply(service.WorkflowLoreExpand, resp))
		ctx := context.Background()
		bookID := h.createBook(t)
		override := "赛博修仙"

		res, err := h.svc.ExpandLore(ctx, bookID, LoreOverrides{World: &override})
		if err != nil {
			t.Fatalf("ExpandLore: %v", err)
		}
		if res.Degraded || res.Lore.World != "赛博修仙" || res.Lore.Protagonist != "林舟" ||
			!reflect.DeepEqual(res.Lore.Factions, []string{"联邦", "星盗"}) {
			t.Fatalf("result = %+v", res)
		}
		meta, _ := h.svc.GetMeta(ctx, bookID)
		if meta.FinalGoal != "找回失落的星图" {
			t.Fatalf("finalGoal = %q", meta.FinalGoal)
		}
	})

	t.Run("prose degrades", func(t *testing.T) {
		h := newHarness(t, newScriptedGenerator().reply(service.WorkflowLoreExpand, "一个群星破碎的时代。"))
		ctx := context.Background()
		bookID := h.createBook(t)

		res, err := h.svc.ExpandLore(ctx, bookID, LoreOverrides{})
		if err != nil {
			t.Fatalf("ExpandLore: %v", err)
		}
		if !res.Degraded || res.Lore.World != "一个群星破碎的时代。" {
			t.Fatalf("result = %+v", res)
		}
		if res.Lore.Protagonist != "主角设定：星海归途的主人公" || res.FinalGoal != "基于AI生成的目标：少年追寻失落的星图的最终实现" {
			t.Fatalf("defaults = %q / %q", res.Lore.Protagonist, res.FinalGoal)
		}
	})

	t.Run("failure mutates nothing", func(t *testing.T) {
		h := newHarness(t, newScriptedGenerator().fail(service.WorkflowLoreExpand))
		ctx := context.Background()
		bookID := h.createBook(t)
		before, _ := h.svc.ReadWorkspace(ctx, bookID)

		_, err := h.svc.ExpandLore(ctx, bookID, LoreOverrides{})
		if !apperrors.Is(err, apperrors.ErrGenerationUnavailable) {
			t.Fatalf("err = %v, want ErrGenerationUnavailable", err)
		}
		after, _ := h.svc.ReadWorkspace(ctx, bookID)
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("workspace changed after failed expansion")
		}
	})

	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t, newScriptedGenerator().reply(service.WorkflowLoreExpand, resp))
		h.svc.credentials = staticCredentials(false)
		bookID := h.createBook(t)

		if _, err := h.svc.ExpandLore(context.Background(), bookID, LoreOverrides{}); !apperrors.Is(err, apperrors.ErrNotConfigured) {
			t.Fatalf("err = %v, want ErrNotConfigured", err)
		}
		if len(h.gen.requests(service.WorkflowLoreExpand)) != 0 {
			t.Fatalf("generation must not be attempted without credentials")
		}
	})
}

func TestProgressStatsAndClues(t *testing.T) {
	gen := newScriptedGenerator().
		fail(service.WorkflowOutlinePlan).
		reply(service.WorkflowChapterGen, "一二三四五 六七八九十")
	h := newHarness(t, gen)
	ctx := context.Background()
	bookID := h.createBook(t)
	planFallback(t, h, bookID)

	if _, err := h.lore.Update(ctx, bookID, func(l *entity.LoreData) error {
		l.Clues = []entity.Clue{
			{ID: "c1", Title: "A", Status: entity.ClueStatusPending},
			{ID: "c2", Title: "B", Status: entity.ClueStatusResolved},
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.generator.GenerateChapterDraft(ctx, bookID, "ch_001"); err != nil {
		t.Fatal(err)
	}

	p, err := h.svc.Progress(ctx, bookID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.CurrentWords != 10 || p.TargetWords != 120000 {
		t.Fatalf("progress = %+v", p)
	}
	if p.ChapterStats != (ChapterStats{Planned: 3, Written: 1, Locked: 3}) {
		t.Fatalf("chapter stats = %+v", p.ChapterStats)
	}

	st, err := h.svc.Stats(ctx, bookID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalWordCount != 10 || st.CompletedChapters != 1 || st.Progress != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if st.ClueStats != (ClueStats{Total: 2, Pending: 1, Resolved: 1}) {
		t.Fatalf("clue stats = %+v", st.ClueStats)
	}
	if st.OutlineStats.Total != 3 || st.OutlineStats.Generated != 1 || st.OutlineStats.Locked != 2 {
		t.Fatalf("outline stats = %+v", st.OutlineStats)
	}

	clues, err := h.svc.Clues(ctx, bookID)
	if err != nil {
		t.Fatalf("Clues: %v", err)
	}
	if clues.Total != 2 || len(clues.Pending) != 1 || clues.Resolved[0].Title != "B" {
		t.Fatalf("clues = %+v", clues)
	}

	book, err := h.svc.ReadBook(ctx, bookID)
	if err != nil {
		t.Fatalf("ReadBook: %v", err)
	}
	if len(book) != 1 || book[0].ChapterID != "ch_001" {
		t.Fatalf("book = %+v", book)
	}

	if _, err := h.svc.Progress(ctx, "book_ghost"); !apperrors.Is(err, apperrors.ErrBookNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateChapter(t *testing.T) {
	h := newHarness(t, newScriptedGenerator())
	ctx := context.Background()
	bookID := h.createBook(t)

	if _, err := h.svc.UpdateChapter(ctx, bookID, "ch_001", "标题", "正文"); !apperrors.Is(err, apperrors.ErrChapterNotFound) {
		t.Fatalf("err = %v, want ErrChapterNotFound", err)
	}
	if err := h.chapters.Save(ctx, bookID, entity.NewChapterData("ch_001", "旧标题", "旧")); err != nil {
		t.Fatal(err)
	}

	ch, err := h.svc.UpdateChapter(ctx, bookID, "ch_001", " 新标题 ", "新的 正文\n内容")
	if err != nil {
		t.Fatalf("UpdateChapter: %v", err)
	}
	if ch.Title != "新标题" || ch.WordCount != 6 {
		t.Fatalf("chapter = %+v", ch)
	}
	stored, _ := h.svc.GetChapter(ctx, bookID, "ch_001")
	if stored.Content != "新的 正文\n内容" {
		t.Fatalf("stored = %+v", stored)
	}

	if _, err := h.svc.UpdateChapter(ctx, bookID, "ch_001", "标题", "  "); !apperrors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("err = %v, want ErrInvalidParam", err)
	}
}
