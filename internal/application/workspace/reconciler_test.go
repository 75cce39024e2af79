package workspace

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/service"
	apperrors "book-engine/pkg/errors"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("clue_%02d", n)
	}
}

func clueStatuses(clues []entity.Clue) map[string]entity.ClueStatus {
	out := make(map[string]entity.ClueStatus, len(clues))
	for _, c := range clues {
		out[c.Title] = c.Status
	}
	return out
}

func TestScenarioClueTrackingMerge(t *testing.T) {
	gen := newScriptedGenerator().
		reply(service.WorkflowChapterSummary, "摘要").
		reply(service.WorkflowClueTrack, "分析如下：\n"+`{"resolved": ["A"], "newClues": ["B", "C"]}`)
	h := newHarness(t, gen)
	ctx := context.Background()
	bookID := h.createBook(t)

	if _, err := h.lore.Update(ctx, bookID, func(l *entity.LoreData) error {
		l.Clues = []entity.Clue{
			{ID: "clue_a", Title: "A", Status: entity.ClueStatusPending},
			{ID: "clue_b", Title: "B", Status: entity.ClueStatusPending},
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	chapter := entity.NewChapterData("ch_001", "第一章", "正文")
	res, err := h.reconciler.Reconcile(ctx, bookID, chapter, entity.OutlineNode{ChapterID: "ch_001"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	lore, _ := h.lore.Get(ctx, bookID)
	if len(lore.Clues) != 3 {
		t.Fatalf("clues = %+v, want 3 entries", lore.Clues)
	}
	want := map[string]entity.ClueStatus{"A": entity.ClueStatusResolved, "B": entity.ClueStatusPending, "C": entity.ClueStatusPending}
	if got := clueStatuses(lore.Clues); !reflect.DeepEqual(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	if lore.Clues[0].ID != "clue_a" || lore.Clues[1].ID != "clue_b" || lore.Clues[2].ID == "" {
		t.Fatalf("ids not preserved: %+v", lore.Clues)
	}
	if !reflect.DeepEqual(res.Lore.Clues, lore.Clues) {
		t.Fatalf("result lore differs from stored lore")
	}

	prompt := h.gen.requests(service.WorkflowClueTrack)[0].Prompt
	if !strings.Contains(prompt, "A\nB") {
		t.Fatalf("clue titles missing from prompt:\n%s", prompt)
	}
}

func TestTrackCluesListsResolvedTitles(t *testing.T) {
	gen := newScriptedGenerator().reply(service.WorkflowClueTrack, `{"resolved": [], "newClues": []}`)
	h := newHarness(t, gen)
	ctx := context.Background()
	bookID := h.createBook(t)

	if _, err := h.lore.Update(ctx, bookID, func(l *entity.LoreData) error {
		l.Clues = []entity.Clue{
			{ID: "clue_a", Title: "古老的预言", Status: entity.ClueStatusResolved},
			{ID: "clue_b", Title: "失踪的信使", Status: entity.ClueStatusPending},
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	chapter := entity.NewChapterData("ch_002", "第二章", "正文")
	if _, err := h.reconciler.Reconcile(ctx, bookID, chapter, entity.OutlineNode{ChapterID: "ch_002"}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	prompt := h.gen.requests(service.WorkflowClueTrack)[0].Prompt
	for _, title := range []string{"古老的预言", "失踪的信使"} {
		if !strings.Contains(prompt, title) {
			t.Fatalf("clue %q missing from prompt:\n%s", title, prompt)
		}
	}
}

func TestReconcileBudgetDegradesGenerationButPersists(t *testing.T) {
	gen := newScriptedGenerator().
		on(service.WorkflowChapterSummary, func(ctx context.Context, _ service.GenerateRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}).
		on(service.WorkflowClueTrack, func(ctx context.Context, _ service.GenerateRequest) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return `{"resolved": [], "newClues": ["新的悬念"]}`, nil
		})
	h := newHarness(t, gen)
	h.reconciler.WithBudget(20 * time.Millisecond)
	ctx := context.Background()
	bookID := h.createBook(t)

	chapter := entity.NewChapterData("ch_001", "第一章", "正文")
	res, err := h.reconciler.Reconcile(ctx, bookID, chapter, entity.OutlineNode{ChapterID: "ch_001"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Summary != "" {
		t.Fatalf("summary = %q, want degraded", res.Summary)
	}
	if !res.ClueTracking.Degraded {
		t.Fatalf("clue tracking ran after the budget expired: %+v", res.ClueTracking)
	}
	if _, err := h.lore.Get(ctx, bookID); err != nil {
		t.Fatalf("lore unreadable after budget expiry: %v", err)
	}
}

func TestApplyClueTrackingIdempotent(t *testing.T) {
	base := []entity.Clue{
		{ID: "c1", Title: "A", Status: entity.ClueStatusPending},
		{ID: "c2", Title: "B", Status: entity.ClueStatusResolved},
	}
	tracking := ClueTracking{Resolved: []string{"A", "D"}, NewClues: []string{"C", " C ", "", "D"}}

	once := ApplyClueTracking(base, tracking, sequentialIDs())
	twice := ApplyClueTracking(once, tracking, sequentialIDs())
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second application changed the ledger:\n%+v\n%+v", once, twice)
	}

	want := map[string]entity.ClueStatus{
		"A": entity.ClueStatusResolved,
		"B": entity.ClueStatusResolved,
		"C": entity.ClueStatusPending,
		"D": entity.ClueStatusResolved,
	}
	if got := clueStatuses(once); !reflect.DeepEqual(got, want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	if base[0].Status != entity.ClueStatusPending {
		t.Fatalf("input slice was mutated")
	}
}

func TestApplyClueTrackingResolvedAndNewSameTitle(t *testing.T) {
	tracking := ClueTracking{Resolved: []string{"X"}, NewClues: []string{"X"}}

	once := ApplyClueTracking(nil, tracking, sequentialIDs())
	if len(once) != 1 || once[0].Status != entity.ClueStatusResolved {
		t.Fatalf("clue = %+v, want a single resolved entry", once)
	}
	twice := ApplyClueTracking(once, tracking, sequentialIDs())
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second application changed the ledger:\n%+v\n%+v", once, twice)
	}
}

func TestApplyClueTrackingNeverReverts(t *testing.T) {
	base := []entity.Clue{{ID: "c1", Title: "A", Status: entity.ClueStatusResolved}}
	out := ApplyClueTracking(base, ClueTracking{NewClues: []string{"A"}}, sequentialIDs())
	if len(out) != 1 || out[0].Status != entity.ClueStatusResolved {
		t.Fatalf("resolved clue reverted or duplicated: %+v", out)
	}
}

func TestParseClueTracking(t *testing.T) {
	tests := []struct {
		name     string
		resp     string
		degraded bool
		resolved []string
		newClues []string
	}{
		{"empty", "", true, []string{}, []string{}},
		{"prose", "本章没有伏笔变化。", true, []string{}, []string{}},
		{"broken json", `{"resolved": ["A"`, true, []string{}, []string{}},
		{"wrapped", "结果：\n```json\n{\"resolved\": [\" A \"], \"newClues\": [\"B\", \"B\"]}\n```", false, []string{"A"}, []string{"B"}},
		{"missing fields", `{}`, false, []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseClueTracking(tt.resp)
			if got.Degraded != tt.degraded {
				t.Fatalf("degraded = %v, want %v", got.Degraded, tt.degraded)
			}
			if !reflect.DeepEqual(got.Resolved, tt.resolved) || !reflect.DeepEqual(got.NewClues, tt.newClues) {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestParseCharacterNotes(t *testing.T) {
	names := []string{"林舟", "白夜", "老陈"}
	tests := []struct {
		name string
		resp string
		want map[string]string
	}{
		{
			"json",
			`{"林舟": "负伤但坚定", "白夜": "开始怀疑"}`,
			map[string]string{"林舟": "负伤但坚定", "白夜": "开始怀疑", "老陈": characterNoteUnchanged},
		},
		{
			"heuristic",
			"林舟在本章中经历了转变。",
			map[string]string{"林舟": characterNoteMentioned, "白夜": characterNoteUnchanged, "老陈": characterNoteUnchanged},
		},
		{
			"blank value falls back",
			`{"林舟": " "}`,
			map[string]string{"林舟": characterNoteMentioned, "白夜": characterNoteUnchanged, "老陈": characterNoteUnchanged},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCharacterNotes(tt.resp, names); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileDegradesWithoutGeneration(t *testing.T) {
	h := newHarness(t, newScriptedGenerator().fail(service.WorkflowOutlinePlan))
	ctx := context.Background()
	bookID := h.createBook(t)
	planFallback(t, h, bookID)

	chapter := entity.NewChapterData("ch_001", "第一章：风起之夜", "正文")
	res, err := h.reconciler.Reconcile(ctx, bookID, chapter, h.node(t, bookID, "ch_001"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Summary != "" || len(res.CharacterUpdates) != 0 || !res.ClueTracking.Degraded {
		t.Fatalf("expected degraded result, got %+v", res)
	}
	if n := h.node(t, bookID, "ch_001"); n.Summary != "" || n.Status != entity.NodeStatusLocked {
		t.Fatalf("node changed: %+v", n)
	}
}

func TestReflexChapter(t *testing.T) {
	gen := newScriptedGenerator().
		fail(service.WorkflowOutlinePlan).
		reply(service.WorkflowChapterSummary, "重新对账的摘要").
		reply(service.WorkflowCharacterState, "无明显变化")
	h := newHarness(t, gen)
	ctx := context.Background()
	bookID := h.createBook(t)
	planFallback(t, h, bookID)

	if _, err := h.reconciler.ReflexChapter(ctx, bookID, "ch_001"); !apperrors.Is(err, apperrors.ErrChapterNotFound) {
		t.Fatalf("err = %v, want ErrChapterNotFound", err)
	}
	if _, err := h.reconciler.ReflexChapter(ctx, bookID, "chapter1"); !apperrors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("err = %v, want ErrInvalidParam", err)
	}

	if err := h.chapters.Save(ctx, bookID, entity.NewChapterData("ch_001", "第一章：风起之夜", "主角出场。")); err != nil {
		t.Fatal(err)
	}
	res, err := h.reconciler.ReflexChapter(ctx, bookID, "ch_001")
	if err != nil {
		t.Fatalf("ReflexChapter: %v", err)
	}
	if res.Summary != "重新对账的摘要" || h.node(t, bookID, "ch_001").Summary != "重新对账的摘要" {
		t.Fatalf("summary not stored: %+v", res)
	}
	if got := res.CharacterUpdates["主角"]; got != characterNoteUnchanged {
		t.Fatalf("character note = %q", got)
	}
}
