package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"book-engine/internal/domain/entity"
	"book-engine/internal/domain/service"
	"book-engine/internal/infrastructure/lock"
	"book-engine/internal/infrastructure/persistence/jsonfs"
	workflowprompt "book-engine/internal/workflow/prompt"
)

var errUnavailable = errors.New("generation service unavailable")

// scriptedGenerator 按工作流返回预设回复并记录全部请求
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   []service.GenerateRequest
	replies map[string]func(ctx context.Context, req service.GenerateRequest) (string, error)
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		replies: map[string]func(context.Context, service.GenerateRequest) (string, error){},
	}
}

func (g *scriptedGenerator) on(workflow string, fn func(ctx context.Context, req service.GenerateRequest) (string, error)) *scriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[workflow] = fn
	return g
}

func (g *scriptedGenerator) reply(workflow, text string) *scriptedGenerator {
	return g.on(workflow, func(context.Context, service.GenerateRequest) (string, error) { return text, nil })
}

func (g *scriptedGenerator) fail(workflow string) *scriptedGenerator {
	return g.on(workflow, func(context.Context, service.GenerateRequest) (string, error) { return "", errUnavailable })
}

func (g *scriptedGenerator) Generate(ctx context.Context, req service.GenerateRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	fn := g.replies[req.Workflow]
	g.mu.Unlock()
	if fn == nil {
		return "", errUnavailable
	}
	return fn(ctx, req)
}

func (g *scriptedGenerator) requests(workflow string) []service.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []service.GenerateRequest
	for _, c := range g.calls {
		if c.Workflow == workflow {
			out = append(out, c)
		}
	}
	return out
}

type staticCredentials bool

func (c staticCredentials) Configured(context.Context) bool { return bool(c) }

type harness struct {
	client     *jsonfs.Client
	books      *jsonfs.BookRepository
	lore       *jsonfs.LoreRepository
	outlines   *jsonfs.OutlineRepository
	chapters   *jsonfs.ChapterRepository
	styleRepo  *jsonfs.StyleRepository
	gen        *scriptedGenerator
	svc        *Service
	planner    *OutlinePlanner
	reconciler *LoreReconciler
	generator  *ChapterGenerator
	styles     *StyleService
}

func newHarness(t *testing.T, gen *scriptedGenerator) *harness {
	t.Helper()
	return newHarnessWith(t, gen, GenerationOptions{Timeout: 5 * time.Second, PreviousTailRunes: 500, NextPreviewRunes: 200})
}

func newHarnessWith(t *testing.T, gen *scriptedGenerator, opts GenerationOptions) *harness {
	t.Helper()
	client, err := jsonfs.NewClient(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	h := &harness{
		client:    client,
		books:     jsonfs.NewBookRepository(client),
		lore:      jsonfs.NewLoreRepository(client),
		outlines:  jsonfs.NewOutlineRepository(client),
		chapters:  jsonfs.NewChapterRepository(client),
		styleRepo: jsonfs.NewStyleRepository(client),
		gen:       gen,
	}
	prompts := workflowprompt.NewRegistry()
	locker := lock.NewLocalLocker(client.Paths().LockPath)

	h.svc = NewService(h.books, h.lore, h.outlines, h.chapters, h.styleRepo, gen, staticCredentials(true), prompts)
	h.planner = NewOutlinePlanner(h.books, h.lore, h.outlines, gen, prompts)
	h.reconciler = NewLoreReconciler(h.lore, h.outlines, h.chapters, gen, prompts)
	h.generator = NewChapterGenerator(h.books, h.lore, h.outlines, h.chapters, gen, locker, h.reconciler, prompts, opts)
	h.styles = NewStyleService(h.styleRepo)
	return h
}

func (h *harness) createBook(t *testing.T) string {
	t.Helper()
	meta, err := h.svc.CreateBook(context.Background(), CreateBookInput{Title: "星海归途", OneLiner: "少年追寻失落的星图", TargetWords: 120000})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return meta.ID
}

func (h *harness) node(t *testing.T, bookID, chapterID string) entity.OutlineNode {
	t.Helper()
	outline, err := h.outlines.Get(context.Background(), bookID)
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	i := outline.Find(chapterID)
	if i < 0 {
		t.Fatalf("node %s missing from outline", chapterID)
	}
	return outline[i]
}
