package memoryservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/memdash/internal/analytics"
	"github.com/starford/memdash/internal/apperr"
	"github.com/starford/memdash/internal/checksum"
	"github.com/starford/memdash/internal/index"
	"github.com/starford/memdash/internal/memoryservice"
	"github.com/starford/memdash/internal/testutil"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type triggerCounter struct{ n atomic.Int32 }

func (c *triggerCounter) Trigger() { c.n.Add(1) }

type fakeSemantic struct {
	raw json.RawMessage
	err error
}

func (f fakeSemantic) SemanticSearch(context.Context, string) (json.RawMessage, error) {
	return f.raw, f.err
}

func newService(t *testing.T, opts ...memoryservice.Option) (string, *memoryservice.Service) {
	t.Helper()
	root, store := testutil.TestWorkspace(t)
	path := testutil.TestIndexDB(t, []testutil.Chunk{
		{Path: "MEMORY.md", Text: "Grace owns the gateway"},
	}, "2024-03-09T08:00:00Z")
	db := index.Open(path)
	t.Cleanup(func() { db.Close() })

	analyzer := analytics.New(analytics.DefaultVocabulary(), analytics.DefaultOptions())
	opts = append([]memoryservice.Option{memoryservice.WithClock(func() time.Time { return now })}, opts...)
	return root, memoryservice.New(store, analyzer, db, opts...)
}

func TestListMemories_Empty(t *testing.T) {
	_, svc := newService(t)
	metas, err := svc.ListMemories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, metas)
	assert.Empty(t, metas)
}

func TestListMemories(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteNote(t, root, "MEMORY.md", "# Memory", now.Add(-time.Hour))
	testutil.WriteNote(t, root, "memory/2024-03-09.md", "# Day", now.Add(-2*time.Hour))

	metas, err := svc.ListMemories(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "MEMORY.md", metas[0].Path)
	assert.True(t, metas[1].IsDaily)
	assert.Equal(t, "2024-03-09", metas[1].Date)
}

func TestGetMemory(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteNote(t, root, "MEMORY.md", "hello", time.Time{})

	d, err := svc.GetMemory(context.Background(), "MEMORY.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", d.Content)
	assert.Equal(t, checksum.Sum([]byte("hello")), d.Checksum)

	_, err = svc.GetMemory(context.Background(), "memory/missing.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.GetMemory(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrInvalidPath)
}

func TestSaveMemory(t *testing.T) {
	trig := &triggerCounter{}
	_, svc := newService(t, memoryservice.WithReindex(trig))
	ctx := context.Background()

	d, err := svc.SaveMemory(ctx, "memory/2024-03-10.md", []byte("v1"), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), trig.n.Load())

	_, err = svc.SaveMemory(ctx, "memory/2024-03-10.md", []byte("v2"), d.Checksum)
	require.NoError(t, err)
	assert.Equal(t, int32(2), trig.n.Load())

	got, err := svc.GetMemory(ctx, "memory/2024-03-10.md")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
}

func TestSaveMemory_Conflict(t *testing.T) {
	trig := &triggerCounter{}
	root, svc := newService(t, memoryservice.WithReindex(trig))
	testutil.WriteNote(t, root, "MEMORY.md", "current", time.Time{})
	ctx := context.Background()

	_, err := svc.SaveMemory(ctx, "MEMORY.md", []byte("new"), "stale-checksum")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.SaveMemory(ctx, "memory/nope.md", []byte("new"), "anything")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, int32(0), trig.n.Load())

	quoted := `"` + checksum.Sum([]byte("current")) + `"`
	_, err = svc.SaveMemory(ctx, "MEMORY.md", []byte("new"), quoted)
	assert.NoError(t, err)
}

func TestSaveMemory_RejectsNonMarkdown(t *testing.T) {
	_, svc := newService(t)
	_, err := svc.SaveMemory(context.Background(), "notes.txt", []byte("x"), "")
	assert.ErrorIs(t, err, apperr.ErrInvalidPath)
}

func TestEntityGraphAndTags(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteNote(t, root, "MEMORY.md", "# Gateway\nWorked with Grace.", time.Time{})
	testutil.WriteNote(t, root, "memory/2024-03-09.md", "**Gateway** rollout with grace\n## Ops", time.Time{})
	ctx := context.Background()

	g, err := svc.EntityGraph(ctx)
	require.NoError(t, err)
	ids := map[string]analytics.Entity{}
	for _, n := range g.Nodes {
		ids[n.ID] = n
	}
	require.Contains(t, ids, "gateway")
	require.Contains(t, ids, "grace")
	assert.Equal(t, 2, ids["gateway"].MentionCount)
	assert.Equal(t, analytics.TypePerson, ids["grace"].Type)

	tags, err := svc.TagIndex(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	assert.Equal(t, "gateway", tags[0].Tag)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, "ops", tags[1].Tag)
}

func TestHealthUsesClock(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteNote(t, root, "memory/2024-03-10.md", "today", now)
	testutil.WriteNote(t, root, "memory/2024-01-01.md", "old", now.Add(-60*24*time.Hour))

	h, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, h.FileCount)
	assert.NotContains(t, h.CoverageGaps, "2024-03-10")
	assert.Contains(t, h.CoverageGaps, "2024-03-09")
	require.Len(t, h.StaleFiles, 1)
	assert.Equal(t, 60, h.StaleFiles[0].DaysSinceUpdate)
}

func TestDashboard(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteNote(t, root, "MEMORY.md", "# Memory", now)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.IndexError)
	assert.Equal(t, 1, d.TotalFiles)
	assert.Equal(t, 1, d.TotalChunks)
	assert.Equal(t, "2024-03-09T08:00:00Z", d.LastIndexed)
	assert.Equal(t, int64(len("# Memory")), d.MemoryMDSize)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	for _, k := range []string{"total_files", "total_chunks", "last_indexed", "heatmap", "coverage_gaps", "file_count"} {
		assert.Contains(t, flat, k)
	}
}

func TestDashboard_IndexUnavailable(t *testing.T) {
	_, store := testutil.TestWorkspace(t)
	db := index.Open(t.TempDir() + "/missing.sqlite")
	svc := memoryservice.New(store, analytics.New(analytics.DefaultVocabulary(), analytics.Options{}), db)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, d.IndexError)
	assert.Zero(t, d.TotalFiles)
	assert.NotNil(t, d.Heatmap)
}

func TestSearch(t *testing.T) {
	_, svc := newService(t)
	ctx := context.Background()

	res, err := svc.Search(ctx, "gateway", 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "MEMORY.md", res[0].File)

	res, err = svc.Search(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSemanticSearch(t *testing.T) {
	_, svc := newService(t, memoryservice.WithSemantic(fakeSemantic{raw: json.RawMessage(`[{"path":"MEMORY.md"}]`)}))
	raw, err := svc.SemanticSearch(context.Background(), "who owns the gateway")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"path":"MEMORY.md"}]`, string(raw))

	_, svc = newService(t, memoryservice.WithSemantic(fakeSemantic{err: errors.New("exit status 1")}))
	_, err = svc.SemanticSearch(context.Background(), "x")
	assert.ErrorIs(t, err, apperr.ErrIndexUnavailable)

	_, svc = newService(t)
	_, err = svc.SemanticSearch(context.Background(), "x")
	assert.ErrorIs(t, err, apperr.ErrIndexUnavailable)
}

func TestStatus(t *testing.T) {
	_, svc := newService(t)
	st := svc.Status(context.Background())
	assert.Equal(t, 1, st.FilesIndexed)
	assert.Equal(t, 1, st.TotalChunks)
}
