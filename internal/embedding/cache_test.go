package embedding

import (
	"context"
	"sync/atomic"
	"testing"
)

// countingEmbedder counts inner batch calls and texts embedded.
type countingEmbedder struct {
	*MockEmbedder
	batchCalls int32
	embedded   int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&c.embedded, 1)
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&c.batchCalls, 1)
	atomic.AddInt32(&c.embedded, int32(len(texts)))
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCached_EmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	cached := NewCached(inner, 16)
	ctx := context.Background()

	if _, err := cached.EmbedBatch(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&inner.embedded); got != 2 {
		t.Errorf("embedded after first batch: got %d, want 2", got)
	}

	// "a" and "b" are cached; only "c" goes to the inner embedder.
	vecs, err := cached.EmbedBatch(ctx, []string{"a", "c", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if got := atomic.LoadInt32(&inner.embedded); got != 3 {
		t.Errorf("embedded after second batch: got %d, want 3", got)
	}

	want, _ := inner.MockEmbedder.Embed(ctx, "c")
	got := vecs[1]
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("vector for cache miss differs at %d", i)
		}
	}
}

func TestCached_Eviction(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	cached := NewCached(inner, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		if _, err := cached.Embed(ctx, text); err != nil {
			t.Fatal(err)
		}
	}
	// "a" was evicted, so embedding it again misses.
	before := atomic.LoadInt32(&inner.embedded)
	if _, err := cached.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&inner.embedded) != before+1 {
		t.Error("expected a cache miss for evicted entry")
	}
	// "c" is still cached.
	before = atomic.LoadInt32(&inner.embedded)
	if _, err := cached.Embed(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&inner.embedded) != before {
		t.Error("expected a cache hit for recent entry")
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	a1, _ := e.Embed(context.Background(), "same text")
	a2, _ := e.Embed(context.Background(), "same text")
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("mock embedder is not deterministic")
		}
	}
	b, _ := e.Embed(context.Background(), "other text")
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}
