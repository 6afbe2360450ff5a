// ABOUTME: Tests for exact vector search, atomic adds and persistence round-trips
// ABOUTME: Uses small 3D vectors and t.TempDir for artifacts
package index

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/harper/docqa/internal/models"
)

func newTestIndex(t *testing.T, dim int) *VectorIndex {
	t.Helper()
	vi, err := New(dim, t.TempDir(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return vi
}

func chunk(text, source string) models.Chunk {
	return models.Chunk{Text: text, Metadata: models.Metadata{Source: source}}
}

func TestNew_InvalidDimension(t *testing.T) {
	if _, err := New(0, t.TempDir(), nil); err == nil {
		t.Error("New(0) should fail")
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	vi := newTestIndex(t, 3)
	for _, k := range []int{0, 1, 10} {
		if got := vi.Search(models.Vector{1, 0, 0}, k); len(got) != 0 {
			t.Errorf("Search(k=%d) on empty index returned %d results", k, len(got))
		}
	}
}

func TestAdd_ThenSearchFindsExactVector(t *testing.T) {
	vi := newTestIndex(t, 3)
	chunks := []models.Chunk{chunk("a", "a.txt"), chunk("b", "b.txt"), chunk("c", "c.txt")}
	vectors := []models.Vector{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if err := vi.Add(chunks, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	for i, v := range vectors {
		results := vi.Search(v, 2)
		if len(results) == 0 {
			t.Fatalf("Search for vector %d returned nothing", i)
		}
		if results[0].Chunk.Text != chunks[i].Text {
			t.Errorf("top result for vector %d = %q, want %q", i, results[0].Chunk.Text, chunks[i].Text)
		}
		if results[0].Distance != 0 {
			t.Errorf("top distance for vector %d = %f, want 0", i, results[0].Distance)
		}
	}
}

func TestSearch_OrderingAndClamp(t *testing.T) {
	vi := newTestIndex(t, 2)
	chunks := []models.Chunk{chunk("far", "f"), chunk("near", "n"), chunk("mid", "m")}
	vectors := []models.Vector{{10, 10}, {1, 0}, {3, 0}}
	if err := vi.Add(chunks, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results := vi.Search(models.Vector{0, 0}, 10)
	if len(results) != 3 {
		t.Fatalf("expected k clamped to 3, got %d", len(results))
	}
	want := []string{"near", "mid", "far"}
	for i, r := range results {
		if r.Chunk.Text != want[i] {
			t.Errorf("result %d = %q, want %q", i, r.Chunk.Text, want[i])
		}
		if i > 0 && r.Distance < results[i-1].Distance {
			t.Errorf("distances not ascending at %d: %f < %f", i, r.Distance, results[i-1].Distance)
		}
	}
	if results[0].Distance != 1 || results[1].Distance != 9 || results[2].Distance != 200 {
		t.Errorf("unexpected squared distances: %v, %v, %v", results[0].Distance, results[1].Distance, results[2].Distance)
	}

	if got := vi.Search(models.Vector{0, 0}, 0); len(got) != 0 {
		t.Errorf("Search(k=0) returned %d results", len(got))
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	vi := newTestIndex(t, 2)
	chunks := []models.Chunk{chunk("first", "1"), chunk("second", "2"), chunk("third", "3")}
	vectors := []models.Vector{{1, 0}, {0, 1}, {-1, 0}}
	if err := vi.Add(chunks, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results := vi.Search(models.Vector{0, 0}, 3)
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Chunk.Text != want {
			t.Errorf("tie result %d = %q, want %q", i, results[i].Chunk.Text, want)
		}
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	vi := newTestIndex(t, 3)
	if err := vi.Add([]models.Chunk{chunk("a", "a")}, []models.Vector{{1, 2, 3}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := vi.Search(models.Vector{1, 2}, 1); len(got) != 0 {
		t.Errorf("mismatched query returned %d results", len(got))
	}
}

func TestAdd_MismatchLeavesIndexUnchanged(t *testing.T) {
	vi := newTestIndex(t, 3)
	if err := vi.Add([]models.Chunk{chunk("keep", "k")}, []models.Vector{{1, 1, 1}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tests := []struct {
		name    string
		chunks  []models.Chunk
		vectors []models.Vector
	}{
		{"count mismatch", []models.Chunk{chunk("a", "a"), chunk("b", "b")}, []models.Vector{{1, 2, 3}}},
		{"bad dimension in batch", []models.Chunk{chunk("a", "a"), chunk("b", "b")}, []models.Vector{{1, 2, 3}, {1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vi.Add(tt.chunks, tt.vectors)
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Fatalf("Add error = %v, want ErrDimensionMismatch", err)
			}
			if vi.Size() != 1 {
				t.Errorf("Size() = %d after failed Add, want 1", vi.Size())
			}
		})
	}
}

func TestPersistRestore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	vi, _ := New(3, dir, log.New(io.Discard))

	chunks := []models.Chunk{
		{Text: "Plan X covers dental.", Metadata: models.Metadata{Source: "x.pdf", Page: models.IntPtr(1)}},
		chunk("Plan Y covers vision.", "y.txt"),
	}
	vectors := []models.Vector{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}
	if err := vi.Add(chunks, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := vi.Persist(context.Background()); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	restored, _ := New(3, dir, log.New(io.Discard))
	ok, err := restored.Restore()
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !ok {
		t.Fatal("Restore returned false with artifacts present")
	}
	if restored.Size() != 2 {
		t.Fatalf("restored Size() = %d, want 2", restored.Size())
	}

	for i := range vectors {
		if restored.entries[i].chunk.Text != chunks[i].Text {
			t.Errorf("chunk %d = %q, want %q", i, restored.entries[i].chunk.Text, chunks[i].Text)
		}
		for j := range vectors[i] {
			if restored.entries[i].vector[j] != vectors[i][j] {
				t.Errorf("vector %d[%d] = %f, want %f", i, j, restored.entries[i].vector[j], vectors[i][j])
			}
		}
	}
	if p := restored.entries[0].chunk.Metadata.Page; p == nil || *p != 1 {
		t.Errorf("page metadata lost in round trip: %v", p)
	}
}

func TestRestore_NoArtifacts(t *testing.T) {
	vi := newTestIndex(t, 3)
	ok, err := vi.Restore()
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if ok {
		t.Error("Restore should return false without artifacts")
	}
}

func TestRestore_MissingOneArtifact(t *testing.T) {
	for _, missing := range []string{IndexFileName, ChunksFileName} {
		t.Run(missing, func(t *testing.T) {
			dir := t.TempDir()
			vi, _ := New(3, dir, log.New(io.Discard))
			if err := vi.Add([]models.Chunk{chunk("a", "a")}, []models.Vector{{1, 2, 3}}); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if err := vi.Persist(context.Background()); err != nil {
				t.Fatalf("Persist failed: %v", err)
			}
			if err := os.Remove(filepath.Join(dir, missing)); err != nil {
				t.Fatalf("remove failed: %v", err)
			}

			fresh, _ := New(3, dir, log.New(io.Discard))
			_, err := fresh.Restore()
			if !errors.Is(err, ErrInconsistentArtifacts) {
				t.Errorf("Restore error = %v, want ErrInconsistentArtifacts", err)
			}
			if fresh.Size() != 0 {
				t.Errorf("partial restore populated %d entries", fresh.Size())
			}
		})
	}
}

func TestRestore_TornPairRejected(t *testing.T) {
	dirA := t.TempDir()
	a, _ := New(3, dirA, log.New(io.Discard))
	if err := a.Add([]models.Chunk{chunk("old text", "a.txt")}, []models.Vector{{1, 0, 0}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := a.Persist(context.Background()); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	dirB := t.TempDir()
	b, _ := New(3, dirB, log.New(io.Discard))
	if err := b.Add([]models.Chunk{chunk("new text", "b.txt")}, []models.Vector{{0, 0, 1}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Persist(context.Background()); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	// Same counts, but the vectors come from a different Persist
	data, err := os.ReadFile(filepath.Join(dirB, IndexFileName))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dirA, IndexFileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	fresh, _ := New(3, dirA, log.New(io.Discard))
	ok, err := fresh.Restore()
	if !errors.Is(err, ErrInconsistentArtifacts) {
		t.Errorf("Restore error = %v, want ErrInconsistentArtifacts", err)
	}
	if ok || fresh.Size() != 0 {
		t.Errorf("torn pair restored: ok=%t size=%d", ok, fresh.Size())
	}
}

func TestPersist_RewritesPairTogether(t *testing.T) {
	dir := t.TempDir()
	vi, _ := New(3, dir, log.New(io.Discard))
	for _, text := range []string{"first", "second"} {
		if err := vi.Add([]models.Chunk{chunk(text, "a.txt")}, []models.Vector{{1, 2, 3}}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if err := vi.Persist(context.Background()); err != nil {
			t.Fatalf("Persist failed: %v", err)
		}
	}

	fresh, _ := New(3, dir, log.New(io.Discard))
	if ok, err := fresh.Restore(); err != nil || !ok || fresh.Size() != 2 {
		t.Errorf("Restore after repeated Persist: ok=%t err=%v size=%d", ok, err, fresh.Size())
	}
}

func TestRestore_DimensionChanged(t *testing.T) {
	dir := t.TempDir()
	vi, _ := New(3, dir, log.New(io.Discard))
	if err := vi.Add([]models.Chunk{chunk("a", "a")}, []models.Vector{{1, 2, 3}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := vi.Persist(context.Background()); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	other, _ := New(4, dir, log.New(io.Discard))
	if _, err := other.Restore(); !errors.Is(err, ErrInconsistentArtifacts) {
		t.Errorf("Restore error = %v, want ErrInconsistentArtifacts", err)
	}
}

func TestClear_KeepsArtifactsUntilPersist(t *testing.T) {
	dir := t.TempDir()
	vi, _ := New(3, dir, log.New(io.Discard))
	if err := vi.Add([]models.Chunk{chunk("a", "a")}, []models.Vector{{1, 2, 3}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := vi.Persist(context.Background()); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	vi.Clear()
	if vi.Size() != 0 {
		t.Fatalf("Size() after Clear = %d", vi.Size())
	}
	if vi.Dimension() != 3 {
		t.Errorf("Dimension() after Clear = %d, want 3", vi.Dimension())
	}

	fresh, _ := New(3, dir, log.New(io.Discard))
	if ok, err := fresh.Restore(); err != nil || !ok || fresh.Size() != 1 {
		t.Fatalf("artifacts should survive Clear: ok=%t err=%v size=%d", ok, err, fresh.Size())
	}

	if err := vi.Persist(context.Background()); err != nil {
		t.Fatalf("Persist after Clear failed: %v", err)
	}
	fresh2, _ := New(3, dir, log.New(io.Discard))
	if ok, err := fresh2.Restore(); err != nil || !ok || fresh2.Size() != 0 {
		t.Errorf("restore after cleared persist: ok=%t err=%v size=%d", ok, err, fresh2.Size())
	}
}

func TestSampleAndSourceCount(t *testing.T) {
	vi := newTestIndex(t, 1)
	chunks := []models.Chunk{chunk("1", "a"), chunk("2", "a"), chunk("3", "b"), chunk("4", "c")}
	vectors := []models.Vector{{1}, {2}, {3}, {4}}
	if err := vi.Add(chunks, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	sample := vi.Sample(3)
	if len(sample) != 3 || sample[0].Text != "1" || sample[2].Text != "3" {
		t.Errorf("Sample(3) = %+v", sample)
	}
	if got := vi.SourceCount(); got != 3 {
		t.Errorf("SourceCount() = %d, want 3", got)
	}
}

func TestConcurrentAddAndSearch(t *testing.T) {
	vi := newTestIndex(t, 2)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = vi.Add([]models.Chunk{chunk("c", "s")}, []models.Vector{{float32(i), 0}})
		}(i)
		go func() {
			defer wg.Done()
			for _, r := range vi.Search(models.Vector{0, 0}, 5) {
				if r.Chunk.Text != "c" {
					t.Errorf("unexpected chunk %q", r.Chunk.Text)
				}
			}
		}()
	}
	wg.Wait()
	if vi.Size() != 20 {
		t.Errorf("Size() = %d, want 20", vi.Size())
	}
}
