package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven/mocks"
)

func candidates(snippets ...string) []*domain.SearchResult {
	results := make([]*domain.SearchResult, len(snippets))
	for i, s := range snippets {
		results[i] = &domain.SearchResult{
			DocumentID: uuid.New(),
			Filename:   "doc.pdf",
			Snippet:    s,
			Score:      0.5,
		}
	}
	return results
}

func TestReranker_Rerank(t *testing.T) {
	model := mocks.NewMockRerankModel()
	r := NewReranker(func() (driven.RerankModel, error) { return model, nil }, nil)
	defer r.Close()

	// The deterministic mock embeds identical texts identically, so the
	// candidate repeating the query must rank first.
	results := candidates(
		"completely unrelated content about gardening tools",
		"quarterly financial report revenue summary for the board",
		"meeting notes from the engineering standup session",
	)

	reranked := r.Rerank(context.Background(), "quarterly financial report revenue", results, 10, 0)
	if len(reranked) == 0 {
		t.Fatal("expected results")
	}
	if reranked[0].Snippet != "quarterly financial report revenue summary for the board" {
		t.Errorf("top result = %q, want the query-matching snippet", reranked[0].Snippet)
	}
	for _, res := range reranked {
		if res.Explanation == "" {
			t.Errorf("missing explanation on %q", res.Snippet)
		}
	}
	if reranked[0].RerankScore <= reranked[len(reranked)-1].RerankScore {
		t.Errorf("rerank scores not descending: %v vs %v",
			reranked[0].RerankScore, reranked[len(reranked)-1].RerankScore)
	}
}

func TestReranker_BlendPreservesOriginalSignal(t *testing.T) {
	model := mocks.NewMockRerankModel()
	r := NewReranker(func() (driven.RerankModel, error) { return model, nil }, nil)
	defer r.Close()

	// Same snippet text, very different original scores. The blend must
	// keep the higher-scored original on top.
	results := candidates("identical snippet content for both entries", "identical snippet content for both entries")
	results[0].Score = 0.9
	results[1].Score = 0.1

	reranked := r.Rerank(context.Background(), "anything at all", results, 10, 0)
	if len(reranked) != 2 {
		t.Fatalf("got %d results, want 2", len(reranked))
	}
	if reranked[0].Score <= reranked[1].Score {
		t.Errorf("blend lost original ordering: %v <= %v", reranked[0].Score, reranked[1].Score)
	}
}

func TestReranker_ModelFailureKeepsOriginalOrder(t *testing.T) {
	model := mocks.NewMockRerankModel()
	model.EncodeErr = errors.New("inference blew up")
	r := NewReranker(func() (driven.RerankModel, error) { return model, nil }, nil)
	defer r.Close()

	results := candidates("first snippet with enough text", "second snippet with enough text", "third snippet with enough text")
	reranked := r.Rerank(context.Background(), "query", results, 2, 0)

	if len(reranked) != 2 {
		t.Fatalf("got %d results, want 2 (truncated original)", len(reranked))
	}
	if reranked[0].Snippet != results[0].Snippet || reranked[1].Snippet != results[1].Snippet {
		t.Error("failure path reordered the original candidates")
	}
}

func TestReranker_LoaderFailureKeepsOriginalOrder(t *testing.T) {
	r := NewReranker(func() (driven.RerankModel, error) {
		return nil, errors.New("model file missing")
	}, nil)

	results := candidates("only snippet with enough text here")
	reranked := r.Rerank(context.Background(), "query", results, 10, 0)
	if len(reranked) != 1 {
		t.Fatalf("got %d results, want 1", len(reranked))
	}
}

func TestReranker_NilLoader(t *testing.T) {
	r := NewReranker(nil, nil)
	results := candidates("snippet that is long enough to keep")
	reranked := r.Rerank(context.Background(), "query", results, 10, 0)
	if len(reranked) != 1 {
		t.Fatalf("got %d results, want 1", len(reranked))
	}
}

func TestReranker_LoadsModelOnce(t *testing.T) {
	var loads int
	var mu sync.Mutex
	model := mocks.NewMockRerankModel()
	r := NewReranker(func() (driven.RerankModel, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return model, nil
	}, nil)
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results := candidates("some snippet text that is long enough")
			r.Rerank(context.Background(), "query", results, 10, 0)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if loads != 1 {
		t.Errorf("loader invoked %d times, want 1", loads)
	}
}

func TestReranker_MinSimilarityFilters(t *testing.T) {
	model := mocks.NewMockRerankModel()
	r := NewReranker(func() (driven.RerankModel, error) { return model, nil }, nil)
	defer r.Close()

	results := candidates(
		"alpha beta gamma delta epsilon zeta",
		"alpha beta gamma delta epsilon zeta",
	)
	// A threshold above 1 drops everything; cosine never exceeds 1.
	reranked := r.Rerank(context.Background(), "alpha beta gamma", results, 10, 1.1)
	if len(reranked) != 0 {
		t.Errorf("got %d results, want 0 with impossible threshold", len(reranked))
	}
}

func TestReranker_EmptyCandidates(t *testing.T) {
	r := NewReranker(func() (driven.RerankModel, error) {
		t.Fatal("loader must not run for empty input")
		return nil, nil
	}, nil)

	if got := r.Rerank(context.Background(), "query", nil, 10, 0); len(got) != 0 {
		t.Errorf("got %d results, want 0", len(got))
	}
}

func TestRepresentativeText(t *testing.T) {
	long := &domain.SearchResult{Snippet: "this snippet is comfortably longer than twenty characters", Title: "T", Filename: "f.pdf"}
	if got := representativeText(long); got != long.Snippet {
		t.Errorf("got %q, want snippet", got)
	}

	short := &domain.SearchResult{Snippet: "tiny", Title: "Q3 Report", Filename: "q3.pdf"}
	if got := representativeText(short); got != "Q3 Report q3.pdf" {
		t.Errorf("got %q, want title+filename", got)
	}

	bare := &domain.SearchResult{Filename: "q3.pdf"}
	if got := representativeText(bare); got != "q3.pdf" {
		t.Errorf("got %q, want filename", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if got := cosineSimilarity(a, a); got < 0.999 {
		t.Errorf("self similarity = %v, want ~1", got)
	}
	if got := cosineSimilarity(a, b); got != 0 {
		t.Errorf("orthogonal similarity = %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{0, 0, 0}); got != 0 {
		t.Errorf("zero norm = %v, want 0", got)
	}
}
