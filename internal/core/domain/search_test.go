package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestSearchQuery_Validate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name    string
		query   SearchQuery
		wantErr bool
	}{
		{
			name:  "valid query",
			query: SearchQuery{Query: "quarterly report", UserID: userID, Limit: 20},
		},
		{
			name:    "empty query text",
			query:   SearchQuery{Query: "", UserID: userID, Limit: 20},
			wantErr: true,
		},
		{
			name:    "missing user",
			query:   SearchQuery{Query: "report", Limit: 20},
			wantErr: true,
		},
		{
			name:    "negative offset",
			query:   SearchQuery{Query: "report", UserID: userID, Limit: 20, Offset: -1},
			wantErr: true,
		},
		{
			name:    "zero limit",
			query:   SearchQuery{Query: "report", UserID: userID, Limit: 0},
			wantErr: true,
		},
		{
			name:    "limit over maximum",
			query:   SearchQuery{Query: "report", UserID: userID, Limit: MaxSearchLimit + 1},
			wantErr: true,
		},
		{
			name:    "negative min score",
			query:   SearchQuery{Query: "report", UserID: userID, Limit: 20, MinScore: -0.1},
			wantErr: true,
		},
		{
			name:  "limit at bounds",
			query: SearchQuery{Query: "report", UserID: userID, Limit: MaxSearchLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("Validate() = %v, want ErrInvalidQuery", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSearchQuery_WithDefaults(t *testing.T) {
	q := SearchQuery{Query: "x", UserID: uuid.New()}

	got := q.WithDefaults()
	if got.Limit != 20 {
		t.Errorf("default limit = %d, want 20", got.Limit)
	}

	q.Limit = 500
	got = q.WithDefaults()
	if got.Limit != MaxSearchLimit {
		t.Errorf("clamped limit = %d, want %d", got.Limit, MaxSearchLimit)
	}

	q.Offset = -5
	got = q.WithDefaults()
	if got.Offset != 0 {
		t.Errorf("clamped offset = %d, want 0", got.Offset)
	}

	// WithDefaults returns a copy; the original is untouched
	if q.Offset != -5 {
		t.Errorf("original offset mutated to %d", q.Offset)
	}
}

func TestSearchMetrics_Finalize(t *testing.T) {
	m := NewSearchMetrics()
	if m.QueryID == "" {
		t.Fatal("expected a generated query id")
	}

	m.Finalize(nil)
	if m.ResultCount != 0 || m.AvgScore != 0 || m.MaxScore != 0 {
		t.Errorf("empty finalize changed aggregates: %+v", m)
	}

	results := []*SearchResult{
		{Score: 0.8},
		{Score: 0.4},
		{Score: 0.6},
	}
	m.Finalize(results)
	if m.ResultCount != 3 {
		t.Errorf("ResultCount = %d, want 3", m.ResultCount)
	}
	if m.MaxScore != 0.8 {
		t.Errorf("MaxScore = %v, want 0.8", m.MaxScore)
	}
	if m.AvgScore < 0.599 || m.AvgScore > 0.601 {
		t.Errorf("AvgScore = %v, want ~0.6", m.AvgScore)
	}
}

func TestDefaultSearchWeights(t *testing.T) {
	w := DefaultSearchWeights()
	if w.Vector != 0.5 || w.FullText != 0.3 || w.Fuzzy != 0.2 {
		t.Errorf("unexpected default weights: %+v", w)
	}
}
