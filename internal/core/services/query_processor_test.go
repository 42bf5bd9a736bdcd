package services

import (
	"reflect"
	"strings"
	"testing"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

func TestProcessQuery(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantNormalized string
		wantPhrases    []string
		wantTerms      []string
	}{
		{
			name:           "lowercase and collapse whitespace",
			raw:            "  Quarterly   REPORT \t 2024 ",
			wantNormalized: "quarterly report 2024",
			wantTerms:      []string{"quarterly", "report", "2024"},
		},
		{
			name:           "exact phrase extraction",
			raw:            `find "machine learning" basics`,
			wantNormalized: `find "machine learning" basics`,
			wantPhrases:    []string{"machine learning"},
			wantTerms:      []string{"find", "basics"},
		},
		{
			name:           "multiple phrases",
			raw:            `"annual report" compare "board minutes"`,
			wantNormalized: `"annual report" compare "board minutes"`,
			wantPhrases:    []string{"annual report", "board minutes"},
			wantTerms:      []string{"compare"},
		},
		{
			name:           "unterminated quote is literal",
			raw:            `invoice "march`,
			wantNormalized: `invoice "march`,
			wantTerms:      []string{"invoice", `"march`},
		},
		{
			name:           "empty quoted phrase ignored",
			raw:            `notes "" budget`,
			wantNormalized: `notes "" budget`,
			wantTerms:      []string{"notes", "budget"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := ProcessQuery(tt.raw)
			if intent.Original != tt.raw {
				t.Errorf("Original = %q, want %q", intent.Original, tt.raw)
			}
			if intent.Normalized != tt.wantNormalized {
				t.Errorf("Normalized = %q, want %q", intent.Normalized, tt.wantNormalized)
			}
			if !reflect.DeepEqual(intent.ExactPhrases, tt.wantPhrases) {
				t.Errorf("ExactPhrases = %v, want %v", intent.ExactPhrases, tt.wantPhrases)
			}
			if !reflect.DeepEqual(intent.KeyTerms, tt.wantTerms) {
				t.Errorf("KeyTerms = %v, want %v", intent.KeyTerms, tt.wantTerms)
			}
		})
	}
}

func TestProcessQuery_TermCap(t *testing.T) {
	raw := strings.Repeat("word ", domain.MaxKeyTerms+5)
	intent := ProcessQuery(raw)
	if len(intent.KeyTerms) != domain.MaxKeyTerms {
		t.Errorf("KeyTerms length = %d, want %d", len(intent.KeyTerms), domain.MaxKeyTerms)
	}
}

func TestProcessQuery_Confidence(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"report", 0.5},
		{"quarterly report", 0.6},
		{"q3 quarterly revenue report", 0.7},
		{`"machine learning"`, 0.8},
		{`"machine learning" deep neural networks`, 1.0},
	}

	for _, tt := range tests {
		intent := ProcessQuery(tt.raw)
		if intent.Confidence != tt.want {
			t.Errorf("ProcessQuery(%q).Confidence = %v, want %v", tt.raw, intent.Confidence, tt.want)
		}
	}
}

func TestFuzzyWords(t *testing.T) {
	got := FuzzyWords(`an "q3 report" of ai budget`)
	want := []string{"report", "budget"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FuzzyWords = %v, want %v", got, want)
	}

	if got := FuzzyWords(""); got != nil {
		t.Errorf("FuzzyWords(empty) = %v, want nil", got)
	}
}
