package expansion

import (
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
)

func testExpander() *Expander {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewExpander(logger)
}

func testProfile() *domain.PatientProfile {
	return &domain.PatientProfile{
		CancerType: "non-small cell lung cancer",
		Variants: []domain.Variant{
			{Gene: "EGFR", ProteinChange: "p.Leu858Arg"},
		},
		Biomarkers: []domain.Biomarker{
			{Name: "PD-L1", Status: "positive"},
		},
	}
}

func TestExpandProducesCollectionTargetedQueries(t *testing.T) {
	queries := testExpander().Expand(testProfile())
	if len(queries) == 0 {
		t.Fatal("no queries produced")
	}

	targeted := make(map[domain.Collection]bool)
	for _, q := range queries {
		if q.Text == "" {
			t.Error("query with empty text")
		}
		if len(q.Collections) == 0 {
			t.Errorf("query %q targets no collections", q.Text)
		}
		for _, col := range q.Collections {
			if !col.IsValid() {
				t.Errorf("query targets unknown collection %s", col)
			}
			targeted[col] = true
		}
	}

	// A variant-plus-biomarker profile reaches every collection.
	for _, col := range domain.AllCollections() {
		if !targeted[col] {
			t.Errorf("collection %s never targeted", col)
		}
	}
}

func TestExpandUsesNormalizedNotation(t *testing.T) {
	queries := testExpander().Expand(testProfile())
	found := false
	for _, q := range queries {
		if strings.Contains(q.Text, "L858R") {
			found = true
		}
		if strings.Contains(q.Text, "Leu858Arg") {
			t.Errorf("query carries unnormalized notation: %q", q.Text)
		}
	}
	if !found {
		t.Error("no query mentions the normalized variant")
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	e := testExpander()
	first := e.Expand(testProfile())
	second := e.Expand(testProfile())
	if !reflect.DeepEqual(first, second) {
		t.Error("expansion of the same profile must be identical")
	}
}

func TestExpandTextIsIdempotent(t *testing.T) {
	e := testExpander()
	tests := []string{
		"EGFR L858R in non-small cell lung cancer clinical significance",
		"targeted therapy for BRAF V600E melanoma guideline recommendation",
		"PD-L1 positive as predictive biomarker in NSCLC",
		"plain text with no vocabulary hits at all",
	}

	for _, text := range tests {
		t.Run(text[:20], func(t *testing.T) {
			once := e.ExpandText(text)
			twice := e.ExpandText(once)
			if once != twice {
				t.Errorf("expansion not idempotent:\n once: %q\ntwice: %q", once, twice)
			}
		})
	}
}

func TestExpandTextCapsTerms(t *testing.T) {
	e := testExpander()
	text := "EGFR KRAS BRAF ALK MET immunotherapy resistance pathway outcome toxicity trial"
	expanded := e.ExpandText(text)
	added := len(strings.Fields(expanded)) - len(strings.Fields(text))
	if added > MaxExpansionTerms*4 {
		t.Errorf("expansion added an implausible number of words: %d", added)
	}
	candidates := e.closure(text)
	if len(candidates) > MaxExpansionTerms {
		candidates = candidates[:MaxExpansionTerms]
	}
	if !sortedAsc(candidates) {
		t.Error("closure output must be sorted for stable capping")
	}
}

func TestExpandTextSkipsTermsAlreadyPresent(t *testing.T) {
	e := testExpander()
	expanded := e.ExpandText("EGFR epidermal growth factor receptor")
	if strings.Count(strings.ToLower(expanded), "epidermal growth factor receptor") > 1 {
		t.Errorf("term duplicated: %q", expanded)
	}
}

func sortedAsc(terms []string) bool {
	for i := 1; i < len(terms); i++ {
		if terms[i] < terms[i-1] {
			return false
		}
	}
	return true
}
