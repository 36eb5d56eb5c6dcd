package domain

import (
	"math"
	"testing"
)

func TestCollectionValidity(t *testing.T) {
	tests := []struct {
		name       string
		collection Collection
		valid      bool
		readOnly   bool
	}{
		{"Literature", CollectionLiterature, true, false},
		{"Trials", CollectionTrials, true, false},
		{"Genomic evidence", CollectionGenomic, true, true},
		{"Unknown", Collection("onco_unknown"), false, false},
		{"Empty", Collection(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.collection.IsValid() != tt.valid {
				t.Errorf("IsValid() = %v, want %v", tt.collection.IsValid(), tt.valid)
			}
			if tt.collection.ReadOnly() != tt.readOnly {
				t.Errorf("ReadOnly() = %v, want %v", tt.collection.ReadOnly(), tt.readOnly)
			}
		})
	}
}

func TestAllCollectionsCoverEveryWeight(t *testing.T) {
	all := AllCollections()
	if len(all) != 11 {
		t.Fatalf("expected 11 collections, got %d", len(all))
	}

	weights := DefaultCollectionWeights()
	sum := 0.0
	for _, col := range all {
		w, ok := weights[col]
		if !ok {
			t.Errorf("collection %s has no default weight", col)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("default collection weights sum to %f, want 1.0", sum)
	}
}

func TestAllCollectionsOrderIsStable(t *testing.T) {
	first := AllCollections()
	second := AllCollections()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("collection order differs at index %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestEvidenceTierConcordance(t *testing.T) {
	tests := []struct {
		name string
		tier EvidenceTier
		want float64
	}{
		{"Guideline", TierGuideline, 1.0},
		{"Clinical", TierClinical, 0.75},
		{"Case series", TierCaseSeries, 0.5},
		{"Preclinical", TierPreclinical, 0.25},
		{"Out of range", EvidenceTier(7), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.ConcordanceScore(); got != tt.want {
				t.Errorf("ConcordanceScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvidenceTierConcordanceMonotonicity(t *testing.T) {
	prev := 2.0
	for tier := TierGuideline; tier <= TierPreclinical; tier++ {
		score := tier.ConcordanceScore()
		if score >= prev {
			t.Errorf("tier %d score %v not below stronger tier score %v", tier, score, prev)
		}
		prev = score
	}
}

func TestPhaseAndStatusWeights(t *testing.T) {
	if PhaseWeight("Phase 3") <= PhaseWeight("Phase 2") {
		t.Error("Phase 3 should outweigh Phase 2")
	}
	if PhaseWeight("Phase 2/3") <= PhaseWeight("Phase 2") {
		t.Error("Phase 2/3 should outweigh Phase 2")
	}
	if PhaseWeight("Phase 0") != 0 {
		t.Error("unknown phase should weigh zero")
	}
	if StatusWeight("Recruiting") <= StatusWeight("Not yet recruiting") {
		t.Error("Recruiting should outweigh Not yet recruiting")
	}
	if StatusWeight("Completed") != 0 {
		t.Error("non-enrolling status should weigh zero")
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		from AnalysisState
		to   AnalysisState
		ok   bool
	}{
		{"Created to expanding", StateCreated, StateExpanding, true},
		{"Created skips to retrieving", StateCreated, StateRetrieving, false},
		{"Expanding to retrieving", StateExpanding, StateRetrieving, true},
		{"Retrieving to ranking", StateRetrieving, StateRanking, true},
		{"Retrieving to matching", StateRetrieving, StateMatching, true},
		{"Ranking to matching", StateRanking, StateMatching, true},
		{"Matching to ranking", StateMatching, StateRanking, true},
		{"Ranking to assembled", StateRanking, StateAssembled, true},
		{"Matching to assembled", StateMatching, StateAssembled, true},
		{"Any to failed", StateRetrieving, StateFailed, true},
		{"Assembled is terminal", StateAssembled, StateFailed, false},
		{"Failed is terminal", StateFailed, StateCreated, false},
		{"No backwards to created", StateExpanding, StateCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []AnalysisState{StateCreated, StateExpanding, StateRetrieving, StateRanking, StateMatching} {
		if s.Terminal() {
			t.Errorf("state %s should not be terminal", s)
		}
	}
	for _, s := range []AnalysisState{StateAssembled, StateFailed} {
		if !s.Terminal() {
			t.Errorf("state %s should be terminal", s)
		}
	}
}
