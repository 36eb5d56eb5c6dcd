package domain

import "testing"

func TestDefaultRankingWeightsValidate(t *testing.T) {
	if err := DefaultRankingWeights().Validate(); err != nil {
		t.Fatalf("default weights must validate: %v", err)
	}
}

func TestRankingWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights RankingWeights
		wantErr bool
	}{
		{
			name:    "Shipped weights",
			weights: DefaultRankingWeights(),
			wantErr: false,
		},
		{
			name: "Negative penalty weight still sums by absolute value",
			weights: RankingWeights{
				VariantMatch:         0.30,
				GuidelineConcordance: 0.25,
				ResistancePenalty:    -0.20,
				OutcomeSupport:       0.15,
				TrialAvailability:    0.10,
			},
			wantErr: false,
		},
		{
			name: "Sum too low",
			weights: RankingWeights{
				VariantMatch:         0.30,
				GuidelineConcordance: 0.25,
				ResistancePenalty:    0.20,
				OutcomeSupport:       0.15,
			},
			wantErr: true,
		},
		{
			name: "Sum too high",
			weights: RankingWeights{
				VariantMatch:         0.40,
				GuidelineConcordance: 0.25,
				ResistancePenalty:    0.20,
				OutcomeSupport:       0.15,
				TrialAvailability:    0.10,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsKind(err, ErrRankingInconsistent) {
				t.Errorf("weight validation must fail as RANKING_INCONSISTENT, got %v", err)
			}
		})
	}
}

func TestRetrievalConfigWeights(t *testing.T) {
	cfg := RetrievalConfig{
		CollectionWeights: map[string]float64{
			"onco_variants": 0.5,
			"not_a_thing":   0.9,
		},
	}
	weights := cfg.Weights()

	if weights[CollectionVariants] != 0.5 {
		t.Errorf("override for onco_variants not applied: %v", weights[CollectionVariants])
	}
	if weights[CollectionLiterature] != DefaultCollectionWeights()[CollectionLiterature] {
		t.Error("unset collections must keep the default weight")
	}
	if _, ok := weights[Collection("not_a_thing")]; ok {
		t.Error("unknown collection names must be ignored")
	}
}
