package trials

import (
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
)

func testMatcher() *Matcher {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMatcher(domain.TrialsConfig{EligibilityThreshold: 0.5}, logger)
}

func nsclcProfile() *domain.PatientProfile {
	ecog := 1
	return &domain.PatientProfile{
		CancerType: "non-small cell lung cancer",
		Variants: []domain.Variant{
			{Gene: "EGFR", ProteinChange: "L858R"},
		},
		PriorTherapies: []string{"erlotinib"},
		Age:            62,
		ECOGStatus:     &ecog,
	}
}

func trialItem(id, nct string, score float64, criteria domain.EligibilityCriteria) domain.EvidenceItem {
	return domain.EvidenceItem{
		ID:         id,
		Collection: domain.CollectionTrials,
		Score:      score,
		Trial: &domain.TrialDetail{
			NCTID:    nct,
			Phase:    "Phase 2",
			Status:   "Recruiting",
			Criteria: criteria,
		},
	}
}

func TestMatchCancerTypeHardGate(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		excluded bool
	}{
		{"Exact tumor type", []string{"non-small cell lung cancer"}, false},
		{"Shorthand in trial", []string{"NSCLC"}, false},
		{"Broader phrasing", []string{"lung cancer"}, false},
		{"Wrong tumor type", []string{"colorectal cancer"}, true},
		{"No restriction", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := trialItem("t1", "NCT00000001", 0.5, domain.EligibilityCriteria{CancerTypes: tt.types})
			result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{item})
			if tt.excluded {
				if len(result.Excluded) != 1 || len(result.Matches) != 0 {
					t.Errorf("matches %d, excluded %d; want hard exclusion", len(result.Matches), len(result.Excluded))
				}
			} else {
				if len(result.Matches) != 1 {
					t.Errorf("matches %d, excluded %+v; want match", len(result.Matches), result.Excluded)
				}
			}
		})
	}
}

func TestMatchPriorTherapyExclusion(t *testing.T) {
	item := trialItem("t1", "NCT00000002", 0.5, domain.EligibilityCriteria{
		PriorTherapyExclusions: []string{"Erlotinib"},
	})
	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{item})
	if len(result.Excluded) != 1 {
		t.Fatalf("excluded = %d, want 1", len(result.Excluded))
	}
	if result.Excluded[0].NCTID != "NCT00000002" {
		t.Errorf("excluded NCT = %s", result.Excluded[0].NCTID)
	}
}

func TestMatchTrialWithoutCriteriaIsFlaggedUnevaluable(t *testing.T) {
	item := trialItem("t1", "NCT00000009", 0.5, domain.EligibilityCriteria{})
	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{item})

	if len(result.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(result.Matches))
	}
	match := result.Matches[0]
	if match.EligibilityConfidence != 0 {
		t.Errorf("confidence = %v, want 0 with nothing evaluable", match.EligibilityConfidence)
	}
	if len(match.Unevaluable) == 0 {
		t.Error("trial with no evaluable criteria must be flagged unevaluable")
	}
}

func TestMatchExcludedBiomarkerStates(t *testing.T) {
	tests := []struct {
		name        string
		marker      string
		excluded    bool
		unevaluable bool
	}{
		{"Present hard excludes", "EGFR L858R", true, false},
		{"Profiled gene other change counts absent", "EGFR T790M", false, false},
		{"Unprofiled gene is unevaluable", "KRAS G12C", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := trialItem("t1", "NCT00000003", 0.5, domain.EligibilityCriteria{
				ExcludedBiomarkers: []string{tt.marker},
			})
			result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{item})
			if tt.excluded {
				if len(result.Excluded) != 1 {
					t.Fatalf("want hard exclusion, got %+v", result)
				}
				return
			}
			if len(result.Matches) != 1 {
				t.Fatalf("want match, got %+v", result)
			}
			hasUnevaluable := len(result.Matches[0].Unevaluable) > 0
			if hasUnevaluable != tt.unevaluable {
				t.Errorf("unevaluable = %v, want %v", result.Matches[0].Unevaluable, tt.unevaluable)
			}
		})
	}
}

func TestMatchRequiredBiomarkerMissReducesConfidenceOnly(t *testing.T) {
	item := trialItem("t1", "NCT00000004", 0.5, domain.EligibilityCriteria{
		CancerTypes:        []string{"NSCLC"},
		RequiredBiomarkers: []string{"EGFR T790M"},
	})
	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{item})
	if len(result.Matches) != 1 {
		t.Fatalf("missed required biomarker must not hard exclude: %+v", result.Excluded)
	}
	match := result.Matches[0]

	// cancer_type satisfied (weight 2) + required biomarker missed
	// (weight 2): confidence 0.5.
	if math.Abs(match.EligibilityConfidence-0.5) > 1e-9 {
		t.Errorf("confidence = %v, want 0.5", match.EligibilityConfidence)
	}
}

func TestMatchUnevaluableCriteriaStayOutOfDenominator(t *testing.T) {
	profile := nsclcProfile()
	profile.Age = 0
	profile.ECOGStatus = nil

	maxECOG := 2
	item := trialItem("t1", "NCT00000005", 0.5, domain.EligibilityCriteria{
		CancerTypes:        []string{"NSCLC"},
		RequiredBiomarkers: []string{"EGFR L858R"},
		MinAge:             18,
		MaxECOG:            &maxECOG,
	})
	result := testMatcher().Match(profile, []domain.EvidenceItem{item})
	if len(result.Matches) != 1 {
		t.Fatalf("unexpected exclusion: %+v", result.Excluded)
	}
	match := result.Matches[0]

	if len(match.Unevaluable) != 2 {
		t.Errorf("unevaluable = %v, want age and ecog_status", match.Unevaluable)
	}
	// Both evaluable criteria satisfied; the unevaluable ones must not
	// drag confidence below 1.0.
	if match.EligibilityConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", match.EligibilityConfidence)
	}
}

func TestMatchAgeAndECOGBounds(t *testing.T) {
	maxECOG := 1
	item := trialItem("t1", "NCT00000006", 0.5, domain.EligibilityCriteria{
		MinAge:  18,
		MaxAge:  60,
		MaxECOG: &maxECOG,
	})
	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{item})
	if len(result.Matches) != 1 {
		t.Fatal("age and ECOG misses are soft criteria")
	}
	match := result.Matches[0]

	var ageOK, ecogOK bool
	for _, r := range match.Evaluated {
		switch r.Criterion {
		case "age":
			ageOK = r.Satisfied
		case "ecog_status":
			ecogOK = r.Satisfied
		}
	}
	if ageOK {
		t.Error("age 62 must fail a 18-60 range")
	}
	if !ecogOK {
		t.Error("ECOG 1 must satisfy a ceiling of 1")
	}
}

func TestMatchOrdering(t *testing.T) {
	open := domain.EligibilityCriteria{CancerTypes: []string{"NSCLC"}}
	lowConf := domain.EligibilityCriteria{
		CancerTypes:        []string{"NSCLC"},
		RequiredBiomarkers: []string{"EGFR T790M"},
	}

	phase3 := trialItem("a", "NCT00000030", 0.5, open)
	phase3.Trial.Phase = "Phase 3"
	phase2 := trialItem("b", "NCT00000010", 0.5, open)
	phase2.Trial.Phase = "Phase 2"
	weaker := trialItem("c", "NCT00000001", 0.5, lowConf)
	weaker.Trial.Phase = "Phase 3"

	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{weaker, phase2, phase3})
	if len(result.Matches) != 3 {
		t.Fatalf("matches = %d", len(result.Matches))
	}

	got := []string{result.Matches[0].NCTID, result.Matches[1].NCTID, result.Matches[2].NCTID}
	want := []string{"NCT00000030", "NCT00000010", "NCT00000001"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestMatchDedupesByNCT(t *testing.T) {
	open := domain.EligibilityCriteria{}
	low := trialItem("ev-low", "NCT00000007", 0.2, open)
	high := trialItem("ev-high", "NCT00000007", 0.8, open)

	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{low, high})
	if len(result.Matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(result.Matches))
	}
	if result.Matches[0].EvidenceID != "ev-high" {
		t.Errorf("surviving evidence = %s, want the higher-scored item", result.Matches[0].EvidenceID)
	}
}

func TestMatchIgnoresNonTrialEvidence(t *testing.T) {
	result := testMatcher().Match(nsclcProfile(), []domain.EvidenceItem{
		{ID: "lit", Collection: domain.CollectionLiterature},
		{ID: "broken-trial", Collection: domain.CollectionTrials},
	})
	if len(result.Matches) != 0 || len(result.Excluded) != 0 {
		t.Errorf("non-trial evidence leaked into matching: %+v", result)
	}
}
