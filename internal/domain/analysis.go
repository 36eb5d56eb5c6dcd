package domain

import "time"

// ComponentScores is the per-component breakdown behind a therapy's
// composite score. Every component lies in [0,1]; the resistance penalty
// enters the composite negatively.
type ComponentScores struct {
	VariantMatch         float64 `json:"variant_match"`
	GuidelineConcordance float64 `json:"guideline_concordance"`
	ResistancePenalty    float64 `json:"resistance_penalty"`
	OutcomeSupport       float64 `json:"outcome_support"`
	TrialAvailability    float64 `json:"trial_availability"`
}

// RankedTherapy is one entry of the therapy ranking, with full provenance.
type RankedTherapy struct {
	Therapy            string          `json:"therapy"`
	DrugClass          string          `json:"drug_class,omitempty"`
	Composite          float64         `json:"composite"`
	Components         ComponentScores `json:"components"`
	BestTier           EvidenceTier    `json:"best_tier"`
	SupportingEvidence []string        `json:"supporting_evidence"`
	ResistanceFlags    []string        `json:"resistance_flags,omitempty"`
	Contraindicated    bool            `json:"contraindicated,omitempty"`
}

// CriterionResult records the evaluation of a single eligibility criterion.
type CriterionResult struct {
	Criterion string `json:"criterion"`
	Satisfied bool   `json:"satisfied"`
	Required  bool   `json:"required"`
	Detail    string `json:"detail,omitempty"`
}

// TrialMatch is a candidate trial that survived hard exclusions, scored by
// eligibility confidence over its evaluable criteria.
type TrialMatch struct {
	NCTID                 string            `json:"nct_id"`
	Title                 string            `json:"title,omitempty"`
	Phase                 string            `json:"phase"`
	Status                string            `json:"status"`
	Therapies             []string          `json:"therapies,omitempty"`
	Classes               []string          `json:"drug_classes,omitempty"`
	EligibilityConfidence float64           `json:"eligibility_confidence"`
	Evaluated             []CriterionResult `json:"evaluated"`
	Unevaluable           []string          `json:"unevaluable,omitempty"`
	EvidenceID            string            `json:"evidence_id"`
}

// TrialExclusion records a trial removed by a hard exclusion, kept for the
// audit trail rather than the recommendation surface.
type TrialExclusion struct {
	NCTID  string `json:"nct_id"`
	Reason string `json:"reason"`
}

// MatchResult is the full output of the trial matching stage.
type MatchResult struct {
	Matches  []TrialMatch     `json:"matches"`
	Excluded []TrialExclusion `json:"excluded,omitempty"`
}

// CaseAnalysis is the assembled output of the pipeline for one profile.
type CaseAnalysis struct {
	ID                 string          `json:"id"`
	Fingerprint        string          `json:"fingerprint"`
	Profile            PatientProfile  `json:"profile"`
	State              AnalysisState   `json:"state"`
	Evidence           []EvidenceItem  `json:"evidence"`
	UnavailableSources []Collection    `json:"unavailable_sources,omitempty"`
	Therapies          []RankedTherapy `json:"therapies"`
	Trials             []TrialMatch    `json:"trials"`
	ExcludedTrials     []TrialExclusion `json:"excluded_trials,omitempty"`
	Narrative          string          `json:"narrative,omitempty"`
	Error              *AnalysisError  `json:"error,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	CompletedAt        time.Time       `json:"completed_at,omitempty"`
}

// CitationRef is a numbered entry of the packet's citation list.
type CitationRef struct {
	Index    int      `json:"index"`
	Citation Citation `json:"citation"`
}

// MTBPacket is the board-ready summary assembled from a completed analysis.
type MTBPacket struct {
	CaseID             string          `json:"case_id"`
	CancerType         string          `json:"cancer_type"`
	VariantTable       []Variant       `json:"variant_table"`
	EvidenceTable      []EvidenceItem  `json:"evidence_table"`
	TherapyRanking     []RankedTherapy `json:"therapy_ranking"`
	TrialMatches       []TrialMatch    `json:"trial_matches"`
	OpenQuestions      []string        `json:"open_questions,omitempty"`
	Citations          []CitationRef   `json:"citations"`
	UnavailableSources []Collection    `json:"unavailable_sources,omitempty"`
	Narrative          string          `json:"narrative,omitempty"`
	GeneratedAt        time.Time       `json:"generated_at"`
}
