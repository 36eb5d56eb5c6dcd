// Package domain contains the core entities of the molecular tumor board
// evidence engine: patient profiles, evidence items, therapy rankings, trial
// matches, and the analysis lifecycle.
package domain

import "time"

// Collection identifies one of the evidence collections in the vector store.
type Collection string

const (
	CollectionLiterature Collection = "onco_literature"
	CollectionTrials     Collection = "onco_trials"
	CollectionVariants   Collection = "onco_variants"
	CollectionBiomarkers Collection = "onco_biomarkers"
	CollectionTherapies  Collection = "onco_therapies"
	CollectionPathways   Collection = "onco_pathways"
	CollectionGuidelines Collection = "onco_guidelines"
	CollectionResistance Collection = "onco_resistance"
	CollectionOutcomes   Collection = "onco_outcomes"
	CollectionCases      Collection = "onco_cases"

	// CollectionGenomic is owned by the upstream variant interpretation
	// service. The engine reads it but never writes to it.
	CollectionGenomic Collection = "genomic_evidence"
)

// AllCollections returns every collection in retrieval scope, in a fixed
// order. Deterministic iteration order matters for reproducible analyses.
func AllCollections() []Collection {
	return []Collection{
		CollectionLiterature,
		CollectionTrials,
		CollectionVariants,
		CollectionBiomarkers,
		CollectionTherapies,
		CollectionPathways,
		CollectionGuidelines,
		CollectionResistance,
		CollectionOutcomes,
		CollectionCases,
		CollectionGenomic,
	}
}

// IsValid reports whether c names a known collection.
func (c Collection) IsValid() bool {
	switch c {
	case CollectionLiterature, CollectionTrials, CollectionVariants,
		CollectionBiomarkers, CollectionTherapies, CollectionPathways,
		CollectionGuidelines, CollectionResistance, CollectionOutcomes,
		CollectionCases, CollectionGenomic:
		return true
	default:
		return false
	}
}

// ReadOnly reports whether the engine is forbidden from writing to c.
func (c Collection) ReadOnly() bool {
	return c == CollectionGenomic
}

// String returns the collection name as stored in the vector backend.
func (c Collection) String() string {
	return string(c)
}

// DefaultCollectionWeights are the relative contributions of each collection
// to merged retrieval scores. They sum to 1.0.
func DefaultCollectionWeights() map[Collection]float64 {
	return map[Collection]float64{
		CollectionVariants:   0.18,
		CollectionLiterature: 0.16,
		CollectionTherapies:  0.14,
		CollectionGuidelines: 0.12,
		CollectionTrials:     0.10,
		CollectionBiomarkers: 0.08,
		CollectionResistance: 0.07,
		CollectionPathways:   0.06,
		CollectionOutcomes:   0.04,
		CollectionGenomic:    0.03,
		CollectionCases:      0.02,
	}
}

// EvidenceTier grades the strength of a piece of evidence. Tier 1 is the
// strongest (regulatory approval or practice guideline in the patient's
// tumor type), tier 4 the weakest (preclinical or case report).
type EvidenceTier int

const (
	TierGuideline   EvidenceTier = 1
	TierClinical    EvidenceTier = 2
	TierCaseSeries  EvidenceTier = 3
	TierPreclinical EvidenceTier = 4
)

// IsValid reports whether the tier is within the 1..4 grading scale.
func (t EvidenceTier) IsValid() bool {
	return t >= TierGuideline && t <= TierPreclinical
}

// ConcordanceScore maps a tier onto [0,1] for the guideline concordance
// component. Stronger tiers score higher.
func (t EvidenceTier) ConcordanceScore() float64 {
	switch t {
	case TierGuideline:
		return 1.0
	case TierClinical:
		return 0.75
	case TierCaseSeries:
		return 0.5
	case TierPreclinical:
		return 0.25
	default:
		return 0
	}
}

// Trial phase weights, used as a secondary ordering key for trial matches.
// Later-phase trials rank ahead of earlier ones at equal eligibility.
var phaseWeights = map[string]float64{
	"Phase 3":   1.0,
	"Phase 2/3": 0.9,
	"Phase 2":   0.8,
	"Phase 1/2": 0.7,
	"Phase 1":   0.6,
	"Phase 4":   0.5,
}

// PhaseWeight returns the ordering weight for a trial phase label.
// Unknown labels weigh zero.
func PhaseWeight(phase string) float64 {
	return phaseWeights[phase]
}

// Recruiting status weights, the tertiary ordering key for trial matches.
var statusWeights = map[string]float64{
	"Recruiting":              1.0,
	"Enrolling by invitation": 0.8,
	"Active, not recruiting":  0.6,
	"Not yet recruiting":      0.4,
}

// StatusWeight returns the ordering weight for a trial recruiting status.
func StatusWeight(status string) float64 {
	return statusWeights[status]
}

// AnalysisState is the lifecycle state of a case analysis.
type AnalysisState string

const (
	StateCreated    AnalysisState = "CREATED"
	StateExpanding  AnalysisState = "EXPANDING"
	StateRetrieving AnalysisState = "RETRIEVING"
	StateRanking    AnalysisState = "RANKING"
	StateMatching   AnalysisState = "MATCHING"
	StateAssembled  AnalysisState = "ASSEMBLED"
	StateFailed     AnalysisState = "FAILED"
)

// Terminal reports whether no further transitions are possible from s.
func (s AnalysisState) Terminal() bool {
	return s == StateAssembled || s == StateFailed
}

// CanTransitionTo reports whether the move from s to next is legal.
// FAILED is reachable from every non-terminal state; RANKING and MATCHING
// both follow RETRIEVING because the two stages run concurrently.
func (s AnalysisState) CanTransitionTo(next AnalysisState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	switch s {
	case StateCreated:
		return next == StateExpanding
	case StateExpanding:
		return next == StateRetrieving
	case StateRetrieving:
		return next == StateRanking || next == StateMatching
	case StateRanking:
		return next == StateMatching || next == StateAssembled
	case StateMatching:
		return next == StateRanking || next == StateAssembled
	default:
		return false
	}
}

// String returns the state name for logging and persistence.
func (s AnalysisState) String() string {
	return string(s)
}

// ProgressEvent is emitted on every state transition of an analysis.
type ProgressEvent struct {
	CaseID    string        `json:"case_id"`
	State     AnalysisState `json:"state"`
	Detail    string        `json:"detail,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
