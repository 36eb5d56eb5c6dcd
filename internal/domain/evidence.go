package domain

import (
	"strings"
	"time"
)

// Document is the unit stored in a collection: free text plus structured
// metadata and its 384-dim embedding.
type Document struct {
	ID          string         `json:"id"`
	Collection  Collection     `json:"collection"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Embedding   []float32      `json:"-"`
	Tier        EvidenceTier   `json:"tier"`
	SourceName  string         `json:"source_name"`
	PublishedAt time.Time      `json:"published_at,omitempty"`
}

// SearchHit is one result of a vector search: the document plus its raw
// cosine similarity against the query embedding.
type SearchHit struct {
	Document   Document
	Similarity float64
}

// Citation is the provenance record attached to every evidence item. The
// identifier doubles as the dedupe key across collections.
type Citation struct {
	Identifier      string    `json:"identifier"`
	SourceName      string    `json:"source_name"`
	PublicationDate time.Time `json:"publication_date,omitempty"`
	URL             string    `json:"url,omitempty"`
}

// TherapyDetail is the structured payload of onco_therapies and
// onco_guidelines documents.
type TherapyDetail struct {
	Therapy       string `json:"therapy"`
	DrugClass     string `json:"drug_class,omitempty"`
	TargetGene    string `json:"target_gene,omitempty"`
	TargetVariant string `json:"target_variant,omitempty"`
	Organization  string `json:"organization,omitempty"`
}

// ResistanceDetail is the structured payload of onco_resistance documents.
type ResistanceDetail struct {
	Therapy   string `json:"therapy,omitempty"`
	DrugClass string `json:"drug_class,omitempty"`
	Gene      string `json:"gene"`
	Variant   string `json:"variant,omitempty"`
	Mechanism string `json:"mechanism,omitempty"`
}

// OutcomeDetail is the structured payload of onco_outcomes documents.
type OutcomeDetail struct {
	Therapy         string  `json:"therapy"`
	EffectDirection string  `json:"effect_direction"` // "positive", "negative", "neutral"
	ResponseRate    float64 `json:"response_rate,omitempty"`
}

// EligibilityCriteria are the structured trial criteria evaluated against a
// profile. Zero values mean the criterion is absent, not unbounded.
type EligibilityCriteria struct {
	RequiredBiomarkers     []string `json:"required_biomarkers,omitempty"`
	ExcludedBiomarkers     []string `json:"excluded_biomarkers,omitempty"`
	CancerTypes            []string `json:"cancer_types,omitempty"`
	PriorTherapyExclusions []string `json:"prior_therapy_exclusions,omitempty"`
	MinAge                 int      `json:"min_age,omitempty"`
	MaxAge                 int      `json:"max_age,omitempty"`
	MaxECOG                *int     `json:"max_ecog,omitempty"`
}

// TrialDetail is the structured payload of onco_trials documents.
type TrialDetail struct {
	NCTID     string              `json:"nct_id"`
	Title     string              `json:"title,omitempty"`
	Phase     string              `json:"phase"`
	Status    string              `json:"status"`
	Therapies []string            `json:"therapies,omitempty"`
	Classes   []string            `json:"drug_classes,omitempty"`
	Criteria  EligibilityCriteria `json:"criteria"`
}

// EvidenceItem is a retrieved, scored, deduplicated piece of evidence. The
// typed detail pointers are populated according to the item's collection;
// all other fields are shared across collections.
type EvidenceItem struct {
	ID          string       `json:"id"`
	Collection  Collection   `json:"collection"`
	Snippet     string       `json:"snippet"`
	Score       float64      `json:"score"`
	RawScore    float64      `json:"raw_score"`
	Tier        EvidenceTier `json:"tier"`
	Citation    Citation     `json:"citation"`
	Genes       []string     `json:"genes,omitempty"`
	Variants    []string     `json:"variants,omitempty"`
	CancerTypes []string     `json:"cancer_types,omitempty"`

	Therapy    *TherapyDetail    `json:"therapy,omitempty"`
	Resistance *ResistanceDetail `json:"resistance,omitempty"`
	Outcome    *OutcomeDetail    `json:"outcome,omitempty"`
	Trial      *TrialDetail      `json:"trial,omitempty"`
}

// MentionsGene reports whether the item is tagged with the given gene.
func (e *EvidenceItem) MentionsGene(gene string) bool {
	gene = strings.ToUpper(gene)
	for _, g := range e.Genes {
		if strings.ToUpper(g) == gene {
			return true
		}
	}
	return false
}

// MentionsVariant reports whether the item is tagged with the given
// protein change, compared case-insensitively.
func (e *EvidenceItem) MentionsVariant(change string) bool {
	change = strings.ToUpper(change)
	for _, v := range e.Variants {
		if strings.ToUpper(v) == change {
			return true
		}
	}
	return false
}

// ResultSet is the merged output of a retrieval batch.
type ResultSet struct {
	Items              []EvidenceItem `json:"items"`
	UnavailableSources []Collection   `json:"unavailable_sources,omitempty"`
	QueryCount         int            `json:"query_count"`
	SearchCount        int            `json:"search_count"`
}

// ByCollection returns the subset of items from the given collection,
// preserving order.
func (rs *ResultSet) ByCollection(c Collection) []EvidenceItem {
	var out []EvidenceItem
	for _, item := range rs.Items {
		if item.Collection == c {
			out = append(out, item)
		}
	}
	return out
}
