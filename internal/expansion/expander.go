// Package expansion turns a patient profile into collection-targeted
// retrieval queries, enriched with domain vocabulary so that semantically
// related evidence surfaces even when terminology differs.
package expansion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/pkg/variantnorm"
)

// MaxExpansionTerms caps how many vocabulary terms a single query absorbs.
const MaxExpansionTerms = 10

// Expander produces expanded, collection-targeted queries from a profile.
type Expander struct {
	log *logrus.Logger
}

// NewExpander creates a new query expander.
func NewExpander(logger *logrus.Logger) *Expander {
	return &Expander{log: logger}
}

// Expand builds the full query set for a profile. The output order is
// deterministic: variant-centric queries in profile order, then biomarker
// queries, then the trial, outcome, and pathway queries.
func (e *Expander) Expand(profile *domain.PatientProfile) []domain.CollectionQuery {
	cancer := strings.TrimSpace(profile.CancerType)
	var queries []domain.CollectionQuery

	add := func(text string, collections ...domain.Collection) {
		queries = append(queries, domain.CollectionQuery{
			Text:        e.ExpandText(text),
			Collections: collections,
		})
	}

	for _, v := range profile.Variants {
		gene := variantnorm.NormalizeGene(v.Gene)
		change := variantnorm.NormalizeProteinChange(v.ProteinChange)
		label := strings.TrimSpace(gene + " " + change)

		add(fmt.Sprintf("%s in %s clinical significance and therapeutic implications", label, cancer),
			domain.CollectionVariants, domain.CollectionGenomic, domain.CollectionLiterature)
		add(fmt.Sprintf("targeted therapy for %s %s guideline recommendation", label, cancer),
			domain.CollectionTherapies, domain.CollectionGuidelines)
		add(fmt.Sprintf("resistance mechanisms to targeted therapy %s %s", label, cancer),
			domain.CollectionResistance)
	}

	for _, gene := range profile.Genes() {
		add(fmt.Sprintf("%s signaling pathway alterations in %s", variantnorm.NormalizeGene(gene), cancer),
			domain.CollectionPathways)
	}

	for _, b := range profile.Biomarkers {
		add(fmt.Sprintf("%s %s as predictive biomarker in %s", b.Name, b.Status, cancer),
			domain.CollectionBiomarkers, domain.CollectionLiterature)
	}

	variantLabels := make([]string, 0, len(profile.Variants))
	for _, v := range profile.Variants {
		variantLabels = append(variantLabels,
			variantnorm.NormalizeGene(v.Gene)+" "+variantnorm.NormalizeProteinChange(v.ProteinChange))
	}
	add(fmt.Sprintf("recruiting clinical trial %s %s eligibility", cancer, strings.Join(variantLabels, " ")),
		domain.CollectionTrials)
	add(fmt.Sprintf("treatment outcomes and survival %s %s", cancer, strings.Join(variantLabels, " ")),
		domain.CollectionOutcomes, domain.CollectionCases)

	e.log.WithFields(logrus.Fields{
		"queries":    len(queries),
		"variants":   len(profile.Variants),
		"biomarkers": len(profile.Biomarkers),
	}).Debug("Query expansion complete")

	return queries
}

// ExpandText appends matching vocabulary terms to a query. The operation
// is idempotent: terms are drawn from the closure of the original text, so
// expanding an already-expanded query changes nothing.
func (e *Expander) ExpandText(text string) string {
	candidates := e.closure(text)
	if len(candidates) > MaxExpansionTerms {
		candidates = candidates[:MaxExpansionTerms]
	}

	lower := strings.ToLower(text)
	expanded := text
	for _, term := range candidates {
		if strings.Contains(lower, strings.ToLower(term)) {
			continue
		}
		expanded += " " + term
		lower += " " + strings.ToLower(term)
	}
	return expanded
}

// closure computes the transitive set of vocabulary terms reachable from
// the text: terms whose keys match the text, plus terms whose keys match
// previously added terms, until stable. The result is sorted, which keeps
// the capped selection identical whether it is computed from the original
// or an already-expanded query.
func (e *Expander) closure(text string) []string {
	corpus := strings.ToLower(text)
	seen := make(map[string]string)

	for {
		grew := false
		for _, vocab := range vocabularies {
			for key, vocabTerms := range vocab {
				if !strings.Contains(corpus, key) {
					continue
				}
				for _, term := range vocabTerms {
					lt := strings.ToLower(term)
					if _, ok := seen[lt]; ok {
						continue
					}
					seen[lt] = term
					corpus += " " + lt
					grew = true
				}
			}
		}
		if !grew {
			break
		}
	}

	terms := make([]string, 0, len(seen))
	for _, term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
