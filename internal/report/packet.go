// Package report assembles the board-ready MTB packet from a completed
// case analysis: tables, numbered citations, and open questions.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
)

// Builder assembles MTB packets. Assembly is pure and deterministic; the
// optional narrative is attached by the orchestrator afterwards.
type Builder struct {
	log *logrus.Logger
}

// NewBuilder creates a new packet builder.
func NewBuilder(logger *logrus.Logger) *Builder {
	return &Builder{log: logger}
}

// Build assembles the packet for a completed analysis.
func (b *Builder) Build(analysis *domain.CaseAnalysis) *domain.MTBPacket {
	packet := &domain.MTBPacket{
		CaseID:             analysis.ID,
		CancerType:         analysis.Profile.CancerType,
		VariantTable:       analysis.Profile.Variants,
		EvidenceTable:      analysis.Evidence,
		TherapyRanking:     analysis.Therapies,
		TrialMatches:       analysis.Trials,
		UnavailableSources: analysis.UnavailableSources,
		Citations:          buildCitations(analysis.Evidence),
		OpenQuestions:      openQuestions(analysis),
		GeneratedAt:        time.Now().UTC(),
	}

	b.log.WithFields(logrus.Fields{
		"case_id":        analysis.ID,
		"citations":      len(packet.Citations),
		"open_questions": len(packet.OpenQuestions),
	}).Info("MTB packet assembled")
	return packet
}

// buildCitations numbers the distinct citations in evidence order, so the
// strongest evidence takes the lowest indexes.
func buildCitations(evidence []domain.EvidenceItem) []domain.CitationRef {
	seen := make(map[string]bool)
	var refs []domain.CitationRef
	for _, item := range evidence {
		id := item.Citation.Identifier
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, domain.CitationRef{
			Index:    len(refs) + 1,
			Citation: item.Citation,
		})
	}
	return refs
}

// openQuestions derives the board's open questions from gaps in the
// assembled analysis. Every question names its gap; none are generated
// when the evidence is complete.
func openQuestions(analysis *domain.CaseAnalysis) []string {
	var questions []string

	if len(analysis.UnavailableSources) > 0 {
		names := make([]string, 0, len(analysis.UnavailableSources))
		for _, c := range analysis.UnavailableSources {
			names = append(names, c.String())
		}
		sort.Strings(names)
		questions = append(questions, fmt.Sprintf(
			"Evidence from %s was unavailable during analysis; re-run before finalizing.",
			strings.Join(names, ", ")))
	}

	// Variants no retrieved evidence mentions are effectively unexplained.
	for _, v := range analysis.Profile.Variants {
		mentioned := false
		for _, item := range analysis.Evidence {
			if item.MentionsGene(v.Gene) {
				mentioned = true
				break
			}
		}
		if !mentioned {
			questions = append(questions, fmt.Sprintf(
				"No retrieved evidence addresses %s; clinical significance unresolved.", v.Label()))
		}
	}

	hasGuideline := false
	for _, item := range analysis.Evidence {
		if item.Collection == domain.CollectionGuidelines {
			hasGuideline = true
			break
		}
	}
	if !hasGuideline && len(analysis.Therapies) > 0 {
		questions = append(questions,
			"No guideline evidence was retrieved; therapy ranking rests on trial and literature data.")
	}

	for _, match := range analysis.Trials {
		if len(match.Unevaluable) > 0 {
			questions = append(questions, fmt.Sprintf(
				"Trial %s has unevaluable criteria (%s); confirm before referral.",
				match.NCTID, strings.Join(match.Unevaluable, "; ")))
		}
	}

	return questions
}
