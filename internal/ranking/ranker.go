// Package ranking implements the therapy ranking engine: evidence-weighted
// component scoring of every therapy the retrieved evidence supports.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/pkg/variantnorm"
)

// Ranker computes composite therapy scores. Construction fails on an
// invalid weight configuration so a misconfigured deployment never ranks.
type Ranker struct {
	weights   domain.RankingWeights
	threshold float64
	log       *logrus.Logger
}

// NewRanker creates a new therapy ranker.
func NewRanker(cfg domain.RankingConfig, trialsCfg domain.TrialsConfig, logger *logrus.Logger) (*Ranker, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{
		weights:   cfg.Weights,
		threshold: trialsCfg.EligibilityThreshold,
		log:       logger,
	}, nil
}

// candidate accumulates the evidence behind one therapy before scoring.
type candidate struct {
	name       string
	drugClass  string
	evidence   []domain.EvidenceItem
	guidelines []domain.EvidenceItem
	outcomes   []domain.OutcomeDetail
	resistance []resistanceHit
}

type resistanceHit struct {
	detail     domain.ResistanceDetail
	classLevel bool
}

// Rank scores every therapy candidate found in the evidence. The trial
// matching result is consumed read-only for the availability component.
// Candidates without supporting evidence do not appear at all.
func (r *Ranker) Rank(profile *domain.PatientProfile, evidence []domain.EvidenceItem, trials *domain.MatchResult) []domain.RankedTherapy {
	candidates := r.collectCandidates(profile, evidence)

	ranked := make([]domain.RankedTherapy, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.evidence) == 0 {
			continue
		}
		ranked = append(ranked, r.score(profile, cand, evidence, trials))
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		// A contraindicated therapy never outranks a clean one it ties with.
		if a.Contraindicated != b.Contraindicated {
			return !a.Contraindicated
		}
		if a.BestTier != b.BestTier {
			return a.BestTier < b.BestTier
		}
		return a.Therapy < b.Therapy
	})

	r.log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"ranked":     len(ranked),
	}).Info("Therapy ranking complete")
	return ranked
}

// collectCandidates walks the evidence once, grouping items by the therapy
// they concern. Map iteration never leaks into output order; candidates
// are returned sorted by name.
func (r *Ranker) collectCandidates(profile *domain.PatientProfile, evidence []domain.EvidenceItem) []*candidate {
	byName := make(map[string]*candidate)

	get := func(name, drugClass string) *candidate {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil
		}
		cand, ok := byName[key]
		if !ok {
			cand = &candidate{name: strings.TrimSpace(name)}
			byName[key] = cand
		}
		if cand.drugClass == "" && drugClass != "" {
			cand.drugClass = drugClass
		}
		return cand
	}

	for _, item := range evidence {
		if item.Therapy != nil {
			if cand := get(item.Therapy.Therapy, item.Therapy.DrugClass); cand != nil {
				cand.evidence = append(cand.evidence, item)
				if item.Collection == domain.CollectionGuidelines {
					cand.guidelines = append(cand.guidelines, item)
				}
			}
		}
		if item.Outcome != nil {
			if cand := get(item.Outcome.Therapy, ""); cand != nil {
				cand.evidence = append(cand.evidence, item)
				cand.outcomes = append(cand.outcomes, *item.Outcome)
			}
		}
	}

	// Resistance evidence attaches to candidates after they exist; it
	// penalizes therapies, it never nominates them.
	for _, item := range evidence {
		if item.Resistance == nil || !r.resistanceApplies(profile, *item.Resistance) {
			continue
		}
		det := *item.Resistance
		for _, cand := range byName {
			switch {
			case det.Therapy != "" && strings.EqualFold(det.Therapy, cand.name):
				cand.resistance = append(cand.resistance, resistanceHit{detail: det})
				cand.evidence = append(cand.evidence, item)
			case det.DrugClass != "" && cand.drugClass != "" && strings.EqualFold(det.DrugClass, cand.drugClass):
				cand.resistance = append(cand.resistance, resistanceHit{detail: det, classLevel: true})
				cand.evidence = append(cand.evidence, item)
			}
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*candidate, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

// resistanceApplies reports whether a resistance record concerns a variant
// the patient actually carries. Resistance documented for an absent
// variant must not penalize.
func (r *Ranker) resistanceApplies(profile *domain.PatientProfile, det domain.ResistanceDetail) bool {
	for _, v := range profile.Variants {
		if !variantnorm.SameGene(v.Gene, det.Gene) {
			continue
		}
		if det.Variant == "" || variantnorm.SameProteinChange(v.ProteinChange, det.Variant) {
			return true
		}
	}
	return false
}

// score computes the component breakdown and composite for one candidate.
func (r *Ranker) score(profile *domain.PatientProfile, cand *candidate, evidence []domain.EvidenceItem, trials *domain.MatchResult) domain.RankedTherapy {
	components := domain.ComponentScores{
		VariantMatch:         r.variantMatch(profile, cand, evidence),
		GuidelineConcordance: r.guidelineConcordance(cand),
		ResistancePenalty:    r.resistancePenalty(cand),
		OutcomeSupport:       r.outcomeSupport(cand),
		TrialAvailability:    r.trialAvailability(cand, trials),
	}

	w := r.weights
	composite := w.VariantMatch*components.VariantMatch +
		w.GuidelineConcordance*components.GuidelineConcordance -
		w.ResistancePenalty*components.ResistancePenalty +
		w.OutcomeSupport*components.OutcomeSupport +
		w.TrialAvailability*components.TrialAvailability

	therapy := domain.RankedTherapy{
		Therapy:    cand.name,
		DrugClass:  cand.drugClass,
		Composite:  composite,
		Components: components,
		BestTier:   bestTier(cand.evidence),
	}

	ids := make(map[string]bool, len(cand.evidence))
	for _, item := range cand.evidence {
		if !ids[item.ID] {
			ids[item.ID] = true
			therapy.SupportingEvidence = append(therapy.SupportingEvidence, item.ID)
		}
	}
	sort.Strings(therapy.SupportingEvidence)

	for _, hit := range cand.resistance {
		flag := fmt.Sprintf("%s %s: %s", hit.detail.Gene, hit.detail.Variant, hit.detail.Mechanism)
		therapy.ResistanceFlags = append(therapy.ResistanceFlags, strings.TrimSpace(flag))
		if hit.classLevel {
			therapy.Contraindicated = true
		}
	}
	sort.Strings(therapy.ResistanceFlags)

	return therapy
}

// variantMatch grades how directly the therapy targets the profile:
// exact variant 1.0, gene level 0.6, pathway level 0.3, otherwise 0.
func (r *Ranker) variantMatch(profile *domain.PatientProfile, cand *candidate, evidence []domain.EvidenceItem) float64 {
	best := 0.0
	for _, item := range cand.evidence {
		if item.Therapy == nil {
			continue
		}
		det := item.Therapy
		for _, v := range profile.Variants {
			if det.TargetGene != "" && variantnorm.SameGene(v.Gene, det.TargetGene) {
				if det.TargetVariant != "" && variantnorm.SameProteinChange(v.ProteinChange, det.TargetVariant) {
					return 1.0
				}
				if best < 0.6 {
					best = 0.6
				}
			}
		}
	}
	if best > 0 {
		return best
	}

	// Pathway-level: a retrieved pathway item links a profile gene to the
	// therapy's target gene.
	targets := make(map[string]bool)
	for _, item := range cand.evidence {
		if item.Therapy != nil && item.Therapy.TargetGene != "" {
			targets[variantnorm.NormalizeGene(item.Therapy.TargetGene)] = true
		}
	}
	if len(targets) == 0 {
		return 0
	}
	profileGenes := make(map[string]bool)
	for _, g := range profile.Genes() {
		profileGenes[g] = true
	}
	for _, item := range evidence {
		if item.Collection != domain.CollectionPathways {
			continue
		}
		linksProfile, linksTarget := false, false
		for _, g := range item.Genes {
			ng := variantnorm.NormalizeGene(g)
			if profileGenes[ng] {
				linksProfile = true
			}
			if targets[ng] {
				linksTarget = true
			}
		}
		if linksProfile && linksTarget {
			return 0.3
		}
	}
	return 0
}

// guidelineConcordance is the strongest supporting guideline tier on the
// concordance scale; no guideline evidence scores zero.
func (r *Ranker) guidelineConcordance(cand *candidate) float64 {
	best := 0.0
	for _, item := range cand.guidelines {
		if s := item.Tier.ConcordanceScore(); s > best {
			best = s
		}
	}
	return best
}

// resistancePenalty is 1.0 for a direct variant-drug resistance record,
// 0.6 for class-level resistance, 0 without applicable evidence.
func (r *Ranker) resistancePenalty(cand *candidate) float64 {
	penalty := 0.0
	for _, hit := range cand.resistance {
		p := 1.0
		if hit.classLevel {
			p = 0.6
		}
		if p > penalty {
			penalty = p
		}
	}
	return penalty
}

// outcomeSupport averages outcome effect directions. No outcome evidence
// is neutral support, not zero: absence of data must not bury a therapy.
func (r *Ranker) outcomeSupport(cand *candidate) float64 {
	if len(cand.outcomes) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, o := range cand.outcomes {
		switch strings.ToLower(o.EffectDirection) {
		case "positive":
			sum += 1.0
		case "neutral":
			sum += 0.5
		case "negative":
			// contributes zero
		default:
			sum += 0.5
		}
	}
	return sum / float64(len(cand.outcomes))
}

// trialAvailability reads the matching output: 1.0 when an eligible match
// names the therapy, 0.5 when one names its drug class.
func (r *Ranker) trialAvailability(cand *candidate, trials *domain.MatchResult) float64 {
	if trials == nil {
		return 0
	}
	best := 0.0
	for _, match := range trials.Matches {
		if match.EligibilityConfidence < r.threshold {
			continue
		}
		for _, therapy := range match.Therapies {
			if strings.EqualFold(therapy, cand.name) {
				return 1.0
			}
		}
		if cand.drugClass != "" {
			for _, class := range match.Classes {
				if strings.EqualFold(class, cand.drugClass) && best < 0.5 {
					best = 0.5
				}
			}
		}
	}
	return best
}

// bestTier is the strongest tier among supporting evidence.
func bestTier(items []domain.EvidenceItem) domain.EvidenceTier {
	best := domain.TierPreclinical
	for _, item := range items {
		if item.Tier.IsValid() && item.Tier < best {
			best = item.Tier
		}
	}
	return best
}
