// Package trials implements the trial matching engine: structured
// eligibility evaluation of retrieved trials against a patient profile.
package trials

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/pkg/variantnorm"
)

// Criterion weights for the eligibility confidence denominator. Required
// criteria count double so a missed required criterion hurts more than a
// missed optional one.
const (
	weightRequired = 2.0
	weightOptional = 1.0
)

// Matcher evaluates trial eligibility. It is pure computation over the
// profile and the retrieved trial evidence; it performs no I/O.
type Matcher struct {
	cfg domain.TrialsConfig
	log *logrus.Logger
}

// NewMatcher creates a new trial matcher.
func NewMatcher(cfg domain.TrialsConfig, logger *logrus.Logger) *Matcher {
	return &Matcher{cfg: cfg, log: logger}
}

// Match evaluates every retrieved trial against the profile. Trials hit by
// a hard exclusion are removed from the matches and recorded separately;
// everything else is scored by eligibility confidence over its evaluable
// criteria and ordered deterministically.
func (m *Matcher) Match(profile *domain.PatientProfile, evidence []domain.EvidenceItem) *domain.MatchResult {
	result := &domain.MatchResult{}

	for _, item := range dedupeTrials(evidence) {
		trial := item.Trial
		match, exclusion := m.evaluate(profile, item, trial)
		if exclusion != nil {
			result.Excluded = append(result.Excluded, *exclusion)
			continue
		}
		result.Matches = append(result.Matches, *match)
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.EligibilityConfidence != b.EligibilityConfidence {
			return a.EligibilityConfidence > b.EligibilityConfidence
		}
		if pa, pb := domain.PhaseWeight(a.Phase), domain.PhaseWeight(b.Phase); pa != pb {
			return pa > pb
		}
		if sa, sb := domain.StatusWeight(a.Status), domain.StatusWeight(b.Status); sa != sb {
			return sa > sb
		}
		return a.NCTID < b.NCTID
	})
	sort.Slice(result.Excluded, func(i, j int) bool {
		return result.Excluded[i].NCTID < result.Excluded[j].NCTID
	})

	m.log.WithFields(logrus.Fields{
		"matches":  len(result.Matches),
		"excluded": len(result.Excluded),
	}).Info("Trial matching complete")
	return result
}

// evaluate scores one trial. A non-nil exclusion means a hard exclusion
// fired and the trial must not surface as a match.
func (m *Matcher) evaluate(profile *domain.PatientProfile, item domain.EvidenceItem, trial *domain.TrialDetail) (*domain.TrialMatch, *domain.TrialExclusion) {
	crit := trial.Criteria
	match := &domain.TrialMatch{
		NCTID:      trial.NCTID,
		Title:      trial.Title,
		Phase:      trial.Phase,
		Status:     trial.Status,
		Therapies:  trial.Therapies,
		Classes:    trial.Classes,
		EvidenceID: item.ID,
	}

	record := func(name string, satisfied, required bool, detail string) {
		match.Evaluated = append(match.Evaluated, domain.CriterionResult{
			Criterion: name,
			Satisfied: satisfied,
			Required:  required,
			Detail:    detail,
		})
	}

	// Cancer type is a hard gate: a trial for the wrong tumor type is not
	// a near-miss, it is ineligible.
	if len(crit.CancerTypes) > 0 {
		if !cancerTypeMatches(profile.CancerType, crit.CancerTypes) {
			return nil, &domain.TrialExclusion{
				NCTID:  trial.NCTID,
				Reason: fmt.Sprintf("cancer type %q not among trial tumor types", profile.CancerType),
			}
		}
		record("cancer_type", true, true, profile.CancerType)
	}

	// Prior therapy exclusions are hard: treatment history is part of the
	// profile and authoritative.
	for _, excluded := range crit.PriorTherapyExclusions {
		for _, prior := range profile.PriorTherapies {
			if therapyEqual(prior, excluded) {
				return nil, &domain.TrialExclusion{
					NCTID:  trial.NCTID,
					Reason: fmt.Sprintf("prior therapy %q is excluded", prior),
				}
			}
		}
	}
	if len(crit.PriorTherapyExclusions) > 0 {
		record("prior_therapy_exclusions", true, true, "no excluded prior therapy")
	}

	// Excluded biomarkers: present in the profile is a hard exclusion,
	// confirmed absent satisfies, unknown is unevaluable.
	for _, marker := range crit.ExcludedBiomarkers {
		state := biomarkerState(profile, marker)
		switch state {
		case biomarkerPresent:
			return nil, &domain.TrialExclusion{
				NCTID:  trial.NCTID,
				Reason: fmt.Sprintf("excluded biomarker %q present", marker),
			}
		case biomarkerAbsent:
			record("excluded_biomarker: "+marker, true, false, "confirmed absent")
		default:
			match.Unevaluable = append(match.Unevaluable, "excluded_biomarker: "+marker)
		}
	}

	// Required biomarkers reduce confidence when missed but do not hard
	// exclude: panels differ and boards review near-misses.
	for _, marker := range crit.RequiredBiomarkers {
		state := biomarkerState(profile, marker)
		switch state {
		case biomarkerPresent:
			record("required_biomarker: "+marker, true, true, "present")
		case biomarkerAbsent:
			record("required_biomarker: "+marker, false, true, "absent")
		default:
			match.Unevaluable = append(match.Unevaluable, "required_biomarker: "+marker)
		}
	}

	// Age bounds are evaluable only when the profile carries an age.
	if crit.MinAge > 0 || crit.MaxAge > 0 {
		if profile.Age == 0 {
			match.Unevaluable = append(match.Unevaluable, "age")
		} else {
			ok := (crit.MinAge == 0 || profile.Age >= crit.MinAge) &&
				(crit.MaxAge == 0 || profile.Age <= crit.MaxAge)
			record("age", ok, false, fmt.Sprintf("age %d, range %d-%d", profile.Age, crit.MinAge, crit.MaxAge))
		}
	}

	// Performance status ceiling.
	if crit.MaxECOG != nil {
		if profile.ECOGStatus == nil {
			match.Unevaluable = append(match.Unevaluable, "ecog_status")
		} else {
			ok := *profile.ECOGStatus <= *crit.MaxECOG
			record("ecog_status", ok, false, fmt.Sprintf("ECOG %d, ceiling %d", *profile.ECOGStatus, *crit.MaxECOG))
		}
	}

	// A trial carrying no evaluable criteria at all scores zero and is
	// flagged so the board knows eligibility was never assessed.
	if len(match.Evaluated) == 0 && len(match.Unevaluable) == 0 {
		match.Unevaluable = append(match.Unevaluable, "eligibility_criteria")
	}

	match.EligibilityConfidence = confidence(match.Evaluated)
	return match, nil
}

// confidence is the weighted fraction of evaluable criteria satisfied.
// Unevaluable criteria never enter the denominator; a trial with nothing
// evaluable scores zero.
func confidence(results []domain.CriterionResult) float64 {
	var total, satisfied float64
	for _, r := range results {
		w := weightOptional
		if r.Required {
			w = weightRequired
		}
		total += w
		if r.Satisfied {
			satisfied += w
		}
	}
	if total == 0 {
		return 0
	}
	return satisfied / total
}

// dedupeTrials keeps one evidence item per NCT id, preferring the higher
// retrieval score, then the lexically smaller evidence id.
func dedupeTrials(evidence []domain.EvidenceItem) []domain.EvidenceItem {
	byNCT := make(map[string]domain.EvidenceItem)
	for _, item := range evidence {
		if item.Collection != domain.CollectionTrials || item.Trial == nil {
			continue
		}
		key := item.Trial.NCTID
		existing, ok := byNCT[key]
		if !ok || item.Score > existing.Score || (item.Score == existing.Score && item.ID < existing.ID) {
			byNCT[key] = item
		}
	}

	ids := make([]string, 0, len(byNCT))
	for id := range byNCT {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.EvidenceItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, byNCT[id])
	}
	return out
}

type biomarkerPresence int

const (
	biomarkerUnknown biomarkerPresence = iota
	biomarkerPresent
	biomarkerAbsent
)

// biomarkerState resolves a criterion marker like "EGFR L858R" or
// "PD-L1 positive" against the profile. Gene-variant markers compare via
// normalized notation; a profiled gene without the named change counts as
// absent, an unprofiled gene as unknown.
func biomarkerState(profile *domain.PatientProfile, marker string) biomarkerPresence {
	fields := strings.Fields(strings.TrimSpace(marker))
	if len(fields) == 0 {
		return biomarkerUnknown
	}

	gene := variantnorm.NormalizeGene(fields[0])
	rest := strings.Join(fields[1:], " ")

	geneProfiled := false
	for _, v := range profile.Variants {
		if !variantnorm.SameGene(v.Gene, gene) {
			continue
		}
		geneProfiled = true
		if rest == "" || variantnorm.SameProteinChange(v.ProteinChange, rest) {
			return biomarkerPresent
		}
	}

	// Non-variant biomarkers match on name plus optional status.
	for _, b := range profile.Biomarkers {
		if !strings.EqualFold(strings.TrimSpace(b.Name), fields[0]) &&
			variantnorm.NormalizeGene(b.Name) != gene {
			continue
		}
		if rest == "" || strings.EqualFold(b.Status, rest) {
			return biomarkerPresent
		}
		return biomarkerAbsent
	}

	if geneProfiled {
		return biomarkerAbsent
	}
	return biomarkerUnknown
}

// cancerTypeMatches compares the profile cancer type against the trial's
// tumor types, tolerating common shorthand in either direction.
func cancerTypeMatches(profileCancer string, trialTypes []string) bool {
	p := canonicalCancer(profileCancer)
	for _, t := range trialTypes {
		c := canonicalCancer(t)
		if c == p || strings.Contains(p, c) || strings.Contains(c, p) {
			return true
		}
	}
	return false
}

var cancerShorthand = map[string]string{
	"nsclc": "non-small cell lung cancer",
	"sclc":  "small cell lung cancer",
	"crc":   "colorectal cancer",
	"tnbc":  "triple-negative breast cancer",
	"hcc":   "hepatocellular carcinoma",
	"pdac":  "pancreatic ductal adenocarcinoma",
	"gbm":   "glioblastoma",
	"aml":   "acute myeloid leukemia",
	"cml":   "chronic myeloid leukemia",
}

func canonicalCancer(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if full, ok := cancerShorthand[n]; ok {
		return full
	}
	return n
}

// therapyEqual compares therapy names case-insensitively after trimming.
func therapyEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
