package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Variant is a somatic alteration in the patient's molecular profile,
// expressed as a gene symbol plus a protein-level change in short form
// (for example EGFR L858R).
type Variant struct {
	Gene          string  `json:"gene"`
	ProteinChange string  `json:"protein_change"`
	Consequence   string  `json:"consequence,omitempty"`
	AlleleFreq    float64 `json:"allele_freq,omitempty"`
}

// Label returns the conventional gene-plus-change notation.
func (v Variant) Label() string {
	if v.ProteinChange == "" {
		return v.Gene
	}
	return v.Gene + " " + v.ProteinChange
}

// Biomarker is a non-variant molecular observation such as PD-L1 expression,
// TMB, or MSI status.
type Biomarker struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Value  float64 `json:"value,omitempty"`
}

// PatientProfile is the structured input to a case analysis. It carries no
// direct identifiers; the engine operates on molecular and clinical
// attributes only.
type PatientProfile struct {
	CancerType     string      `json:"cancer_type"`
	Variants       []Variant   `json:"variants"`
	Biomarkers     []Biomarker `json:"biomarkers,omitempty"`
	PriorTherapies []string    `json:"prior_therapies,omitempty"`
	Age            int         `json:"age,omitempty"`
	ECOGStatus     *int        `json:"ecog_status,omitempty"`
	Stage          string      `json:"stage,omitempty"`
}

// Validate checks the profile for structural problems before any pipeline
// stage runs. A profile must name a cancer type and at least one variant or
// biomarker, otherwise there is nothing to retrieve against.
func (p *PatientProfile) Validate() error {
	if strings.TrimSpace(p.CancerType) == "" {
		return NewValidationError("cancer_type", "cancer type is required", p.CancerType)
	}
	if len(p.Variants) == 0 && len(p.Biomarkers) == 0 {
		return NewValidationError("variants", "at least one variant or biomarker is required", nil)
	}
	for i, v := range p.Variants {
		if strings.TrimSpace(v.Gene) == "" {
			return NewValidationError(fmt.Sprintf("variants[%d].gene", i), "gene symbol is required", v.Gene)
		}
	}
	for i, b := range p.Biomarkers {
		if strings.TrimSpace(b.Name) == "" {
			return NewValidationError(fmt.Sprintf("biomarkers[%d].name", i), "biomarker name is required", b.Name)
		}
	}
	if p.Age < 0 || p.Age > 130 {
		return NewValidationError("age", "age out of range", p.Age)
	}
	if p.ECOGStatus != nil && (*p.ECOGStatus < 0 || *p.ECOGStatus > 4) {
		return NewValidationError("ecog_status", "ECOG performance status must be 0-4", *p.ECOGStatus)
	}
	return nil
}

// Fingerprint returns a stable digest of the profile's analysis-relevant
// fields. Identical profiles produce identical fingerprints, which backs the
// completed-analysis cache.
func (p *PatientProfile) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(strings.TrimSpace(p.CancerType)))
	sb.WriteByte('|')
	sb.WriteString(p.Stage)
	sb.WriteByte('|')
	fmt.Fprintf(&sb, "%d", p.Age)
	if p.ECOGStatus != nil {
		fmt.Fprintf(&sb, "|ecog=%d", *p.ECOGStatus)
	}

	variants := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, strings.ToUpper(v.Gene)+":"+strings.ToUpper(v.ProteinChange))
	}
	sort.Strings(variants)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(variants, ","))

	markers := make([]string, 0, len(p.Biomarkers))
	for _, b := range p.Biomarkers {
		markers = append(markers, fmt.Sprintf("%s=%s:%g", strings.ToUpper(b.Name), b.Status, b.Value))
	}
	sort.Strings(markers)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(markers, ","))

	prior := make([]string, 0, len(p.PriorTherapies))
	for _, t := range p.PriorTherapies {
		prior = append(prior, strings.ToLower(strings.TrimSpace(t)))
	}
	sort.Strings(prior)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(prior, ","))

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Genes returns the distinct upper-cased gene symbols in the profile,
// sorted for deterministic downstream use.
func (p *PatientProfile) Genes() []string {
	seen := make(map[string]bool, len(p.Variants))
	genes := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		g := strings.ToUpper(strings.TrimSpace(v.Gene))
		if g != "" && !seen[g] {
			seen[g] = true
			genes = append(genes, g)
		}
	}
	sort.Strings(genes)
	return genes
}
