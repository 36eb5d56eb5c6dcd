// Package variantnorm normalizes protein-level variant notation and gene
// symbols to the short forms used throughout the evidence collections.
// Input arrives in mixed conventions (p.Leu858Arg, L858R, EGFR exon 19
// deletion); retrieval and matching compare the normalized short form.
package variantnorm

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Short-form protein substitution: L858R, T790M, V600E
	shortSubstitutionPattern = regexp.MustCompile(`^([A-Z])(\d+)([A-Z\*])$`)

	// Three-letter HGVS protein substitution: p.Leu858Arg, optionally
	// with parentheses or a p. prefix
	hgvsSubstitutionPattern = regexp.MustCompile(`^\(?p\.\(?([A-Z][a-z]{2})(\d+)([A-Z][a-z]{2}|Ter|\*)\)?$`)

	// Frameshift and truncation: p.Thr790fs, T790fs, W24*
	frameshiftPattern = regexp.MustCompile(`^\(?p\.\(?([A-Z][a-z]{2}|[A-Z])(\d+)(fs\*?\d*|fs)\)?$|^([A-Z])(\d+)fs$`)

	// Exon-level events: exon 19 deletion, exon 20 insertion
	exonEventPattern = regexp.MustCompile(`(?i)^exon\s*(\d+)\s*(deletion|insertion|skipping|del|ins)$`)

	// Three-letter to one-letter amino acid codes
	aminoAcidCodes = map[string]string{
		"Ala": "A", "Arg": "R", "Asn": "N", "Asp": "D", "Cys": "C",
		"Gln": "Q", "Glu": "E", "Gly": "G", "His": "H", "Ile": "I",
		"Leu": "L", "Lys": "K", "Met": "M", "Phe": "F", "Pro": "P",
		"Ser": "S", "Thr": "T", "Trp": "W", "Tyr": "Y", "Val": "V",
		"Ter": "*",
	}
)

// NormalizeProteinChange reduces a protein-level change to its canonical
// short form (one-letter codes, no p. prefix). Exon-level events normalize
// to a lower-cased "exon N deletion" style label. Unrecognized notation is
// returned trimmed and upper-cased so lookups stay deterministic.
func NormalizeProteinChange(input string) string {
	change := strings.TrimSpace(input)
	if change == "" {
		return ""
	}

	if m := shortSubstitutionPattern.FindStringSubmatch(change); m != nil {
		return m[1] + m[2] + m[3]
	}

	if m := hgvsSubstitutionPattern.FindStringSubmatch(change); m != nil {
		ref, ok := aminoAcidCodes[m[1]]
		if !ok {
			return strings.ToUpper(change)
		}
		alt := m[3]
		if alt != "*" {
			mapped, ok := aminoAcidCodes[alt]
			if !ok {
				return strings.ToUpper(change)
			}
			alt = mapped
		}
		return ref + m[2] + alt
	}

	if m := frameshiftPattern.FindStringSubmatch(change); m != nil {
		if m[4] != "" {
			return m[4] + m[5] + "fs"
		}
		ref := m[1]
		if len(ref) == 3 {
			mapped, ok := aminoAcidCodes[ref]
			if !ok {
				return strings.ToUpper(change)
			}
			ref = mapped
		}
		return ref + m[2] + "fs"
	}

	if m := exonEventPattern.FindStringSubmatch(change); m != nil {
		event := strings.ToLower(m[2])
		switch event {
		case "del":
			event = "deletion"
		case "ins":
			event = "insertion"
		}
		return fmt.Sprintf("exon %s %s", m[1], event)
	}

	return strings.ToUpper(change)
}

// SameProteinChange reports whether two notations denote the same change
// after normalization.
func SameProteinChange(a, b string) bool {
	na := NormalizeProteinChange(a)
	nb := NormalizeProteinChange(b)
	return na != "" && na == nb
}
