package variantnorm

import "testing"

func TestNormalizeProteinChange(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Short form passes through", "L858R", "L858R"},
		{"HGVS three-letter", "p.Leu858Arg", "L858R"},
		{"HGVS with parentheses", "p.(Leu858Arg)", "L858R"},
		{"HGVS stop gain", "p.Trp24Ter", "W24*"},
		{"Short stop gain", "W24*", "W24*"},
		{"HGVS frameshift", "p.Thr790fs", "T790fs"},
		{"Short frameshift", "T790fs", "T790fs"},
		{"Exon deletion", "exon 19 deletion", "exon 19 deletion"},
		{"Exon del shorthand", "Exon 19 del", "exon 19 deletion"},
		{"Exon insertion shorthand", "exon 20 ins", "exon 20 insertion"},
		{"Exon skipping", "exon 14 skipping", "exon 14 skipping"},
		{"Unrecognized upper-cased", "amplification", "AMPLIFICATION"},
		{"Empty", "", ""},
		{"Whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeProteinChange(tt.input); got != tt.want {
				t.Errorf("NormalizeProteinChange(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSameProteinChange(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"Short vs HGVS", "L858R", "p.Leu858Arg", true},
		{"Case differences in events", "Exon 19 del", "exon 19 deletion", true},
		{"Different changes", "L858R", "T790M", false},
		{"Empty never matches", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameProteinChange(tt.a, tt.b); got != tt.want {
				t.Errorf("SameProteinChange(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNormalizeGene(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Current symbol", "EGFR", "EGFR"},
		{"Lower case", "braf", "BRAF"},
		{"HER2 alias", "HER2", "ERBB2"},
		{"Hyphenated alias", "K-RAS", "KRAS"},
		{"P53 legacy", "p53", "TP53"},
		{"PD-L1 alias", "PD-L1", "CD274"},
		{"Trimmed", "  met  ", "MET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeGene(tt.input); got != tt.want {
				t.Errorf("NormalizeGene(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSameGene(t *testing.T) {
	if !SameGene("HER2", "ERBB2") {
		t.Error("HER2 and ERBB2 are the same gene")
	}
	if SameGene("EGFR", "ERBB2") {
		t.Error("EGFR and ERBB2 are different genes")
	}
	if SameGene("", "") {
		t.Error("empty symbols must not match")
	}
}
