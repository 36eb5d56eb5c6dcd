package variantnorm

import "strings"

// Legacy and alias gene symbols mapped to current HGNC symbols. The
// collections are tagged with current symbols; profile input often is not.
var geneAliases = map[string]string{
	"HER2":   "ERBB2",
	"HER-2":  "ERBB2",
	"NEU":    "ERBB2",
	"HER3":   "ERBB3",
	"C-MET":  "MET",
	"CMET":   "MET",
	"C-KIT":  "KIT",
	"CKIT":   "KIT",
	"ALK1":   "ALK",
	"B-RAF":  "BRAF",
	"K-RAS":  "KRAS",
	"N-RAS":  "NRAS",
	"H-RAS":  "HRAS",
	"P53":    "TP53",
	"PD-L1":  "CD274",
	"PDL1":   "CD274",
	"PD-1":   "PDCD1",
	"PD1":    "PDCD1",
	"FGFR-2": "FGFR2",
	"FGFR-3": "FGFR3",
	"C-MYC":  "MYC",
	"BCL-2":  "BCL2",
	"MLL":    "KMT2A",
	"EGFR1":  "EGFR",
	"ERBB1":  "EGFR",
}

// NormalizeGene upper-cases a gene symbol and resolves known aliases to
// the current HGNC symbol.
func NormalizeGene(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := geneAliases[s]; ok {
		return canonical
	}
	return s
}

// SameGene reports whether two symbols resolve to the same gene.
func SameGene(a, b string) bool {
	na := NormalizeGene(a)
	return na != "" && na == NormalizeGene(b)
}
