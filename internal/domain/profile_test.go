package domain

import "testing"

func validProfile() PatientProfile {
	ecog := 1
	return PatientProfile{
		CancerType: "non-small cell lung cancer",
		Variants: []Variant{
			{Gene: "EGFR", ProteinChange: "L858R"},
		},
		Biomarkers: []Biomarker{
			{Name: "PD-L1", Status: "positive", Value: 55},
		},
		PriorTherapies: []string{"carboplatin"},
		Age:            64,
		ECOGStatus:     &ecog,
		Stage:          "IV",
	}
}

func TestPatientProfileValidate(t *testing.T) {
	badECOG := 5

	tests := []struct {
		name    string
		mutate  func(*PatientProfile)
		wantErr bool
	}{
		{"Valid profile", func(p *PatientProfile) {}, false},
		{"Missing cancer type", func(p *PatientProfile) { p.CancerType = "  " }, true},
		{"No variants or biomarkers", func(p *PatientProfile) {
			p.Variants = nil
			p.Biomarkers = nil
		}, true},
		{"Biomarkers only", func(p *PatientProfile) { p.Variants = nil }, false},
		{"Variant without gene", func(p *PatientProfile) {
			p.Variants = append(p.Variants, Variant{ProteinChange: "T790M"})
		}, true},
		{"Biomarker without name", func(p *PatientProfile) {
			p.Biomarkers = append(p.Biomarkers, Biomarker{Status: "high"})
		}, true},
		{"Negative age", func(p *PatientProfile) { p.Age = -1 }, true},
		{"Implausible age", func(p *PatientProfile) { p.Age = 150 }, true},
		{"ECOG out of range", func(p *PatientProfile) { p.ECOGStatus = &badECOG }, true},
		{"No ECOG is fine", func(p *PatientProfile) { p.ECOGStatus = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := validProfile()
			tt.mutate(&profile)
			err := profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFingerprintStability(t *testing.T) {
	a := validProfile()
	b := validProfile()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical profiles must fingerprint identically")
	}
}

func TestFingerprintIgnoresListOrder(t *testing.T) {
	a := validProfile()
	a.Variants = []Variant{
		{Gene: "EGFR", ProteinChange: "L858R"},
		{Gene: "TP53", ProteinChange: "R273H"},
	}
	a.PriorTherapies = []string{"carboplatin", "pemetrexed"}

	b := validProfile()
	b.Variants = []Variant{
		{Gene: "TP53", ProteinChange: "R273H"},
		{Gene: "EGFR", ProteinChange: "L858R"},
	}
	b.PriorTherapies = []string{"pemetrexed", "carboplatin"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint must be insensitive to variant and therapy order")
	}
}

func TestFingerprintDistinguishesProfiles(t *testing.T) {
	a := validProfile()
	b := validProfile()
	b.Variants[0].ProteinChange = "T790M"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different variants must change the fingerprint")
	}

	c := validProfile()
	c.CancerType = "colorectal cancer"
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different cancer types must change the fingerprint")
	}
}

func TestGenes(t *testing.T) {
	profile := PatientProfile{
		Variants: []Variant{
			{Gene: "tp53", ProteinChange: "R273H"},
			{Gene: "EGFR", ProteinChange: "L858R"},
			{Gene: "EGFR", ProteinChange: "T790M"},
			{Gene: "  ", ProteinChange: "X"},
		},
	}
	genes := profile.Genes()
	want := []string{"EGFR", "TP53"}
	if len(genes) != len(want) {
		t.Fatalf("Genes() = %v, want %v", genes, want)
	}
	for i := range want {
		if genes[i] != want[i] {
			t.Errorf("Genes()[%d] = %s, want %s", i, genes[i], want[i])
		}
	}
}

func TestVariantLabel(t *testing.T) {
	v := Variant{Gene: "BRAF", ProteinChange: "V600E"}
	if v.Label() != "BRAF V600E" {
		t.Errorf("Label() = %q", v.Label())
	}
	bare := Variant{Gene: "MET"}
	if bare.Label() != "MET" {
		t.Errorf("Label() = %q", bare.Label())
	}
}
