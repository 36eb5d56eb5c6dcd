package expansion

// Static expansion vocabularies. Keys are matched as lower-cased
// substrings of the query text; values are the terms appended to it.
// The maps are intentionally curated rather than learned so that
// expansion stays deterministic and reviewable.

var cancerTypeTerms = map[string][]string{
	"nsclc":            {"non-small cell lung cancer", "lung adenocarcinoma"},
	"non-small cell":   {"NSCLC", "lung adenocarcinoma"},
	"lung adenocarcin": {"NSCLC", "non-small cell lung cancer"},
	"sclc":             {"small cell lung cancer"},
	"breast cancer":    {"breast carcinoma", "mammary carcinoma"},
	"tnbc":             {"triple-negative breast cancer"},
	"triple-negative":  {"TNBC", "basal-like breast cancer"},
	"colorectal":       {"CRC", "colon adenocarcinoma"},
	"crc":              {"colorectal cancer", "colon adenocarcinoma"},
	"melanoma":         {"cutaneous melanoma", "malignant melanoma"},
	"pancreatic":       {"pancreatic ductal adenocarcinoma", "PDAC"},
	"ovarian":          {"ovarian carcinoma", "high-grade serous"},
	"prostate":         {"prostate adenocarcinoma", "castration-resistant"},
	"glioblastoma":     {"GBM", "glioma"},
	"cholangio":        {"biliary tract cancer", "cholangiocarcinoma"},
	"gastric":          {"gastric adenocarcinoma", "gastroesophageal"},
	"aml":              {"acute myeloid leukemia"},
	"cml":              {"chronic myeloid leukemia"},
	"urothelial":       {"bladder cancer", "urothelial carcinoma"},
	"hcc":              {"hepatocellular carcinoma", "liver cancer"},
}

var geneTerms = map[string][]string{
	"egfr":   {"epidermal growth factor receptor", "ErbB1"},
	"erbb2":  {"HER2", "human epidermal growth factor receptor 2"},
	"alk":    {"anaplastic lymphoma kinase", "ALK rearrangement"},
	"ros1":   {"ROS1 fusion", "ROS1 rearrangement"},
	"kras":   {"KRAS mutation", "RAS pathway"},
	"nras":   {"NRAS mutation", "RAS pathway"},
	"braf":   {"BRAF mutation", "MAPK pathway"},
	"met":    {"MET amplification", "MET exon 14 skipping"},
	"ret":    {"RET fusion", "RET rearrangement"},
	"ntrk":   {"NTRK fusion", "TRK fusion"},
	"brca1":  {"homologous recombination deficiency", "BRCA mutation"},
	"brca2":  {"homologous recombination deficiency", "BRCA mutation"},
	"pik3ca": {"PI3K pathway", "PIK3CA mutation"},
	"fgfr2":  {"FGFR2 fusion", "fibroblast growth factor receptor"},
	"fgfr3":  {"FGFR3 alteration", "fibroblast growth factor receptor"},
	"idh1":   {"IDH1 mutation", "isocitrate dehydrogenase"},
	"idh2":   {"IDH2 mutation", "isocitrate dehydrogenase"},
	"kit":    {"KIT mutation", "gastrointestinal stromal tumor"},
	"tp53":   {"p53 pathway", "TP53 mutation"},
	"stk11":  {"LKB1", "STK11 loss"},
}

var therapyTerms = map[string][]string{
	"osimertinib":   {"third-generation EGFR TKI", "Tagrisso"},
	"erlotinib":     {"first-generation EGFR TKI", "Tarceva"},
	"gefitinib":     {"first-generation EGFR TKI", "Iressa"},
	"afatinib":      {"second-generation EGFR TKI"},
	"tki":           {"tyrosine kinase inhibitor"},
	"crizotinib":    {"ALK inhibitor", "Xalkori"},
	"alectinib":     {"second-generation ALK inhibitor", "Alecensa"},
	"lorlatinib":    {"third-generation ALK inhibitor"},
	"vemurafenib":   {"BRAF inhibitor", "Zelboraf"},
	"dabrafenib":    {"BRAF inhibitor", "Tafinlar"},
	"trametinib":    {"MEK inhibitor", "Mekinist"},
	"sotorasib":     {"KRAS G12C inhibitor", "Lumakras"},
	"adagrasib":     {"KRAS G12C inhibitor", "Krazati"},
	"trastuzumab":   {"anti-HER2 antibody", "Herceptin"},
	"olaparib":      {"PARP inhibitor", "Lynparza"},
	"parp":          {"PARP inhibitor", "synthetic lethality"},
	"chemotherapy":  {"cytotoxic chemotherapy", "platinum doublet"},
	"capmatinib":    {"MET inhibitor", "Tabrecta"},
	"selpercatinib": {"RET inhibitor", "Retevmo"},
	"larotrectinib": {"TRK inhibitor", "Vitrakvi"},
}

var biomarkerTerms = map[string][]string{
	"pd-l1": {"programmed death-ligand 1", "tumor proportion score"},
	"tmb":   {"tumor mutational burden"},
	"msi":   {"microsatellite instability", "mismatch repair deficient"},
	"dmmr":  {"mismatch repair deficient", "MSI-high"},
	"hrd":   {"homologous recombination deficiency"},
	"ctdna": {"circulating tumor DNA", "liquid biopsy"},
	"loh":   {"loss of heterozygosity"},
}

var pathwayTerms = map[string][]string{
	"mapk":     {"RAS-RAF-MEK-ERK signaling"},
	"pi3k":     {"PI3K-AKT-mTOR signaling"},
	"wnt":      {"Wnt/beta-catenin signaling"},
	"vegf":     {"angiogenesis", "VEGF signaling"},
	"cell cyc": {"CDK4/6", "cell cycle regulation"},
	"dna repa": {"DNA damage response", "homologous recombination"},
}

var resistanceTerms = map[string][]string{
	"resistance": {"acquired resistance", "resistance mechanism"},
	"t790m":      {"gatekeeper mutation", "acquired EGFR resistance"},
	"c797s":      {"third-generation EGFR TKI resistance"},
	"amplificat": {"bypass pathway activation"},
	"refractory": {"treatment-refractory disease"},
	"relapse":    {"disease progression", "acquired resistance"},
}

var clinicalTerms = map[string][]string{
	"first-line":  {"treatment-naive", "frontline therapy"},
	"second-line": {"previously treated"},
	"metastatic":  {"advanced disease", "stage IV"},
	"adjuvant":    {"post-surgical therapy"},
	"neoadjuvant": {"pre-surgical therapy"},
	"maintenance": {"maintenance therapy"},
}

var trialTerms = map[string][]string{
	"trial":       {"clinical trial", "eligibility criteria"},
	"recruiting":  {"open enrollment", "actively recruiting"},
	"basket":      {"tumor-agnostic", "basket trial"},
	"eligibility": {"inclusion criteria", "exclusion criteria"},
}

var immunotherapyTerms = map[string][]string{
	"pembrolizumab": {"anti-PD-1 antibody", "Keytruda"},
	"nivolumab":     {"anti-PD-1 antibody", "Opdivo"},
	"atezolizumab":  {"anti-PD-L1 antibody", "Tecentriq"},
	"ipilimumab":    {"anti-CTLA-4 antibody", "Yervoy"},
	"immunotherapy": {"immune checkpoint inhibitor"},
	"checkpoint":    {"immune checkpoint blockade"},
	"car-t":         {"chimeric antigen receptor T-cell"},
}

var genomicsTerms = map[string][]string{
	"fusion":        {"gene rearrangement", "chimeric transcript"},
	"amplification": {"copy number gain"},
	"deletion":      {"loss of function", "copy number loss"},
	"frameshift":    {"truncating mutation", "loss of function"},
	"splice":        {"splice site alteration"},
	"exon 19":       {"EGFR exon 19 deletion", "in-frame deletion"},
	"exon 20":       {"exon 20 insertion"},
	"vus":           {"variant of uncertain significance"},
}

var outcomeTerms = map[string][]string{
	"survival":       {"overall survival", "progression-free survival"},
	"response rate":  {"objective response rate"},
	"durable":        {"duration of response"},
	"progression":    {"progression-free survival", "time to progression"},
	"quality of lif": {"patient-reported outcomes"},
}

var toxicityTerms = map[string][]string{
	"toxicity":   {"adverse events", "treatment-related toxicity"},
	"tolerab":    {"dose modification", "safety profile"},
	"pneumonit":  {"interstitial lung disease"},
	"hepatotox":  {"liver enzyme elevation"},
	"cardiotox":  {"QTc prolongation", "cardiac toxicity"},
}

// vocabularies is the fixed match order across all term maps. Earlier
// categories win slots when the term cap truncates the candidate list.
var vocabularies = []map[string][]string{
	geneTerms,
	cancerTypeTerms,
	therapyTerms,
	biomarkerTerms,
	resistanceTerms,
	immunotherapyTerms,
	genomicsTerms,
	pathwayTerms,
	clinicalTerms,
	trialTerms,
	outcomeTerms,
	toxicityTerms,
}
