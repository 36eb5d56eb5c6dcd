package domain

import (
	"encoding/json"
	"strings"
)

// NewEvidenceItem builds an EvidenceItem from a stored document and its raw
// similarity score, decoding the collection-specific detail payload. Score
// is left zero; the retrieval engine fills it after normalization.
func NewEvidenceItem(doc Document, similarity float64) EvidenceItem {
	item := EvidenceItem{
		ID:          doc.ID,
		Collection:  doc.Collection,
		Snippet:     doc.Text,
		RawScore:    similarity,
		Tier:        doc.Tier,
		Genes:       metadataList(doc.Metadata, "genes"),
		Variants:    metadataList(doc.Metadata, "variants"),
		CancerTypes: metadataList(doc.Metadata, "cancer_types"),
	}

	identifier := metadataString(doc.Metadata, "citation_id")
	if identifier == "" {
		identifier = doc.ID
	}
	item.Citation = Citation{
		Identifier:      identifier,
		SourceName:      doc.SourceName,
		PublicationDate: doc.PublishedAt,
		URL:             CitationURL(identifier),
	}

	switch doc.Collection {
	case CollectionTherapies, CollectionGuidelines, CollectionLiterature:
		var detail TherapyDetail
		if decodeMetadata(doc.Metadata, &detail) && detail.Therapy != "" {
			item.Therapy = &detail
		}
	case CollectionResistance:
		var detail ResistanceDetail
		if decodeMetadata(doc.Metadata, &detail) && detail.Gene != "" {
			item.Resistance = &detail
		}
	case CollectionOutcomes:
		var detail OutcomeDetail
		if decodeMetadata(doc.Metadata, &detail) && detail.Therapy != "" {
			item.Outcome = &detail
		}
	case CollectionTrials:
		var detail TrialDetail
		if decodeMetadata(doc.Metadata, &detail) && detail.NCTID != "" {
			item.Trial = &detail
		}
	}

	return item
}

// CitationURL resolves a provenance link for well-known identifier schemes.
// PMIDs link to PubMed, NCT numbers to ClinicalTrials.gov; anything else
// has no canonical URL and passes through empty.
func CitationURL(identifier string) string {
	id := strings.TrimSpace(identifier)
	upper := strings.ToUpper(id)
	switch {
	case strings.HasPrefix(upper, "PMID:"):
		return "https://pubmed.ncbi.nlm.nih.gov/" + strings.TrimSpace(id[5:]) + "/"
	case strings.HasPrefix(upper, "NCT"):
		return "https://clinicaltrials.gov/study/" + upper
	default:
		return ""
	}
}

// decodeMetadata round-trips a metadata map through JSON into a typed
// detail struct. Returns false when the map carries no usable payload.
func decodeMetadata(meta map[string]any, out any) bool {
	if len(meta) == 0 {
		return false
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func metadataString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func metadataList(meta map[string]any, key string) []string {
	if meta == nil {
		return nil
	}
	switch v := meta[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
