package domain

// CollectionQuery is one expanded retrieval query, targeted at the subset
// of collections it is phrased for.
type CollectionQuery struct {
	Text        string        `json:"text"`
	Collections []Collection  `json:"collections"`
	Filter      *SearchFilter `json:"filter,omitempty"`
}
