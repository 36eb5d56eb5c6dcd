package domain

import "context"

// EvidenceStore is the vector store adapter over the evidence collections.
type EvidenceStore interface {
	// EnsureCollections creates missing collection schemas. Idempotent.
	EnsureCollections(ctx context.Context) error

	// Upsert inserts or replaces documents by id. Writes to read-only
	// collections are rejected.
	Upsert(ctx context.Context, collection Collection, docs []Document) error

	// Search returns the top-k documents of a collection by cosine
	// similarity to the query vector, optionally constrained by filter.
	Search(ctx context.Context, collection Collection, vector []float32, k int, filter *SearchFilter) ([]SearchHit, error)

	// Stats returns the document count per collection.
	Stats(ctx context.Context) (map[Collection]int64, error)

	// Health verifies backend connectivity.
	Health(ctx context.Context) error
}

// SearchFilter narrows a vector search by structured metadata.
type SearchFilter struct {
	CancerType string
	Gene       string
}

// Embedder turns text into 384-dim unit vectors.
type Embedder interface {
	// EmbedQuery embeds search text, applying the query instruction prefix.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocument embeds document text without the query prefix.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Reasoner produces the optional narrative summary of an assembled packet.
// All quantitative outputs are computed in code; the reasoner only writes
// prose over them.
type Reasoner interface {
	Summarize(ctx context.Context, packet *MTBPacket) (string, error)
}

// AuditStore persists analyses and their progress events.
type AuditStore interface {
	SaveAnalysis(ctx context.Context, analysis *CaseAnalysis) error
	GetAnalysis(ctx context.Context, id string) (*CaseAnalysis, error)
	SaveEvent(ctx context.Context, event ProgressEvent) error
	ListEvents(ctx context.Context, caseID string) ([]ProgressEvent, error)
}

// ConfigManager provides access to the application configuration.
type ConfigManager interface {
	GetConfig() *Config
	Validate() error
}
