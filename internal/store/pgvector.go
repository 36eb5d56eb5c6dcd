// Package store implements the evidence store adapter over Postgres with
// the pgvector extension. Each collection is a table with a vector(384)
// column and an ivfflat cosine index.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/onco-evidence-engine/internal/database"
	"github.com/onco-evidence-engine/internal/domain"
)

// PgVectorStore implements domain.EvidenceStore on a pgvector-enabled
// Postgres database. The shared rate limiter protects the backend from
// retrieval fan-out bursts.
type PgVectorStore struct {
	db      *database.DB
	limiter *rate.Limiter
	log     *logrus.Logger
}

// NewPgVectorStore creates a new store adapter. ratePerSec bounds the
// number of queries per second across all concurrent searches.
func NewPgVectorStore(db *database.DB, ratePerSec int, logger *logrus.Logger) *PgVectorStore {
	if ratePerSec <= 0 {
		ratePerSec = 50
	}
	return &PgVectorStore{
		db:      db,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     logger,
	}
}

// EnsureCollections verifies that every collection table exists. Schema
// creation itself is handled by migrations; this is the startup sanity
// check that fails fast on a half-migrated database.
func (s *PgVectorStore) EnsureCollections(ctx context.Context) error {
	for _, col := range domain.AllCollections() {
		var exists bool
		err := s.db.Pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
			col.String(),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking collection %s: %w", col, err)
		}
		if !exists {
			return fmt.Errorf("collection %s is missing, run migrations", col)
		}
	}
	s.log.WithField("collections", len(domain.AllCollections())).Info("All evidence collections present")
	return nil
}

// Upsert inserts or replaces documents by id. Writes to the read-only
// genomic_evidence collection are rejected before touching the database.
func (s *PgVectorStore) Upsert(ctx context.Context, collection domain.Collection, docs []domain.Document) error {
	if !collection.IsValid() {
		return fmt.Errorf("unknown collection: %s", collection)
	}
	if collection.ReadOnly() {
		return fmt.Errorf("collection %s is read-only", collection)
	}
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if len(doc.Embedding) != domain.EmbeddingDim {
			return fmt.Errorf("document %s: embedding has %d dimensions, want %d",
				doc.ID, len(doc.Embedding), domain.EmbeddingDim)
		}
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, body, tier, source_name, published_at, cancer_types, genes, variants, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (id) DO UPDATE SET
			body = EXCLUDED.body,
			tier = EXCLUDED.tier,
			source_name = EXCLUDED.source_name,
			published_at = EXCLUDED.published_at,
			cancer_types = EXCLUDED.cancer_types,
			genes = EXCLUDED.genes,
			variants = EXCLUDED.variants,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = now()`, collection)

	for _, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", doc.ID, err)
		}
		var published *time.Time
		if !doc.PublishedAt.IsZero() {
			published = &doc.PublishedAt
		}
		batch.Queue(query,
			doc.ID, doc.Text, int(doc.Tier), doc.SourceName, published,
			metadataStrings(doc.Metadata, "cancer_types"),
			metadataStrings(doc.Metadata, "genes"),
			metadataStrings(doc.Metadata, "variants"),
			meta, pgvector.NewVector(doc.Embedding),
		)
	}

	results := s.db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting into %s: %w", collection, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"collection": collection.String(),
		"documents":  len(docs),
	}).Debug("Documents upserted")
	return nil
}

// Search returns the top-k documents by cosine similarity. A deadline hit
// surfaces as a DOWNSTREAM_TIMEOUT error naming the collection so the
// retrieval engine can record the source as unavailable.
func (s *PgVectorStore) Search(ctx context.Context, collection domain.Collection, vector []float32, k int, filter *domain.SearchFilter) ([]domain.SearchHit, error) {
	if !collection.IsValid() {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
	if len(vector) != domain.EmbeddingDim {
		return nil, fmt.Errorf("query embedding has %d dimensions, want %d", len(vector), domain.EmbeddingDim)
	}
	if k <= 0 {
		k = 8
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, s.timeoutErr(collection, err)
	}

	query := fmt.Sprintf(`
		SELECT id, body, tier, source_name, published_at, cancer_types, genes, variants, metadata,
		       1 - (embedding <=> $1) AS similarity
		FROM %s`, collection)
	args := []any{pgvector.NewVector(vector)}

	where := ""
	if filter != nil {
		if filter.CancerType != "" {
			args = append(args, filter.CancerType)
			where += fmt.Sprintf(" AND $%d = ANY(cancer_types)", len(args))
		}
		if filter.Gene != "" {
			args = append(args, filter.Gene)
			where += fmt.Sprintf(" AND $%d = ANY(genes)", len(args))
		}
	}
	if where != "" {
		query += " WHERE true" + where
	}
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.timeoutErr(collection, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var (
			doc         domain.Document
			tier        int
			published   *time.Time
			cancerTypes []string
			genes       []string
			variants    []string
			metaRaw     []byte
			similarity  float64
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &tier, &doc.SourceName, &published,
			&cancerTypes, &genes, &variants, &metaRaw, &similarity); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", collection, err)
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decoding %s metadata for %s: %w", collection, doc.ID, err)
			}
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Metadata["cancer_types"] = cancerTypes
		doc.Metadata["genes"] = genes
		doc.Metadata["variants"] = variants
		doc.Collection = collection
		doc.Tier = domain.EvidenceTier(tier)
		if published != nil {
			doc.PublishedAt = *published
		}
		hits = append(hits, domain.SearchHit{Document: doc, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, s.timeoutErr(collection, err)
	}
	return hits, nil
}

// Stats returns the document count per collection.
func (s *PgVectorStore) Stats(ctx context.Context) (map[domain.Collection]int64, error) {
	stats := make(map[domain.Collection]int64, len(domain.AllCollections()))
	for _, col := range domain.AllCollections() {
		var count int64
		err := s.db.Pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", col)).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", col, err)
		}
		stats[col] = count
	}
	return stats, nil
}

// Health verifies backend connectivity.
func (s *PgVectorStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

// timeoutErr classifies context expiry as a downstream timeout carrying the
// collection name; everything else passes through wrapped.
func (s *PgVectorStore) timeoutErr(collection domain.Collection, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewAnalysisError(domain.ErrDownstreamTimeout,
			fmt.Sprintf("search against %s timed out", collection), err.Error())
	}
	return fmt.Errorf("searching %s: %w", collection, err)
}

// metadataStrings pulls a string slice out of a metadata map, tolerating
// both []string and []any shapes after JSON round-trips.
func metadataStrings(meta map[string]any, key string) []string {
	if meta == nil {
		return []string{}
	}
	switch v := meta[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return []string{}
	}
}
