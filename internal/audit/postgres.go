// Package audit persists completed analyses and their progress events.
// Every board-facing output must be reconstructable after the fact, so the
// full analysis payload is stored, not just a summary row.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/onco-evidence-engine/internal/database"
	"github.com/onco-evidence-engine/internal/domain"
)

// PostgresStore implements domain.AuditStore on the engine's Postgres
// database, alongside the evidence collections.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new audit store.
func NewPostgresStore(db *database.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresStore{db: db}, nil
}

// SaveAnalysis stores or updates an analysis record keyed by id.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, analysis *domain.CaseAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshaling analysis %s: %w", analysis.ID, err)
	}

	query := `
		INSERT INTO case_analyses (id, fingerprint, cancer_type, state, payload, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			payload = EXCLUDED.payload,
			completed_at = EXCLUDED.completed_at
	`

	var completed *time.Time
	if !analysis.CompletedAt.IsZero() {
		completed = &analysis.CompletedAt
	}
	_, err = s.db.Pool.Exec(ctx, query,
		analysis.ID,
		analysis.Fingerprint,
		analysis.Profile.CancerType,
		analysis.State.String(),
		payload,
		analysis.CreatedAt,
		completed,
	)
	if err != nil {
		return fmt.Errorf("saving analysis %s: %w", analysis.ID, err)
	}
	return nil
}

// GetAnalysis retrieves an analysis by id.
func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*domain.CaseAnalysis, error) {
	var payload []byte
	err := s.db.Pool.QueryRow(ctx,
		"SELECT payload FROM case_analyses WHERE id = $1", id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis %s: %w", id, err)
	}

	var analysis domain.CaseAnalysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis %s: %w", id, err)
	}
	return &analysis, nil
}

// SaveEvent appends a progress event to the audit trail.
func (s *PostgresStore) SaveEvent(ctx context.Context, event domain.ProgressEvent) error {
	_, err := s.db.Pool.Exec(ctx,
		"INSERT INTO analysis_events (case_id, state, detail, occurred_at) VALUES ($1, $2, $3, $4)",
		event.CaseID, event.State.String(), event.Detail, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("saving event for %s: %w", event.CaseID, err)
	}
	return nil
}

// ListEvents returns a case's events in occurrence order.
func (s *PostgresStore) ListEvents(ctx context.Context, caseID string) ([]domain.ProgressEvent, error) {
	rows, err := s.db.Pool.Query(ctx,
		"SELECT case_id, state, detail, occurred_at FROM analysis_events WHERE case_id = $1 ORDER BY occurred_at, id",
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", caseID, err)
	}
	defer rows.Close()

	var events []domain.ProgressEvent
	for rows.Next() {
		var (
			event domain.ProgressEvent
			state string
		)
		if err := rows.Scan(&event.CaseID, &state, &event.Detail, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		event.State = domain.AnalysisState(state)
		events = append(events, event)
	}
	return events, rows.Err()
}
