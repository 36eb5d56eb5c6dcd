package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/internal/setup"
)

// seedDocument is one JSONL line of a collection export. The embedding is
// computed at ingest time from the body text.
type seedDocument struct {
	ID          string         `json:"id"`
	Body        string         `json:"body"`
	Tier        int            `json:"tier"`
	SourceName  string         `json:"source_name"`
	PublishedAt string         `json:"published_at"`
	Metadata    map[string]any `json:"metadata"`
}

const seedBatchSize = 64

func newSeedCmd() *cobra.Command {
	var (
		filePath   string
		collection string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Ingest a JSONL export into an evidence collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			col := domain.Collection(collection)
			if !col.IsValid() {
				return fmt.Errorf("unknown collection: %s", collection)
			}
			if col.ReadOnly() {
				return fmt.Errorf("collection %s is read-only", collection)
			}

			file, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("opening seed file: %w", err)
			}
			defer file.Close()

			app, err := setup.Build(cmd.Context(), setup.Options{SkipReasoner: true})
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			var (
				batch []domain.Document
				total int
				line  int
			)
			flush := func() error {
				if len(batch) == 0 {
					return nil
				}
				if err := app.Store.Upsert(ctx, col, batch); err != nil {
					return err
				}
				total += len(batch)
				batch = batch[:0]
				return nil
			}

			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
			for scanner.Scan() {
				line++
				raw := scanner.Bytes()
				if len(raw) == 0 {
					continue
				}
				var seed seedDocument
				if err := json.Unmarshal(raw, &seed); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}

				doc, err := buildDocument(col, seed)
				if err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				doc.Embedding, err = app.Embedder.EmbedDocument(ctx, doc.Text)
				if err != nil {
					return fmt.Errorf("line %d: embedding: %w", line, err)
				}

				batch = append(batch, doc)
				if len(batch) >= seedBatchSize {
					if err := flush(); err != nil {
						return err
					}
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading seed file: %w", err)
			}
			if err := flush(); err != nil {
				return err
			}

			app.Log.WithField("documents", total).Infof("Seeded collection %s", col)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the JSONL seed file")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "target collection name")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func buildDocument(col domain.Collection, seed seedDocument) (domain.Document, error) {
	if seed.ID == "" {
		return domain.Document{}, fmt.Errorf("document has no id")
	}
	if seed.Body == "" {
		return domain.Document{}, fmt.Errorf("document %s has no body", seed.ID)
	}
	tier := domain.EvidenceTier(seed.Tier)
	if seed.Tier == 0 {
		tier = domain.TierPreclinical
	}

	doc := domain.Document{
		ID:         seed.ID,
		Collection: col,
		Text:       seed.Body,
		Metadata:   seed.Metadata,
		Tier:       tier,
		SourceName: seed.SourceName,
	}
	if seed.PublishedAt != "" {
		published, err := time.Parse("2006-01-02", seed.PublishedAt)
		if err != nil {
			return domain.Document{}, fmt.Errorf("document %s: bad published_at: %w", seed.ID, err)
		}
		doc.PublishedAt = published
	}
	return doc, nil
}
