package retrieval

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
)

type fakeStore struct {
	hits map[domain.Collection][]domain.SearchHit
	errs map[domain.Collection]error
}

func (f *fakeStore) EnsureCollections(ctx context.Context) error { return nil }
func (f *fakeStore) Upsert(ctx context.Context, c domain.Collection, docs []domain.Document) error {
	return nil
}
func (f *fakeStore) Stats(ctx context.Context) (map[domain.Collection]int64, error) { return nil, nil }
func (f *fakeStore) Health(ctx context.Context) error                               { return nil }

func (f *fakeStore) Search(ctx context.Context, c domain.Collection, vector []float32, k int, filter *domain.SearchFilter) ([]domain.SearchHit, error) {
	if err, ok := f.errs[c]; ok {
		return nil, err
	}
	return f.hits[c], nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, domain.EmbeddingDim), nil
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return f.EmbedQuery(ctx, text)
}

func testEngine(store *fakeStore, embedder *fakeEmbedder) *Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(store, embedder, domain.RetrievalConfig{
		TopK:           8,
		MaxEvidence:    30,
		MaxParallelism: 4,
		SearchTimeout:  time.Second,
	}, logger)
}

func hit(id string, col domain.Collection, similarity float64, tier domain.EvidenceTier) domain.SearchHit {
	return domain.SearchHit{
		Document: domain.Document{
			ID:         id,
			Collection: col,
			Text:       "snippet " + id,
			Tier:       tier,
		},
		Similarity: similarity,
	}
}

func queriesFor(cols ...domain.Collection) []domain.CollectionQuery {
	return []domain.CollectionQuery{{Text: "q", Collections: cols}}
}

func TestRetrieveMergesAndOrders(t *testing.T) {
	store := &fakeStore{hits: map[domain.Collection][]domain.SearchHit{
		domain.CollectionVariants: {
			hit("var-a", domain.CollectionVariants, 0.9, domain.TierClinical),
			hit("var-b", domain.CollectionVariants, 0.5, domain.TierGuideline),
		},
		domain.CollectionLiterature: {
			hit("lit-a", domain.CollectionLiterature, 0.8, domain.TierCaseSeries),
		},
	}}
	engine := testEngine(store, &fakeEmbedder{})

	rs, err := engine.Retrieve(context.Background(),
		queriesFor(domain.CollectionVariants, domain.CollectionLiterature))
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(rs.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(rs.Items))
	}
	if len(rs.UnavailableSources) != 0 {
		t.Errorf("unexpected unavailable sources: %v", rs.UnavailableSources)
	}

	// var-a tops its collection (normalized 1.0 x 0.18); the single
	// literature hit normalizes to 1.0 x 0.16; var-b bottoms out at 0.
	if rs.Items[0].ID != "var-a" || rs.Items[1].ID != "lit-a" || rs.Items[2].ID != "var-b" {
		ids := []string{rs.Items[0].ID, rs.Items[1].ID, rs.Items[2].ID}
		t.Errorf("order = %v", ids)
	}

	for i := 1; i < len(rs.Items); i++ {
		if rs.Items[i].Score > rs.Items[i-1].Score {
			t.Error("items must be sorted by descending score")
		}
	}
}

func TestRetrieveSingleHitNormalizesToFullWeight(t *testing.T) {
	store := &fakeStore{hits: map[domain.Collection][]domain.SearchHit{
		domain.CollectionGuidelines: {
			hit("guide-a", domain.CollectionGuidelines, 0.42, domain.TierGuideline),
		},
	}}
	engine := testEngine(store, &fakeEmbedder{})

	rs, err := engine.Retrieve(context.Background(), queriesFor(domain.CollectionGuidelines))
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	want := domain.DefaultCollectionWeights()[domain.CollectionGuidelines]
	if rs.Items[0].Score != want {
		t.Errorf("score = %v, want full collection weight %v", rs.Items[0].Score, want)
	}
}

func TestRetrieveDedupesByCitation(t *testing.T) {
	// dup-weak is alone in literature so it normalizes to the full 0.16
	// literature weight; dup-strong tops the variants batch and lands on
	// the full 0.18 variants weight, so it survives the dedupe.
	weak := hit("dup-weak", domain.CollectionLiterature, 0.2, domain.TierPreclinical)
	weak.Document.Metadata = map[string]any{"citation_id": "PMID:111"}
	strong := hit("dup-strong", domain.CollectionVariants, 0.9, domain.TierClinical)
	strong.Document.Metadata = map[string]any{"citation_id": "PMID:111"}
	anchor := hit("anchor", domain.CollectionVariants, 0.4, domain.TierClinical)

	store := &fakeStore{hits: map[domain.Collection][]domain.SearchHit{
		domain.CollectionLiterature: {weak},
		domain.CollectionVariants:   {strong, anchor},
	}}
	engine := testEngine(store, &fakeEmbedder{})

	rs, err := engine.Retrieve(context.Background(),
		queriesFor(domain.CollectionVariants, domain.CollectionLiterature))
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	var survivors []string
	for _, item := range rs.Items {
		if item.Citation.Identifier == "PMID:111" {
			survivors = append(survivors, item.ID)
		}
	}
	if !reflect.DeepEqual(survivors, []string{"dup-strong"}) {
		t.Errorf("dedupe survivors = %v, want [dup-strong]", survivors)
	}
}

func TestRetrieveDegradesOnPartialFailure(t *testing.T) {
	store := &fakeStore{
		hits: map[domain.Collection][]domain.SearchHit{
			domain.CollectionVariants: {hit("var-a", domain.CollectionVariants, 0.9, domain.TierClinical)},
		},
		errs: map[domain.Collection]error{
			domain.CollectionTrials:     errors.New("index offline"),
			domain.CollectionGuidelines: errors.New("index offline"),
		},
	}
	engine := testEngine(store, &fakeEmbedder{})

	rs, err := engine.Retrieve(context.Background(),
		queriesFor(domain.CollectionVariants, domain.CollectionTrials, domain.CollectionGuidelines))
	if err != nil {
		t.Fatalf("partial failure must not abort: %v", err)
	}
	if len(rs.UnavailableSources) != 2 {
		t.Errorf("unavailable = %v, want 2 collections", rs.UnavailableSources)
	}
	if len(rs.Items) != 1 {
		t.Errorf("items = %d, want 1", len(rs.Items))
	}
}

func TestRetrieveAllSourcesDownFails(t *testing.T) {
	store := &fakeStore{errs: map[domain.Collection]error{
		domain.CollectionVariants: errors.New("down"),
		domain.CollectionTrials:   errors.New("down"),
	}}
	engine := testEngine(store, &fakeEmbedder{})

	_, err := engine.Retrieve(context.Background(),
		queriesFor(domain.CollectionVariants, domain.CollectionTrials))
	if !domain.IsKind(err, domain.ErrSourceUnavailable) {
		t.Errorf("error = %v, want SOURCE_UNAVAILABLE", err)
	}
}

func TestRetrieveNoEvidence(t *testing.T) {
	engine := testEngine(&fakeStore{}, &fakeEmbedder{})

	_, err := engine.Retrieve(context.Background(), queriesFor(domain.CollectionVariants))
	if !domain.IsKind(err, domain.ErrNoEvidenceFound) {
		t.Errorf("error = %v, want NO_EVIDENCE_FOUND", err)
	}
}

func TestRetrieveEmptyQueries(t *testing.T) {
	engine := testEngine(&fakeStore{}, &fakeEmbedder{})

	_, err := engine.Retrieve(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidProfile) {
		t.Errorf("error = %v, want INVALID_PROFILE", err)
	}

	_, err = engine.Retrieve(context.Background(), []domain.CollectionQuery{{Text: "q"}})
	if !domain.IsKind(err, domain.ErrInvalidProfile) {
		t.Errorf("queries with no collections: error = %v, want INVALID_PROFILE", err)
	}
}

func TestRetrieveEmbeddingFailureAborts(t *testing.T) {
	engine := testEngine(&fakeStore{}, &fakeEmbedder{err: errors.New("embedding service down")})

	_, err := engine.Retrieve(context.Background(), queriesFor(domain.CollectionVariants))
	if err == nil {
		t.Fatal("embedding failure must abort the batch")
	}
}

func TestRetrieveCapsEvidence(t *testing.T) {
	var hits []domain.SearchHit
	for i := 0; i < 60; i++ {
		hits = append(hits, hit(itemID(i), domain.CollectionLiterature, float64(i)/60.0, domain.TierCaseSeries))
	}
	store := &fakeStore{hits: map[domain.Collection][]domain.SearchHit{
		domain.CollectionLiterature: hits,
	}}
	engine := testEngine(store, &fakeEmbedder{})

	rs, err := engine.Retrieve(context.Background(), queriesFor(domain.CollectionLiterature))
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(rs.Items) != 30 {
		t.Errorf("items = %d, want the 30-item cap", len(rs.Items))
	}
}

func TestRetrieveIsDeterministic(t *testing.T) {
	store := &fakeStore{hits: map[domain.Collection][]domain.SearchHit{
		domain.CollectionVariants: {
			hit("var-a", domain.CollectionVariants, 0.9, domain.TierClinical),
			hit("var-b", domain.CollectionVariants, 0.7, domain.TierGuideline),
		},
		domain.CollectionLiterature: {
			hit("lit-a", domain.CollectionLiterature, 0.8, domain.TierCaseSeries),
			hit("lit-b", domain.CollectionLiterature, 0.6, domain.TierClinical),
		},
		domain.CollectionTrials: {
			hit("tri-a", domain.CollectionTrials, 0.75, domain.TierClinical),
		},
	}}
	engine := testEngine(store, &fakeEmbedder{})
	queries := queriesFor(domain.CollectionVariants, domain.CollectionLiterature, domain.CollectionTrials)

	first, err := engine.Retrieve(context.Background(), queries)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.Retrieve(context.Background(), queries)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if !reflect.DeepEqual(first.Items, again.Items) {
			t.Fatal("identical input must produce identical ordered output")
		}
	}
}

func itemID(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}
