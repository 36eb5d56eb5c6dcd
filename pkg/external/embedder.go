package external

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/onco-evidence-engine/internal/domain"
)

// EmbeddingClient implements domain.Embedder against an OpenAI-compatible
// embedding endpoint, with a circuit breaker and a Redis cache in front.
// Vectors are L2-normalized before use so cosine distance in the store is
// exact.
type EmbeddingClient struct {
	client  *openai.Client
	model   string
	cache   *EmbeddingCache
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewEmbeddingClient creates a new embedding client. The cache is optional;
// a nil cache disables caching without changing behavior.
func NewEmbeddingClient(cfg domain.EmbeddingConfig, cache *EmbeddingCache, logger *logrus.Logger) *EmbeddingClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &EmbeddingClient{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		cache:   cache,
		breaker: newBreaker("embedding", logger),
		log:     logger,
	}
}

// EmbedQuery embeds search text with the query instruction prefix applied.
func (e *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, domain.QueryInstruction+text)
}

// EmbedDocument embeds document text without the query prefix.
func (e *EmbeddingClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

func (e *EmbeddingClient) embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if vector, found, err := e.cache.Get(ctx, text); err == nil && found {
			return vector, nil
		}
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: domain.EmbeddingDim,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embedding response contained no data")
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, e.classify(err)
	}

	vector := result.([]float32)
	if len(vector) != domain.EmbeddingDim {
		return nil, fmt.Errorf("embedding service returned %d dimensions, want %d",
			len(vector), domain.EmbeddingDim)
	}

	vector = normalize(vector)

	if e.cache != nil {
		if err := e.cache.Set(ctx, text, vector); err != nil {
			e.log.WithError(err).Warn("Failed to cache embedding")
		}
	}
	return vector, nil
}

// classify maps transport failures onto the pipeline's error kinds.
func (e *EmbeddingClient) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewAnalysisError(domain.ErrDownstreamTimeout,
			"embedding service timed out", err.Error())
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewAnalysisError(domain.ErrSourceUnavailable,
			"embedding service circuit open", err.Error())
	}
	return fmt.Errorf("embedding service: %w", err)
}

// normalize scales a vector to unit length. Cosine ordering in the store
// assumes unit vectors on both sides.
func normalize(vector []float32) []float32 {
	var magnitude float64
	for _, v := range vector {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vector
	}

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
