package external

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/onco-evidence-engine/internal/domain"
)

const narrativeSystemPrompt = "You are drafting the narrative section of a molecular tumor board " +
	"packet. Summarize the provided rankings and trial matches in clinical prose. Cite evidence " +
	"by the bracketed citation indexes given. Do not introduce therapies, trials, or claims that " +
	"are not in the input; all scores and rankings are final."

// ReasoningClient implements domain.Reasoner on the Anthropic API. It only
// writes prose over the computed rankings; it never changes a score.
type ReasoningClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	breaker   *gobreaker.CircuitBreaker
	log       *logrus.Logger
}

// NewReasoningClient creates a new narrative synthesis client.
func NewReasoningClient(cfg domain.ReasoningConfig, logger *logrus.Logger) *ReasoningClient {
	return &ReasoningClient{
		client:    anthropic.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		breaker:   newBreaker("reasoning", logger),
		log:       logger,
	}
}

// Summarize produces the packet narrative. Timeouts surface as
// DOWNSTREAM_TIMEOUT so the orchestrator can degrade to a packet without
// narrative instead of failing the analysis.
func (r *ReasoningClient) Summarize(ctx context.Context, packet *domain.MTBPacket) (string, error) {
	prompt := buildNarrativePrompt(packet)

	result, err := r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(r.model),
			System:    narrativeSystemPrompt,
			MaxTokens: r.maxTokens,
			Messages: []anthropic.Message{
				{
					Role: anthropic.RoleUser,
					Content: []anthropic.MessageContent{
						anthropic.NewTextMessageContent(prompt),
					},
				},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Content) == 0 || resp.Content[0].Text == nil {
			return nil, fmt.Errorf("empty narrative response")
		}
		return *resp.Content[0].Text, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.NewAnalysisError(domain.ErrDownstreamTimeout,
				"reasoning backbone timed out", err.Error())
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", domain.NewAnalysisError(domain.ErrSourceUnavailable,
				"reasoning backbone circuit open", err.Error())
		}
		return "", fmt.Errorf("reasoning backbone: %w", err)
	}
	return result.(string), nil
}

// buildNarrativePrompt serializes the quantitative packet content for the
// model. Citation indexes let the narrative reference provenance without
// inventing identifiers.
func buildNarrativePrompt(packet *domain.MTBPacket) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Cancer type: %s\n\nVariants:\n", packet.CancerType)
	for _, v := range packet.VariantTable {
		fmt.Fprintf(&sb, "- %s\n", v.Label())
	}

	sb.WriteString("\nTherapy ranking (composite, components fixed):\n")
	for i, t := range packet.TherapyRanking {
		fmt.Fprintf(&sb, "%d. %s (composite %.3f, tier %d", i+1, t.Therapy, t.Composite, t.BestTier)
		if t.Contraindicated {
			sb.WriteString(", contraindicated")
		}
		sb.WriteString(")\n")
		for _, flag := range t.ResistanceFlags {
			fmt.Fprintf(&sb, "   resistance: %s\n", flag)
		}
	}

	sb.WriteString("\nTrial matches:\n")
	for _, m := range packet.TrialMatches {
		fmt.Fprintf(&sb, "- %s %s %s (eligibility confidence %.2f", m.NCTID, m.Phase, m.Status, m.EligibilityConfidence)
		if len(m.Unevaluable) > 0 {
			fmt.Fprintf(&sb, ", unevaluable: %s", strings.Join(m.Unevaluable, "; "))
		}
		sb.WriteString(")\n")
	}

	sb.WriteString("\nCitations:\n")
	for _, c := range packet.Citations {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", c.Index, c.Citation.Identifier, c.Citation.SourceName)
	}

	if len(packet.UnavailableSources) > 0 {
		names := make([]string, 0, len(packet.UnavailableSources))
		for _, c := range packet.UnavailableSources {
			names = append(names, c.String())
		}
		fmt.Fprintf(&sb, "\nNote: collections unavailable during retrieval: %s\n", strings.Join(names, ", "))
	}

	return sb.String()
}
