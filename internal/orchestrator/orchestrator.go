// Package orchestrator drives a case analysis through its lifecycle:
// validation, query expansion, retrieval, concurrent ranking and trial
// matching, and packet assembly, with progress events at every transition.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/internal/expansion"
	"github.com/onco-evidence-engine/internal/metrics"
	"github.com/onco-evidence-engine/internal/ranking"
	"github.com/onco-evidence-engine/internal/report"
	"github.com/onco-evidence-engine/internal/retrieval"
	"github.com/onco-evidence-engine/internal/trials"
)

const (
	resultCacheSize = 128
	eventBufferSize = 64
)

// Result is a completed analysis with its assembled packet.
type Result struct {
	Analysis *domain.CaseAnalysis
	Packet   *domain.MTBPacket
}

// Orchestrator runs the full pipeline. The result cache is keyed by
// profile fingerprint; determinism of the pipeline makes replaying a cached
// result indistinguishable from recomputing it.
type Orchestrator struct {
	expander  *expansion.Expander
	retriever *retrieval.Engine
	matcher   *trials.Matcher
	ranker    *ranking.Ranker
	reporter  *report.Builder
	reasoner  domain.Reasoner
	audit     domain.AuditStore
	metrics   *metrics.Collector
	cache     *lru.Cache[string, Result]
	log       *logrus.Logger

	subMutex    sync.RWMutex
	subscribers map[int]chan domain.ProgressEvent
	nextSubID   int
}

// New creates a new orchestrator. The reasoner and audit store are
// optional; a nil reasoner skips narrative synthesis and a nil audit store
// skips persistence.
func New(
	expander *expansion.Expander,
	retriever *retrieval.Engine,
	matcher *trials.Matcher,
	ranker *ranking.Ranker,
	reporter *report.Builder,
	reasoner domain.Reasoner,
	auditStore domain.AuditStore,
	collector *metrics.Collector,
	logger *logrus.Logger,
) (*Orchestrator, error) {
	cache, err := lru.New[string, Result](resultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating result cache: %w", err)
	}
	return &Orchestrator{
		expander:    expander,
		retriever:   retriever,
		matcher:     matcher,
		ranker:      ranker,
		reporter:    reporter,
		reasoner:    reasoner,
		audit:       auditStore,
		metrics:     collector,
		cache:       cache,
		log:         logger,
		subscribers: make(map[int]chan domain.ProgressEvent),
	}, nil
}

// Subscribe registers a progress event listener. The returned cancel
// function must be called to release the subscription.
func (o *Orchestrator) Subscribe() (<-chan domain.ProgressEvent, func()) {
	o.subMutex.Lock()
	id := o.nextSubID
	o.nextSubID++
	ch := make(chan domain.ProgressEvent, eventBufferSize)
	o.subscribers[id] = ch
	o.subMutex.Unlock()

	return ch, func() {
		o.subMutex.Lock()
		if sub, ok := o.subscribers[id]; ok {
			delete(o.subscribers, id)
			close(sub)
		}
		o.subMutex.Unlock()
	}
}

// Analyze runs the pipeline for one profile. Partial retrieval degradation
// is carried into the result; only validation failures, total source
// failure, and empty evidence fail the analysis.
func (o *Orchestrator) Analyze(ctx context.Context, profile domain.PatientProfile) (Result, error) {
	defer o.metrics.Timer("analysis")()
	o.metrics.Inc("analyses_started")

	analysis := &domain.CaseAnalysis{
		ID:          uuid.NewString(),
		Fingerprint: profile.Fingerprint(),
		Profile:     profile,
		State:       domain.StateCreated,
		CreatedAt:   time.Now().UTC(),
	}
	if err := profile.Validate(); err != nil {
		o.emit(analysis, domain.StateCreated, "")
		return Result{}, o.fail(ctx, analysis, domain.NewAnalysisError(
			domain.ErrInvalidProfile, "invalid patient profile", err.Error()))
	}

	// Identical profiles produce identical analyses, so a completed run
	// can be replayed from cache without touching the store. The cache is
	// consulted before CREATED fires: a replay emits no events, so
	// subscribers never see a case id without a terminal state.
	if cached, ok := o.cache.Get(analysis.Fingerprint); ok {
		o.metrics.Inc("analysis_cache_hits")
		o.log.WithFields(logrus.Fields{
			"case_id":     cached.Analysis.ID,
			"fingerprint": analysis.Fingerprint,
		}).Info("Returning cached analysis for identical profile")
		return cached, nil
	}
	o.emit(analysis, domain.StateCreated, "")

	o.transition(ctx, analysis, domain.StateExpanding, "")
	queries := o.expander.Expand(&profile)
	o.metrics.Add("queries_expanded", int64(len(queries)))

	o.transition(ctx, analysis, domain.StateRetrieving, fmt.Sprintf("%d queries", len(queries)))
	stopRetrieval := o.metrics.Timer("retrieval")
	resultSet, err := o.retriever.Retrieve(ctx, queries)
	stopRetrieval()
	if err != nil {
		if !domain.IsKind(err, domain.ErrNoEvidenceFound) {
			return Result{}, o.fail(ctx, analysis, err)
		}
		// Zero matching evidence is a reportable outcome, not a failure:
		// the analysis still assembles, with empty ranked lists and the
		// gaps surfaced as open questions.
		o.metrics.Inc("analyses_no_evidence")
		o.log.WithField("case_id", analysis.ID).Warn("No evidence matched the profile")
		resultSet = &domain.ResultSet{QueryCount: len(queries)}
	}
	analysis.Evidence = resultSet.Items
	analysis.UnavailableSources = resultSet.UnavailableSources

	// Ranking and matching run concurrently. Matching feeds its result to
	// ranking over a channel; the dependency is strictly one-way.
	o.transition(ctx, analysis, domain.StateRanking,
		fmt.Sprintf("%d evidence items, ranking and matching concurrently", len(resultSet.Items)))

	matchCh := make(chan *domain.MatchResult, 1)
	go func() {
		defer o.metrics.Timer("trial_matching")()
		matchCh <- o.matcher.Match(&profile, resultSet.Items)
	}()

	var (
		matchResult *domain.MatchResult
		ranked      []domain.RankedTherapy
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer o.metrics.Timer("therapy_ranking")()
		matchResult = <-matchCh
		ranked = o.ranker.Rank(&profile, resultSet.Items, matchResult)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{}, o.fail(ctx, analysis, domain.NewAnalysisError(
			domain.ErrDownstreamTimeout, "analysis canceled during ranking", ctx.Err().Error()))
	}

	o.transition(ctx, analysis, domain.StateMatching,
		fmt.Sprintf("%d trial matches, %d excluded", len(matchResult.Matches), len(matchResult.Excluded)))

	analysis.Therapies = ranked
	analysis.Trials = matchResult.Matches
	analysis.ExcludedTrials = matchResult.Excluded

	packet := o.reporter.Build(analysis)
	o.attachNarrative(ctx, analysis, packet)

	analysis.CompletedAt = time.Now().UTC()
	o.transition(ctx, analysis, domain.StateAssembled,
		fmt.Sprintf("%d therapies, %d trials, %d sources unavailable",
			len(analysis.Therapies), len(analysis.Trials), len(analysis.UnavailableSources)))

	o.persist(ctx, analysis)
	result := Result{Analysis: analysis, Packet: packet}
	o.cache.Add(analysis.Fingerprint, result)
	o.metrics.Inc("analyses_completed")
	return result, nil
}

// GetAnalysis loads a persisted analysis by id.
func (o *Orchestrator) GetAnalysis(ctx context.Context, id string) (*domain.CaseAnalysis, error) {
	if o.audit == nil {
		return nil, nil
	}
	return o.audit.GetAnalysis(ctx, id)
}

// attachNarrative asks the reasoning backbone for prose over the packet.
// Backbone failure degrades the packet to numbers-only; it never fails the
// analysis.
func (o *Orchestrator) attachNarrative(ctx context.Context, analysis *domain.CaseAnalysis, packet *domain.MTBPacket) {
	if o.reasoner == nil {
		return
	}
	defer o.metrics.Timer("narrative")()

	narrative, err := o.reasoner.Summarize(ctx, packet)
	if err != nil {
		o.metrics.Inc("narrative_failures")
		o.log.WithFields(logrus.Fields{
			"case_id": analysis.ID,
			"error":   err.Error(),
		}).Warn("Narrative synthesis failed, assembling packet without narrative")
		return
	}
	analysis.Narrative = narrative
	packet.Narrative = narrative
}

// transition moves the analysis to the next state and emits the event.
// An illegal transition is a programming error; it is logged and the
// state left untouched rather than corrupting the lifecycle.
func (o *Orchestrator) transition(ctx context.Context, analysis *domain.CaseAnalysis, next domain.AnalysisState, detail string) {
	if !analysis.State.CanTransitionTo(next) {
		o.log.WithFields(logrus.Fields{
			"case_id": analysis.ID,
			"from":    analysis.State.String(),
			"to":      next.String(),
		}).Error("Illegal state transition attempted")
		return
	}
	analysis.State = next
	o.emit(analysis, next, detail)
	o.persistEvent(ctx, domain.ProgressEvent{
		CaseID:    analysis.ID,
		State:     next,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// fail marks the analysis FAILED, records the error, and returns it.
func (o *Orchestrator) fail(ctx context.Context, analysis *domain.CaseAnalysis, err error) error {
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) {
		ae = domain.NewAnalysisError(domain.ErrInternal, "analysis failed", err.Error())
	}
	ae.CaseID = analysis.ID

	analysis.State = domain.StateFailed
	analysis.Error = ae
	analysis.CompletedAt = time.Now().UTC()

	o.metrics.Inc("analyses_failed")
	o.emit(analysis, domain.StateFailed, ae.Kind)
	o.persistEvent(ctx, domain.ProgressEvent{
		CaseID:    analysis.ID,
		State:     domain.StateFailed,
		Detail:    ae.Kind,
		Timestamp: time.Now().UTC(),
	})
	o.persist(ctx, analysis)

	o.log.WithFields(logrus.Fields{
		"case_id": analysis.ID,
		"kind":    ae.Kind,
		"message": ae.Message,
	}).Error("Case analysis failed")
	return ae
}

// emit fans an event out to subscribers without blocking the pipeline.
// A subscriber with a full buffer loses the event and a warning is logged.
func (o *Orchestrator) emit(analysis *domain.CaseAnalysis, state domain.AnalysisState, detail string) {
	event := domain.ProgressEvent{
		CaseID:    analysis.ID,
		State:     state,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}

	o.subMutex.RLock()
	defer o.subMutex.RUnlock()
	for id, ch := range o.subscribers {
		select {
		case ch <- event:
		default:
			o.log.WithFields(logrus.Fields{
				"subscriber": id,
				"case_id":    event.CaseID,
				"state":      event.State.String(),
			}).Warn("Dropping progress event for slow subscriber")
		}
	}
}

func (o *Orchestrator) persist(ctx context.Context, analysis *domain.CaseAnalysis) {
	if o.audit == nil {
		return
	}
	if err := o.audit.SaveAnalysis(ctx, analysis); err != nil {
		o.log.WithError(err).WithField("case_id", analysis.ID).Warn("Failed to persist analysis")
	}
}

func (o *Orchestrator) persistEvent(ctx context.Context, event domain.ProgressEvent) {
	if o.audit == nil {
		return
	}
	if err := o.audit.SaveEvent(ctx, event); err != nil {
		o.log.WithError(err).WithField("case_id", event.CaseID).Warn("Failed to persist progress event")
	}
}
