package advisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leengari/query-advisor/internal/config"
	"github.com/leengari/query-advisor/internal/domain/query"
	"github.com/leengari/query-advisor/internal/plan"
	"github.com/leengari/query-advisor/internal/planner"
	"github.com/leengari/query-advisor/internal/stats"
)

// Analyzer runs whole-query analyses against the statistics store.
// One analysis is a pure, synchronous computation over an immutable
// snapshot; analyzers are safe for concurrent use and analyses running in
// parallel share one read-only snapshot each.
type Analyzer struct {
	cfg       *config.Config
	store     *stats.Store
	model     *planner.CostModel
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
}

// NewAnalyzer creates an analyzer with the given configuration.
func NewAnalyzer(cfg *config.Config, store *stats.Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		cfg:    cfg,
		store:  store,
		model:  planner.NewCostModel(cfg),
		logger: logger,
		tracer: otel.Tracer("query-advisor"),
	}
}

// AddObserver subscribes an observer to analysis lifecycle events.
// Not safe to call concurrently with Analyze.
func (a *Analyzer) AddObserver(obs Observer) {
	a.observers = append(a.observers, obs)
}

// Analyze plans the query over the current statistics snapshot and builds
// the advisory report. Unknown tables or columns abort the analysis with
// a typed error; every other failure is downgraded to a recorded finding.
func (a *Analyzer) Analyze(ctx context.Context, q *query.Query) (*Report, error) {
	id := uuid.NewString()
	started := time.Now()

	ctx, span := a.tracer.Start(ctx, "advisor.analyze",
		trace.WithAttributes(
			attribute.String("analysis.id", id),
			attribute.Int("query.tables", len(q.Tables)),
			attribute.Int("query.joins", len(q.Joins)),
		))
	defer span.End()

	a.notify(Event{Type: EventAnalyzeStart, AnalysisID: id, Timestamp: started, Data: len(q.Tables)})

	snap := a.store.Snapshot()

	a.notify(Event{Type: EventPlanStart, AnalysisID: id, Timestamp: time.Now()})
	pl := planner.New(a.model, snap, a.cfg.MaxJoinSteps, a.logger)
	res, err := pl.PlanQuery(ctx, q)
	if err != nil {
		span.RecordError(err)
		a.logger.Error("analysis failed",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	a.notify(Event{Type: EventPlanEnd, AnalysisID: id, Timestamp: time.Now(), Data: res.Root.NodeType()})

	a.notify(Event{Type: EventReportStart, AnalysisID: id, Timestamp: time.Now()})
	findings := buildFindings(snap, q, res, a.cfg.StatsStaleAfter, started)
	report := &Report{
		ID:        id,
		CreatedAt: started,
		PlanText:  plan.PrintTree(res.Root),
		Cost:      res.Root.Cost(),
		Rows:      res.Root.Rows(),
		Findings:  findings,
		Truncated: res.Truncated,
		Root:      res.Root,
		Result:    res,
	}
	a.notify(Event{Type: EventReportEnd, AnalysisID: id, Timestamp: time.Now(), Data: len(findings)})

	span.SetAttributes(
		attribute.Int("report.findings", len(findings)),
		attribute.Bool("report.truncated", res.Truncated),
	)

	a.logger.Info("analysis complete",
		slog.String("analysis_id", id),
		slog.String("root", res.Root.NodeType()),
		slog.Int("scan_count", len(plan.Scans(res.Root))),
		slog.Float64("estimated_cost", report.Cost),
		slog.Int("finding_count", len(findings)),
		slog.Duration("elapsed", time.Since(started)),
	)

	a.notify(Event{Type: EventAnalyzeEnd, AnalysisID: id, Timestamp: time.Now()})

	return report, nil
}

func (a *Analyzer) notify(event Event) {
	for _, obs := range a.observers {
		obs.OnEvent(event)
	}
}
