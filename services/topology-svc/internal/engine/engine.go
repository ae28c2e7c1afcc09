package engine

import (
	"context"
	"sort"
	"time"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
	"heatgrid/services/topology-svc/internal/builder"
	"heatgrid/services/topology-svc/internal/router"
	"heatgrid/services/topology-svc/internal/snapper"
	"heatgrid/services/topology-svc/internal/synth"
	"heatgrid/services/topology-svc/internal/validators"
)

// =============================================================================
// PIPELINE ENGINE
// =============================================================================
// Run drives a plan request through the full pipeline:
//
//	validate -> build graph -> snap assets -> freeze -> route -> synthesize
//	-> aggregate
//
// The first three stages mutate the network single-threaded; Freeze flips it
// read-only before the parallel routing stage. Validation, connectivity and
// source-snap problems abort the run. Per-asset snap and routing failures do
// not: they are carried through as diagnostics and the run completes with
// whatever assets remain.
//
// Between routing and synthesis sits the one coarse cancellation point. A
// request canceled mid-routing is also caught there, so synthesis never runs
// on a canceled context.
//
// The engine performs no I/O. Everything it needs arrives in the request and
// everything it produces is in the result.
// =============================================================================

// Engine executes topology plans.
type Engine struct{}

// New creates an engine.
func New() *Engine {
	return &Engine{}
}

// Run executes one plan request and returns the full topology result.
func (e *Engine) Run(ctx context.Context, req *domain.PlanRequest) (*domain.TopologyResult, error) {
	start := time.Now()

	if verrs := validators.ValidatePlan(req); !verrs.IsValid() {
		return nil, verrs.AsError()
	}

	source, ok := req.Source()
	if !ok {
		return nil, apperror.ErrMissingSource
	}
	consumers := req.Consumers()

	b, err := builder.New(builder.Options{
		QuantizeTolerance: req.Options.QuantizeTolerance,
		MaxBridgeDistance: req.Options.MaxBridgeDistance,
	})
	if err != nil {
		return nil, err
	}
	buildRes, err := b.Build(req.Streets)
	if err != nil {
		return nil, err
	}
	net := buildRes.Network

	snapRes, err := snapper.New(snapper.Options{
		MaxSnapDistance: req.Options.MaxSnapDistance,
	}).Snap(net, req.Streets, source, consumers)
	if err != nil {
		return nil, err
	}

	net.Freeze()

	routeRes, err := router.New(router.Options{
		MaxWorkers: req.Options.MaxRouteWorkers,
	}).Route(ctx, net, snapRes.Source, snapRes.Connections)
	if err != nil {
		return nil, err
	}

	// Cancellation point: do not start synthesis on a dead context.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, apperror.FromContextErr(ctxErr)
	}

	syn, err := synth.New(synth.Options{
		SupplyTemperatureC: req.Options.SupplyTemperatureC,
		ReturnTemperatureC: req.Options.ReturnTemperatureC,
		DemandAttachment:   synth.DemandAttachment(req.Options.DemandAttachment),
	})
	if err != nil {
		return nil, err
	}
	pipes, err := syn.Synthesize(net, snapRes.Connections, routeRes.Paths)
	if err != nil {
		return nil, err
	}

	diagnostics := mergeDiagnostics(snapRes.Diagnostics, routeRes.Diagnostics)

	stats := synth.CalculateStats(synth.StatsInput{
		Network:        net,
		Assets:         consumers,
		Connections:    snapRes.Connections,
		Paths:          routeRes.Paths,
		Pipes:          pipes,
		Diagnostics:    diagnostics,
		ComponentCount: buildRes.ComponentCount,
		BridgeCount:    len(buildRes.Bridges),
	})

	return &domain.TopologyResult{
		Network:     net,
		Source:      snapRes.Source,
		Connections: snapRes.Connections,
		Paths:       routeRes.Paths,
		Pipes:       pipes,
		Stats:       stats,
		Diagnostics: diagnostics,
		Duration:    time.Since(start),
	}, nil
}

// mergeDiagnostics combines snap and routing failures into one list ordered
// by asset id. An asset fails at most one stage, so ids do not repeat.
func mergeDiagnostics(snap, route []*domain.Diagnostic) []*domain.Diagnostic {
	if len(snap) == 0 && len(route) == 0 {
		return nil
	}
	merged := make([]*domain.Diagnostic, 0, len(snap)+len(route))
	merged = append(merged, snap...)
	merged = append(merged, route...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].AssetID < merged[j].AssetID
	})
	return merged
}
