package router

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"heatgrid/pkg/apperror"
	"heatgrid/pkg/domain"
)

// =============================================================================
// Shortest-Path Router
// =============================================================================
//
// The router computes one path per connected asset, from the source node to
// the asset's service connection. All paths come from a single Dijkstra run:
// one source, many sinks, so running the search per asset would only repeat
// identical work.
//
// Path reconstruction (walking the predecessor chain per asset) is
// independent per asset and runs on a worker pool over the frozen, read-only
// graph. Workers write into per-asset slots, so the merged result is ordered
// by asset id regardless of scheduling.
//
// An asset whose connection node is unreachable from the source yields a
// routing failure diagnostic, not an error: the remaining assets still get
// their paths.
// =============================================================================

// Options configures the router.
type Options struct {
	// MaxWorkers caps the reconstruction worker pool. Zero or negative
	// means one worker per CPU.
	MaxWorkers int
}

// RouteResult holds the per-asset paths and failures of one routing pass.
type RouteResult struct {
	// Paths are the successfully routed assets, ordered by asset id.
	Paths []*domain.RoutedPath

	// Distances is the full single-source distance map.
	Distances map[int64]float64

	// Diagnostics lists assets that could not be routed, ordered by asset id.
	Diagnostics []*domain.Diagnostic
}

// Router routes assets over a frozen network.
type Router struct {
	opts Options
}

// New creates a router.
func New(opts Options) *Router {
	return &Router{opts: opts}
}

// routeSlot is the outcome for one connection, filled by a pool worker.
type routeSlot struct {
	path *domain.RoutedPath
	diag *domain.Diagnostic
}

// Route runs Dijkstra from the source once and reconstructs one path per
// connection. The network must be frozen; connections must be sorted by
// asset id (the snapper's output contract).
func (r *Router) Route(ctx context.Context, net *domain.Network, source *domain.ServiceConnection, connections []*domain.ServiceConnection) (*RouteResult, error) {
	if net == nil || source == nil {
		return nil, apperror.ErrNilNetwork
	}
	if !net.Frozen() {
		return nil, apperror.New(apperror.CodeInternal, "routing requires a frozen network")
	}

	search := DijkstraWithContext(ctx, net, source.NodeID)
	if search.Canceled {
		return nil, apperror.FromContextErr(ctx.Err())
	}

	result := &RouteResult{Distances: search.Distances}
	if len(connections) == 0 {
		return result, nil
	}

	slots := make([]routeSlot, len(connections))
	workers := r.workerCount(len(connections))

	tasks := make(chan int, len(connections))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				select {
				case <-ctx.Done():
					return
				default:
				}
				slots[idx] = r.reconstruct(net, search, source.NodeID, connections[idx])
			}
		}()
	}

	for i := range connections {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, apperror.FromContextErr(ctx.Err())
	}

	// Slots are ordered by asset id already; split them into paths and
	// failures.
	for _, slot := range slots {
		if slot.path != nil {
			result.Paths = append(result.Paths, slot.path)
		}
		if slot.diag != nil {
			result.Diagnostics = append(result.Diagnostics, slot.diag)
		}
	}

	return result, nil
}

// reconstruct walks the predecessor chain for one connection.
func (r *Router) reconstruct(net *domain.Network, search *Result, sourceID int64, conn *domain.ServiceConnection) routeSlot {
	dist, ok := search.Distances[conn.NodeID]
	if !ok || dist == domain.Infinity {
		return routeSlot{diag: &domain.Diagnostic{
			AssetID: conn.AssetID,
			Code:    string(apperror.CodeRoutingFailed),
			Message: fmt.Sprintf("node %d is unreachable from the source", conn.NodeID),
		}}
	}

	nodes := domain.ReconstructPath(search.Parent, sourceID, conn.NodeID)
	if nodes == nil {
		return routeSlot{diag: &domain.Diagnostic{
			AssetID: conn.AssetID,
			Code:    string(apperror.CodeRoutingFailed),
			Message: fmt.Sprintf("predecessor chain to node %d is broken", conn.NodeID),
		}}
	}

	return routeSlot{path: &domain.RoutedPath{
		AssetID: conn.AssetID,
		Nodes:   nodes,
		Length:  dist,
	}}
}

func (r *Router) workerCount(taskCount int) int {
	workers := runtime.NumCPU()
	if r.opts.MaxWorkers > 0 && r.opts.MaxWorkers < workers {
		workers = r.opts.MaxWorkers
	}
	if workers > taskCount {
		workers = taskCount
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
