package router

import (
	"container/heap"
	"context"

	"heatgrid/pkg/domain"
)

// =============================================================================
// Dijkstra's Algorithm
// =============================================================================
//
// Single-source shortest paths over the street network. Edge weights are
// street lengths and therefore non-negative, so plain Dijkstra is exact.
//
// Time Complexity: O((V + E) log V) with binary heap
// Space Complexity: O(V)
//
// Determinism: the run is fully deterministic for a given graph. Neighbors
// are visited in ascending node id order (the network sorts adjacency on
// freeze), the heap breaks distance ties by node id, and a relaxation must
// improve the distance by more than Epsilon to replace a predecessor. Equal
// cost paths therefore always resolve to the same predecessor chain.
// =============================================================================

// Result contains the outcome of a single-source run.
type Result struct {
	// Distances maps each node to its shortest distance from the source.
	// Unreachable nodes keep domain.Infinity.
	Distances map[int64]float64

	// Parent maps each node to its predecessor on the shortest path.
	Parent map[int64]int64

	// Canceled indicates whether the run was interrupted via context.
	Canceled bool
}

// priorityQueueItem represents an element in the priority queue.
type priorityQueueItem struct {
	node     int64
	distance float64
	index    int
}

// priorityQueue implements heap.Interface.
// It is a min-heap based on distance, with tie-breaking by node id.
type priorityQueue []*priorityQueueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].distance != pq[j].distance {
		return pq[i].distance < pq[j].distance
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*priorityQueueItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // Avoid memory leak
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// Dijkstra executes the algorithm without cancellation support.
func Dijkstra(net *domain.Network, source int64) *Result {
	return DijkstraWithContext(context.Background(), net, source)
}

// DijkstraWithContext executes the algorithm with periodic context checks.
func DijkstraWithContext(ctx context.Context, net *domain.Network, source int64) *Result {
	nodes := net.SortedNodeIDs()

	dist := make(map[int64]float64, len(nodes))
	parent := make(map[int64]int64, len(nodes))

	for _, node := range nodes {
		dist[node] = domain.Infinity
		parent[node] = -1
	}
	dist[source] = 0

	pq := make(priorityQueue, 0, len(nodes))
	heap.Init(&pq)
	heap.Push(&pq, &priorityQueueItem{
		node:     source,
		distance: 0,
	})

	const checkInterval = 100
	iterations := 0

	for pq.Len() > 0 {
		// Periodic context check
		if iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return &Result{
					Distances: dist,
					Parent:    parent,
					Canceled:  true,
				}
			default:
			}
		}
		iterations++

		current := heap.Pop(&pq).(*priorityQueueItem)
		u := current.node

		// Skip stale entries (already processed with a better distance)
		if current.distance > dist[u]+domain.Epsilon {
			continue
		}

		for _, v := range net.Neighbors(u) {
			edge, ok := net.Edge(u, v)
			if !ok {
				continue
			}

			newDist := dist[u] + edge.Length

			if newDist < dist[v]-domain.Epsilon {
				dist[v] = newDist
				parent[v] = u
				heap.Push(&pq, &priorityQueueItem{
					node:     v,
					distance: newDist,
				})
			}
		}
	}

	return &Result{
		Distances: dist,
		Parent:    parent,
		Canceled:  false,
	}
}
