package services_benchmark

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"heatgrid/pkg/client"
	topologysvc "heatgrid/services/topology-svc"
)

var (
	server *httptest.Server
	cli    *client.TopologyClient
)

// init initializes an in-memory HTTP server for benchmarks
func init() {
	server = httptest.NewServer(topologysvc.NewBenchmarkHandler())

	cli = client.NewTopologyClient(&client.TopologyClientConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Minute,
	})

	// Smoke request: fail fast if the stack is miswired
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cli.CreatePlan(ctx, generateLinePlan(2, 1)); err != nil {
		log.Fatalf("benchmark server failed smoke request: %v", err)
	}
}

// =============================================================================
// PLAN GENERATORS
// =============================================================================

// generateGridPlan creates an NxN street grid with one plant and the given
// number of consumers spread deterministically over the blocks.
// Grid plans exercise quantization, junction merging and branchy routing.
func generateGridPlan(n, consumers int) *client.PlanRequest {
	r := rand.New(rand.NewSource(42))
	const block = 100.0

	var streets []client.Street
	for i := 0; i <= n; i++ {
		for j := 0; j < n; j++ {
			y := float64(i) * block
			x := float64(j) * block
			// Horizontal block edge
			streets = append(streets, client.Street{
				ID:     fmt.Sprintf("h-%d-%d", i, j),
				Points: []orb.Point{{x, y}, {x + block, y}},
			})
			// Vertical block edge (axes swapped)
			streets = append(streets, client.Street{
				ID:     fmt.Sprintf("v-%d-%d", i, j),
				Points: []orb.Point{{y, x}, {y, x + block}},
			})
		}
	}

	assets := []client.Asset{
		{ID: "plant", Kind: "source", Point: orb.Point{3, 5}},
	}
	for c := 0; c < consumers; c++ {
		x := float64(r.Intn(n))*block + 20 + float64(r.Intn(60))
		y := float64(r.Intn(n+1)) * block
		assets = append(assets, client.Asset{
			ID:       fmt.Sprintf("consumer-%d", c),
			Kind:     "consumer",
			Point:    orb.Point{x, y + 7},
			DemandKW: float64(r.Intn(90) + 10),
		})
	}

	return &client.PlanRequest{
		Name:    fmt.Sprintf("bench-grid-%dx%d", n, n),
		Streets: streets,
		Assets:  assets,
	}
}

// generateLinePlan creates a single street chain along the X axis.
// Line plans represent the simplest case with one path per consumer.
func generateLinePlan(streets, consumers int) *client.PlanRequest {
	req := &client.PlanRequest{
		Name:    fmt.Sprintf("bench-line-%d", streets),
		Streets: make([]client.Street, streets),
	}

	for i := 0; i < streets; i++ {
		x := float64(i) * 100
		req.Streets[i] = client.Street{
			ID:     fmt.Sprintf("s-%d", i),
			Points: []orb.Point{{x, 0}, {x + 100, 0}},
		}
	}

	req.Assets = append(req.Assets, client.Asset{
		ID: "plant", Kind: "source", Point: orb.Point{0, 5},
	})
	for c := 0; c < consumers; c++ {
		x := float64(c+1) * float64(streets) * 100 / float64(consumers+1)
		req.Assets = append(req.Assets, client.Asset{
			ID:       fmt.Sprintf("consumer-%d", c),
			Kind:     "consumer",
			Point:    orb.Point{x, 8},
			DemandKW: 25,
		})
	}

	return req
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkCreatePlan_Grid(b *testing.B) {
	sizes := []int{3, 5, 10, 15}

	for _, n := range sizes {
		req := generateGridPlan(n, n*2)
		b.Run(fmt.Sprintf("grid_%dx%d", n, n), func(b *testing.B) {
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := cli.CreatePlan(ctx, req); err != nil {
					b.Fatalf("CreatePlan failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkCreatePlan_Line(b *testing.B) {
	sizes := []int{100, 500, 1000}

	for _, n := range sizes {
		req := generateLinePlan(n, 20)
		b.Run(fmt.Sprintf("streets_%d", n), func(b *testing.B) {
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := cli.CreatePlan(ctx, req); err != nil {
					b.Fatalf("CreatePlan failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkCreatePlan_ConsumerScaling(b *testing.B) {
	counts := []int{10, 50, 200}

	for _, consumers := range counts {
		req := generateGridPlan(10, consumers)
		b.Run(fmt.Sprintf("consumers_%d", consumers), func(b *testing.B) {
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := cli.CreatePlan(ctx, req); err != nil {
					b.Fatalf("CreatePlan failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkCreatePlan_Parallel(b *testing.B) {
	req := generateGridPlan(5, 10)

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := cli.CreatePlan(ctx, req); err != nil {
				b.Fatalf("CreatePlan failed: %v", err)
			}
		}
	})
}

func BenchmarkValidatePlan(b *testing.B) {
	sizes := []int{100, 1000}

	for _, n := range sizes {
		req := generateLinePlan(n, 20)
		b.Run(fmt.Sprintf("streets_%d", n), func(b *testing.B) {
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := cli.ValidatePlan(ctx, req); err != nil {
					b.Fatalf("ValidatePlan failed: %v", err)
				}
			}
		})
	}
}
