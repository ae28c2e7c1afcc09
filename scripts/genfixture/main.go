// Command genfixture generates synthetic plan-request fixtures for
// topology-svc: a street grid with one heat source and a set of consumers.
//
// The output is either a request body for POST /v1/plans (-format request)
// or a GeoJSON FeatureCollection of the same input for map preview
// (-format geojson).
//
// Usage:
//
//	go run scripts/genfixture/main.go -grid 10 -consumers 40 -out fixture.json
//	go run scripts/genfixture/main.go -format geojson -out fixture.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Street mirrors the request schema of topology-svc.
type Street struct {
	ID       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Category string      `json:"category,omitempty"`
	Points   []orb.Point `json:"points"`
}

// Asset mirrors the request schema of topology-svc.
type Asset struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Kind     string    `json:"kind"`
	Point    orb.Point `json:"point"`
	DemandKW float64   `json:"demand_kw,omitempty"`
}

// PlanRequest is the body for POST /v1/plans.
type PlanRequest struct {
	Name    string   `json:"name"`
	Streets []Street `json:"streets"`
	Assets  []Asset  `json:"assets"`
}

var categories = []string{"primary", "secondary", "residential", "service"}

func main() {
	var (
		grid      = flag.Int("grid", 10, "grid dimension (NxN blocks)")
		consumers = flag.Int("consumers", 40, "number of consumer assets")
		block     = flag.Float64("block", 100, "block edge length in meters")
		seed      = flag.Int64("seed", 42, "random seed")
		dropEvery = flag.Int("drop-every", 0, "drop every k-th street to create gaps (0 = keep all)")
		format    = flag.String("format", "request", "output format: request, geojson")
		out       = flag.String("out", "", "output file (default: stdout)")
	)
	flag.Parse()

	req := generate(*grid, *consumers, *block, *seed, *dropEvery)

	var (
		data []byte
		err  error
	)
	switch *format {
	case "request":
		data, err = json.MarshalIndent(req, "", "  ")
	case "geojson":
		data, err = toGeoJSON(req)
	default:
		fmt.Fprintf(os.Stderr, "unknown format: %s\n", *format)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: %d streets, %d assets\n", *out, len(req.Streets), len(req.Assets))
}

// generate builds an NxN street grid. Consumers are placed a few meters off
// the street lines; the plant sits near the south-west corner.
func generate(n, consumers int, block float64, seed int64, dropEvery int) *PlanRequest {
	r := rand.New(rand.NewSource(seed))

	req := &PlanRequest{
		Name: fmt.Sprintf("fixture-grid-%dx%d", n, n),
	}

	keep := func(k int) bool {
		return dropEvery <= 0 || k%dropEvery != dropEvery-1
	}

	k := 0
	for i := 0; i <= n; i++ {
		for j := 0; j < n; j++ {
			y := float64(i) * block
			x := float64(j) * block

			if keep(k) {
				req.Streets = append(req.Streets, Street{
					ID:       fmt.Sprintf("h-%d-%d", i, j),
					Name:     fmt.Sprintf("%d-th Street", i),
					Category: categories[r.Intn(len(categories))],
					Points:   []orb.Point{{x, y}, {x + block, y}},
				})
			}
			k++

			if keep(k) {
				req.Streets = append(req.Streets, Street{
					ID:       fmt.Sprintf("v-%d-%d", i, j),
					Name:     fmt.Sprintf("%d-th Avenue", i),
					Category: categories[r.Intn(len(categories))],
					Points:   []orb.Point{{y, x}, {y, x + block}},
				})
			}
			k++
		}
	}

	req.Assets = append(req.Assets, Asset{
		ID:    "plant-1",
		Name:  "Boiler Plant",
		Kind:  "source",
		Point: orb.Point{3, 6},
	})
	for c := 0; c < consumers; c++ {
		x := float64(r.Intn(n))*block + 15 + float64(r.Intn(int(block)-30))
		y := float64(r.Intn(n+1)) * block
		req.Assets = append(req.Assets, Asset{
			ID:       fmt.Sprintf("bldg-%d", c+1),
			Name:     fmt.Sprintf("Building %d", c+1),
			Kind:     "consumer",
			Point:    orb.Point{x, y + 5 + float64(r.Intn(10))},
			DemandKW: float64(r.Intn(180) + 20),
		})
	}

	return req
}

// toGeoJSON renders the request as a FeatureCollection for map preview.
func toGeoJSON(req *PlanRequest) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	for _, s := range req.Streets {
		f := geojson.NewFeature(orb.LineString(s.Points))
		f.Properties["id"] = s.ID
		f.Properties["name"] = s.Name
		f.Properties["category"] = s.Category
		fc.Append(f)
	}
	for _, a := range req.Assets {
		f := geojson.NewFeature(a.Point)
		f.Properties["id"] = a.ID
		f.Properties["name"] = a.Name
		f.Properties["kind"] = a.Kind
		if a.DemandKW > 0 {
			f.Properties["demand_kw"] = a.DemandKW
		}
		fc.Append(f)
	}

	return json.MarshalIndent(fc, "", "  ")
}
