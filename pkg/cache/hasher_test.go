package cache

import (
	"testing"

	"github.com/paulmach/orb"

	"heatgrid/pkg/domain"
)

func hashRequest() *domain.PlanRequest {
	return &domain.PlanRequest{
		Name: "hash-test",
		Streets: []domain.StreetSegment{
			{
				ID:       "s1",
				Category: domain.StreetCategoryPrimary,
				Geometry: orb.LineString{{0, 0}, {100, 0}},
			},
			{
				ID:       "s2",
				Category: domain.StreetCategoryResidential,
				Geometry: orb.LineString{{100, 0}, {100, 50}},
			},
		},
		Assets: []domain.Asset{
			{ID: "plant-1", Kind: domain.AssetSource, Point: orb.Point{0, 5}},
			{ID: "bldg-1", Kind: domain.AssetConsumer, Point: orb.Point{90, 10}, DemandKW: 25},
		},
		Options: domain.DefaultPlanOptions(),
	}
}

func TestPlanHash(t *testing.T) {
	t.Run("nil request", func(t *testing.T) {
		hash := PlanHash(nil)
		if hash != "" {
			t.Errorf("PlanHash(nil) = %v, want empty string", hash)
		}
	})

	t.Run("same request produces same hash", func(t *testing.T) {
		req := hashRequest()

		hash1 := PlanHash(req)
		hash2 := PlanHash(req)

		if hash1 != hash2 {
			t.Errorf("same request should produce same hash: %v != %v", hash1, hash2)
		}
	})

	t.Run("different demand produces different hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Assets[1].DemandKW = 50

		if PlanHash(req1) == PlanHash(req2) {
			t.Error("different demand should produce different hashes")
		}
	})

	t.Run("different geometry produces different hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Streets[0].Geometry = orb.LineString{{0, 0}, {120, 0}}

		if PlanHash(req1) == PlanHash(req2) {
			t.Error("different geometry should produce different hashes")
		}
	})

	t.Run("street order does not affect hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Streets[0], req2.Streets[1] = req2.Streets[1], req2.Streets[0]

		if PlanHash(req1) != PlanHash(req2) {
			t.Error("street order should not affect hash")
		}
	})

	t.Run("asset order does not affect hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Assets[0], req2.Assets[1] = req2.Assets[1], req2.Assets[0]

		if PlanHash(req1) != PlanHash(req2) {
			t.Error("asset order should not affect hash")
		}
	})

	t.Run("request name does not affect hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Name = "renamed"

		if PlanHash(req1) != PlanHash(req2) {
			t.Error("request name should not affect hash")
		}
	})

	t.Run("worker count does not affect hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Options.MaxRouteWorkers = 8

		if PlanHash(req1) != PlanHash(req2) {
			t.Error("worker count should not affect hash")
		}
	})

	t.Run("tolerance change affects hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Options.QuantizeTolerance = 0.5

		if PlanHash(req1) == PlanHash(req2) {
			t.Error("quantize tolerance should affect hash")
		}
	})

	t.Run("demand attachment affects hash", func(t *testing.T) {
		req1 := hashRequest()
		req2 := hashRequest()
		req2.Options.DemandAttachment = "service_connection"

		if PlanHash(req1) == PlanHash(req2) {
			t.Error("demand attachment should affect hash")
		}
	})
}

func TestBuildPlanKey(t *testing.T) {
	key := BuildPlanKey("abc123")
	expected := "plan:abc123"
	if key != expected {
		t.Errorf("BuildPlanKey() = %v, want %v", key, expected)
	}
}

func TestQuickHash(t *testing.T) {
	data := []byte("test data")
	hash := QuickHash(data)

	if len(hash) != 64 { // SHA256 hex = 64 chars
		t.Errorf("QuickHash length = %d, want 64", len(hash))
	}

	// Same data should produce same hash
	hash2 := QuickHash(data)
	if hash != hash2 {
		t.Error("same data should produce same hash")
	}
}

func TestShortHash(t *testing.T) {
	data := []byte("test data")
	hash := ShortHash(data)

	if len(hash) != 16 {
		t.Errorf("ShortHash length = %d, want 16", len(hash))
	}
}
