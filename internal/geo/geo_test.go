package geo_test

import (
	"math"
	"testing"
	"time"

	"greenledger/internal/geo"
)

func TestDistrictCatalog(t *testing.T) {
	all := geo.Districts()
	if len(all) != 30 {
		t.Fatalf("Odisha has 30 districts, catalog lists %d", len(all))
	}
	seen := map[string]bool{}
	for _, d := range all {
		if seen[d.ID] {
			t.Fatalf("duplicate district id %s", d.ID)
		}
		seen[d.ID] = true
		if d.Centroid.Lat == 0 || d.Centroid.Lng == 0 {
			t.Fatalf("district %s has no centroid", d.ID)
		}
	}
}

func TestDistrictsReturnsCopy(t *testing.T) {
	a := geo.Districts()
	a[0].Name = "mutated"
	if b := geo.Districts(); b[0].Name == "mutated" {
		t.Fatalf("catalog should not be mutable through the returned slice")
	}
}

func TestDistrictByID(t *testing.T) {
	d := geo.DistrictByID("koraput")
	if d == nil || d.Name != "Koraput" || d.Region != geo.RegionSouthern {
		t.Fatalf("got %+v", d)
	}
	if geo.DistrictByID("atlantis") != nil {
		t.Fatalf("unknown id should return nil")
	}
}

func TestDistrictsByRegion(t *testing.T) {
	counts := 0
	for _, r := range []geo.Region{geo.RegionCoastal, geo.RegionNorthern, geo.RegionSouthern, geo.RegionWestern} {
		ds := geo.DistrictsByRegion(r)
		if len(ds) == 0 {
			t.Fatalf("region %s empty", r)
		}
		for _, d := range ds {
			if d.Region != r {
				t.Fatalf("district %s filed under %s", d.ID, r)
			}
		}
		counts += len(ds)
	}
	if counts != len(geo.Districts()) {
		t.Fatalf("regions should partition the catalog")
	}
}

func TestDistance(t *testing.T) {
	koraput := *geo.DistrictByID("koraput")
	cuttack := *geo.DistrictByID("cuttack")
	d := geo.Distance(koraput, cuttack)
	if d < 300 || d > 500 {
		t.Fatalf("koraput-cuttack should be a few hundred km, got %.1f", d)
	}
	if got := geo.Distance(cuttack, koraput); math.Abs(got-d) > 1e-9 {
		t.Fatalf("distance should be symmetric")
	}
	if got := geo.Distance(koraput, koraput); got != 0 {
		t.Fatalf("self distance should be zero, got %f", got)
	}
}

func TestEstimateDeliveryHours(t *testing.T) {
	h := geo.EstimateDeliveryHours("koraput", "cuttack")
	if h < 2 {
		t.Fatalf("estimate below floor: %f", h)
	}
	// adjacent districts floor at two hours
	if got := geo.EstimateDeliveryHours("cuttack", "cuttack"); got != 2 {
		t.Fatalf("want floor 2h, got %f", got)
	}
	if got := geo.EstimateDeliveryHours("cuttack", "atlantis"); got != 24 {
		t.Fatalf("unknown district should fall back to 24h, got %f", got)
	}
}

func TestProgressInterpolation(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	from := geo.DistrictByID("koraput")
	to := geo.DistrictByID("cuttack")

	mid := geo.Progress("ship-9", "koraput", "cuttack", 50, now)
	if mid == nil {
		t.Fatalf("known districts should interpolate")
	}
	wantLat := from.Centroid.Lat + (to.Centroid.Lat-from.Centroid.Lat)/2
	wantLng := from.Centroid.Lng + (to.Centroid.Lng-from.Centroid.Lng)/2
	if math.Abs(mid.CurrentLocation.Lat-wantLat) > 1e-9 || math.Abs(mid.CurrentLocation.Lng-wantLng) > 1e-9 {
		t.Fatalf("midpoint off: %+v", mid.CurrentLocation)
	}
	if mid.EstimatedArrival <= now.UnixMilli() {
		t.Fatalf("arrival should be in the future at 50%%")
	}

	done := geo.Progress("ship-9", "koraput", "cuttack", 250, now)
	if done.Progress != 100 {
		t.Fatalf("progress should clamp to 100, got %f", done.Progress)
	}
	if math.Abs(done.CurrentLocation.Lat-to.Centroid.Lat) > 1e-9 ||
		math.Abs(done.CurrentLocation.Lng-to.Centroid.Lng) > 1e-9 {
		t.Fatalf("completed route should sit at the destination")
	}
	if done.EstimatedArrival != now.UnixMilli() {
		t.Fatalf("completed route should arrive now")
	}

	if geo.Progress("ship-9", "koraput", "atlantis", 50, now) != nil {
		t.Fatalf("unknown district should return nil")
	}
}
