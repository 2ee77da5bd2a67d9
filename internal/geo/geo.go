// Package geo carries the Odisha district catalog used for shipment
// origins, destinations and analytics, plus distance and delivery-time
// estimates.
package geo

import (
	"math"
	"time"

	"greenledger/internal/domain"
)

type Region string

const (
	RegionCoastal  Region = "coastal"
	RegionNorthern Region = "northern"
	RegionSouthern Region = "southern"
	RegionWestern  Region = "western"
)

type District struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Centroid domain.Coordinates `json:"centroid"`
	Region   Region             `json:"region" enum:"coastal,northern,southern,western"`
}

var districts = []District{
	{ID: "bhadrak", Name: "Bhadrak", Centroid: domain.Coordinates{Lat: 21.0569, Lng: 86.5144}, Region: RegionCoastal},
	{ID: "balasore", Name: "Balasore", Centroid: domain.Coordinates{Lat: 21.4942, Lng: 86.9336}, Region: RegionCoastal},
	{ID: "kendrapara", Name: "Kendrapara", Centroid: domain.Coordinates{Lat: 20.5014, Lng: 86.4222}, Region: RegionCoastal},
	{ID: "jagatsinghpur", Name: "Jagatsinghpur", Centroid: domain.Coordinates{Lat: 20.2517, Lng: 86.1739}, Region: RegionCoastal},
	{ID: "jajpur", Name: "Jajpur", Centroid: domain.Coordinates{Lat: 20.8341, Lng: 86.3326}, Region: RegionCoastal},
	{ID: "cuttack", Name: "Cuttack", Centroid: domain.Coordinates{Lat: 20.4625, Lng: 85.8828}, Region: RegionCoastal},
	{ID: "khordha", Name: "Khordha", Centroid: domain.Coordinates{Lat: 20.1811, Lng: 85.6055}, Region: RegionCoastal},
	{ID: "puri", Name: "Puri", Centroid: domain.Coordinates{Lat: 19.8134, Lng: 85.8314}, Region: RegionCoastal},
	{ID: "nayagarh", Name: "Nayagarh", Centroid: domain.Coordinates{Lat: 20.1297, Lng: 85.1056}, Region: RegionCoastal},
	{ID: "ganjam", Name: "Ganjam", Centroid: domain.Coordinates{Lat: 19.3910, Lng: 84.6800}, Region: RegionCoastal},
	{ID: "mayurbhanj", Name: "Mayurbhanj", Centroid: domain.Coordinates{Lat: 21.9288, Lng: 86.7378}, Region: RegionNorthern},
	{ID: "keonjhar", Name: "Keonjhar", Centroid: domain.Coordinates{Lat: 21.6297, Lng: 85.5811}, Region: RegionNorthern},
	{ID: "sundargarh", Name: "Sundargarh", Centroid: domain.Coordinates{Lat: 22.1167, Lng: 84.0167}, Region: RegionNorthern},
	{ID: "jharsuguda", Name: "Jharsuguda", Centroid: domain.Coordinates{Lat: 21.8644, Lng: 84.0069}, Region: RegionNorthern},
	{ID: "sambalpur", Name: "Sambalpur", Centroid: domain.Coordinates{Lat: 21.4669, Lng: 83.9812}, Region: RegionNorthern},
	{ID: "bargarh", Name: "Bargarh", Centroid: domain.Coordinates{Lat: 21.3344, Lng: 83.6189}, Region: RegionNorthern},
	{ID: "dhenkanal", Name: "Dhenkanal", Centroid: domain.Coordinates{Lat: 20.6586, Lng: 85.5978}, Region: RegionNorthern},
	{ID: "angul", Name: "Angul", Centroid: domain.Coordinates{Lat: 20.8400, Lng: 85.1022}, Region: RegionNorthern},
	{ID: "kandhamal", Name: "Kandhamal", Centroid: domain.Coordinates{Lat: 20.2333, Lng: 84.1167}, Region: RegionSouthern},
	{ID: "boudh", Name: "Boudh", Centroid: domain.Coordinates{Lat: 20.4453, Lng: 84.3300}, Region: RegionSouthern},
	{ID: "sonepur", Name: "Sonepur", Centroid: domain.Coordinates{Lat: 20.8333, Lng: 83.9167}, Region: RegionSouthern},
	{ID: "rayagada", Name: "Rayagada", Centroid: domain.Coordinates{Lat: 19.1636, Lng: 83.4128}, Region: RegionSouthern},
	{ID: "gajapati", Name: "Gajapati", Centroid: domain.Coordinates{Lat: 18.8551, Lng: 84.1675}, Region: RegionSouthern},
	{ID: "koraput", Name: "Koraput", Centroid: domain.Coordinates{Lat: 18.8134, Lng: 82.7067}, Region: RegionSouthern},
	{ID: "malkangiri", Name: "Malkangiri", Centroid: domain.Coordinates{Lat: 18.3478, Lng: 81.8733}, Region: RegionSouthern},
	{ID: "nabarangpur", Name: "Nabarangpur", Centroid: domain.Coordinates{Lat: 19.2306, Lng: 82.5489}, Region: RegionSouthern},
	{ID: "kalahandi", Name: "Kalahandi", Centroid: domain.Coordinates{Lat: 19.9142, Lng: 83.1661}, Region: RegionWestern},
	{ID: "nuapada", Name: "Nuapada", Centroid: domain.Coordinates{Lat: 20.7331, Lng: 82.6169}, Region: RegionWestern},
	{ID: "bolangir", Name: "Bolangir", Centroid: domain.Coordinates{Lat: 20.7114, Lng: 83.4422}, Region: RegionWestern},
	{ID: "debagarh", Name: "Debagarh", Centroid: domain.Coordinates{Lat: 21.5086, Lng: 84.7347}, Region: RegionWestern},
}

// Districts returns a copy of the catalog.
func Districts() []District {
	out := make([]District, len(districts))
	copy(out, districts)
	return out
}

// DistrictByID returns nil for unknown ids.
func DistrictByID(id string) *District {
	for i := range districts {
		if districts[i].ID == id {
			d := districts[i]
			return &d
		}
	}
	return nil
}

func DistrictsByRegion(region Region) []District {
	var out []District
	for _, d := range districts {
		if d.Region == region {
			out = append(out, d)
		}
	}
	return out
}

const earthRadiusKm = 6371

// Distance is the haversine great-circle distance between two district
// centroids, in kilometers.
func Distance(from, to District) float64 {
	dLat := toRad(to.Centroid.Lat - from.Centroid.Lat)
	dLng := toRad(to.Centroid.Lng - from.Centroid.Lng)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(from.Centroid.Lat))*math.Cos(toRad(to.Centroid.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

const (
	avgSpeedKmh      = 40
	minDeliveryHours = 2
	// Fallback when either district is unknown.
	defaultDeliveryHours = 24
)

// EstimateDeliveryHours estimates road transit time between two district
// ids.
func EstimateDeliveryHours(fromID, toID string) float64 {
	from := DistrictByID(fromID)
	to := DistrictByID(toID)
	if from == nil || to == nil {
		return defaultDeliveryHours
	}
	hours := Distance(*from, *to) / avgSpeedKmh
	return math.Max(hours, minDeliveryHours)
}

// RouteProgress places an in-transit shipment along the straight line
// between origin and destination.
type RouteProgress struct {
	ShipmentID       string             `json:"shipment_id"`
	From             string             `json:"from"`
	To               string             `json:"to"`
	CurrentLocation  domain.Coordinates `json:"current_location"`
	Progress         float64            `json:"progress"`
	EstimatedArrival int64              `json:"estimated_arrival"`
}

// Progress interpolates a route position for the given completion fraction
// (0-100). Returns nil when either district is unknown.
func Progress(shipmentID, fromID, toID string, progress float64, now time.Time) *RouteProgress {
	from := DistrictByID(fromID)
	to := DistrictByID(toID)
	if from == nil || to == nil {
		return nil
	}
	progress = math.Max(0, math.Min(100, progress))
	frac := progress / 100
	hours := EstimateDeliveryHours(fromID, toID)
	remaining := time.Duration(hours * (1 - frac) * float64(time.Hour))
	return &RouteProgress{
		ShipmentID: shipmentID,
		From:       fromID,
		To:         toID,
		CurrentLocation: domain.Coordinates{
			Lat: from.Centroid.Lat + (to.Centroid.Lat-from.Centroid.Lat)*frac,
			Lng: from.Centroid.Lng + (to.Centroid.Lng-from.Centroid.Lng)*frac,
		},
		Progress:         progress,
		EstimatedArrival: now.Add(remaining).UnixMilli(),
	}
}
