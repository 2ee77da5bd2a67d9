package store

import (
	"math"
	"sort"

	"greenledger/internal/domain"
)

// Derived-view helpers: pure queries over a state snapshot. None of them
// mutate their input, and a miss yields an empty result, never a panic.

const (
	ratingWeight   = 0.7
	deliveryWeight = 0.3
)

// TrustScore derives a 0-100 reputation number for a user: the mean star
// rating rescaled to 0-100 blended with the historical delivery success
// ratio. With no ratings the stored score is returned as-is. The result
// is display data; committing it back to the user record is a separate,
// explicit UpdateUser.
func TrustScore(s domain.AppState, userID string) int {
	user := UserByID(s, userID)
	if user == nil {
		return 0
	}
	var stars, count int
	for _, r := range s.Ratings {
		if r.TargetID == userID {
			stars += r.Stars
			count++
		}
	}
	if count == 0 {
		return user.TrustScore
	}
	base := float64(stars) / float64(count) / 5 * 100
	successRate := base
	if user.TotalTransactions > 0 {
		successRate = float64(user.SuccessfulDeliveries) / float64(user.TotalTransactions) * 100
	}
	return int(math.Round(base*ratingWeight + successRate*deliveryWeight))
}

func UserByID(s domain.AppState, id string) *domain.UserProfile {
	for i := range s.Users {
		if s.Users[i].ID == id {
			u := s.Users[i]
			return &u
		}
	}
	return nil
}

func UsersByRole(s domain.AppState, role domain.Role) []domain.UserProfile {
	var out []domain.UserProfile
	for _, u := range s.Users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

func ProductByID(s domain.AppState, id string) *domain.Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			p := s.Products[i]
			return &p
		}
	}
	return nil
}

// ProductByQRCode resolves a scanned verification code to its product.
func ProductByQRCode(s domain.AppState, code string) *domain.Product {
	for i := range s.Products {
		if s.Products[i].QRCodeID == code {
			p := s.Products[i]
			return &p
		}
	}
	return nil
}

func ProductsByFarmer(s domain.AppState, farmerID string) []domain.Product {
	var out []domain.Product
	for _, p := range s.Products {
		if p.FarmerID == farmerID {
			out = append(out, p)
		}
	}
	return out
}

func ShipmentByID(s domain.AppState, id string) *domain.Shipment {
	for i := range s.Shipments {
		if s.Shipments[i].ID == id {
			sh := s.Shipments[i]
			return &sh
		}
	}
	return nil
}

func ShipmentsByTransporter(s domain.AppState, transporterID string) []domain.Shipment {
	var out []domain.Shipment
	for _, sh := range s.Shipments {
		if sh.TransporterID == transporterID {
			out = append(out, sh)
		}
	}
	return out
}

// EventsForProduct returns the product's audit trail in timestamp order.
// The UI renders this as a causal timeline, so ascending order is part of
// the contract.
func EventsForProduct(s domain.AppState, productID string) []domain.Event {
	var out []domain.Event
	for _, e := range s.Events {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func EventsForShipment(s domain.AppState, shipmentID string) []domain.Event {
	var out []domain.Event
	for _, e := range s.Events {
		if e.ShipmentID == shipmentID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func RatingsForUser(s domain.AppState, userID string) []domain.Rating {
	var out []domain.Rating
	for _, r := range s.Ratings {
		if r.TargetID == userID {
			out = append(out, r)
		}
	}
	return out
}

func PaymentByID(s domain.AppState, id string) *domain.Payment {
	for i := range s.Payments {
		if s.Payments[i].ID == id {
			p := s.Payments[i]
			return &p
		}
	}
	return nil
}

// PaymentsForUser returns payments where the user is either side.
func PaymentsForUser(s domain.AppState, userID string) []domain.Payment {
	var out []domain.Payment
	for _, p := range s.Payments {
		if p.PayerID == userID || p.PayeeID == userID {
			out = append(out, p)
		}
	}
	return out
}

// CropCount pairs a crop with how many product batches carry it.
type CropCount struct {
	Crop  domain.CropType `json:"crop"`
	Count int             `json:"count"`
}

// DistrictAnalytics aggregates per-district activity for the admin
// dashboard.
type DistrictAnalytics struct {
	District            string      `json:"district"`
	TotalProducts       int         `json:"total_products"`
	TotalShipments      int         `json:"total_shipments"`
	AverageTrustScore   int         `json:"average_trust_score"`
	DeliverySuccessRate float64     `json:"delivery_success_rate"`
	PopularCrops        []CropCount `json:"popular_crops"`
}

// AnalyticsByDistrict computes analytics for every district that appears
// in the state, sorted by district id.
func AnalyticsByDistrict(s domain.AppState) []DistrictAnalytics {
	districts := map[string]*DistrictAnalytics{}
	get := func(d string) *DistrictAnalytics {
		if d == "" {
			d = "unknown"
		}
		if a, ok := districts[d]; ok {
			return a
		}
		a := &DistrictAnalytics{District: d}
		districts[d] = a
		return a
	}

	crops := map[string]map[domain.CropType]int{}
	for _, p := range s.Products {
		a := get(p.District)
		a.TotalProducts++
		if crops[a.District] == nil {
			crops[a.District] = map[domain.CropType]int{}
		}
		crops[a.District][p.Category]++
	}
	for _, sh := range s.Shipments {
		get(sh.OriginDistrict).TotalShipments++
	}

	type trustAcc struct{ total, users, delivered, transactions int }
	trust := map[string]*trustAcc{}
	for _, u := range s.Users {
		d := u.District
		if d == "" {
			d = "unknown"
		}
		if _, ok := districts[d]; !ok {
			continue
		}
		acc := trust[d]
		if acc == nil {
			acc = &trustAcc{}
			trust[d] = acc
		}
		acc.total += u.TrustScore
		acc.users++
		acc.delivered += u.SuccessfulDeliveries
		acc.transactions += u.TotalTransactions
	}

	out := make([]DistrictAnalytics, 0, len(districts))
	for d, a := range districts {
		if acc := trust[d]; acc != nil && acc.users > 0 {
			a.AverageTrustScore = int(math.Round(float64(acc.total) / float64(acc.users)))
			if acc.transactions > 0 {
				a.DeliverySuccessRate = math.Round(float64(acc.delivered)/float64(acc.transactions)*1000) / 10
			}
		}
		for crop, n := range crops[d] {
			a.PopularCrops = append(a.PopularCrops, CropCount{Crop: crop, Count: n})
		}
		sort.Slice(a.PopularCrops, func(i, j int) bool {
			if a.PopularCrops[i].Count != a.PopularCrops[j].Count {
				return a.PopularCrops[i].Count > a.PopularCrops[j].Count
			}
			return a.PopularCrops[i].Crop < a.PopularCrops[j].Crop
		})
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// TrustBucket is one band of the trust score distribution.
type TrustBucket struct {
	Range      string  `json:"range"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TrustDistribution buckets users into 20-point trust bands.
func TrustDistribution(s domain.AppState) []TrustBucket {
	ranges := []struct {
		label    string
		min, max int
	}{
		{"0-19", 0, 19},
		{"20-39", 20, 39},
		{"40-59", 40, 59},
		{"60-79", 60, 79},
		{"80-100", 80, 100},
	}
	buckets := make([]TrustBucket, len(ranges))
	for i, r := range ranges {
		buckets[i].Range = r.label
	}
	for _, u := range s.Users {
		for i, r := range ranges {
			if u.TrustScore >= r.min && u.TrustScore <= r.max {
				buckets[i].Count++
				break
			}
		}
	}
	if n := len(s.Users); n > 0 {
		for i := range buckets {
			buckets[i].Percentage = math.Round(float64(buckets[i].Count)/float64(n)*1000) / 10
		}
	}
	return buckets
}
