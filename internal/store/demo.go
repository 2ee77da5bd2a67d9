package store

import (
	"github.com/shopspring/decimal"

	"greenledger/internal/domain"
)

const (
	hourMillis = int64(60 * 60 * 1000)
	dayMillis  = 24 * hourMillis
)

func f64(v float64) *float64 { return &v }

// DemoState builds the seeded demo session: a handful of Odisha farmers,
// transporters and a retailer, three crop batches at different lifecycle
// stages, and the audit trail behind them. now anchors every timestamp so
// the data always looks recent.
func DemoState(now int64) domain.AppState {
	users := []domain.UserProfile{
		{
			ID: "farmer-1", Role: domain.RoleFarmer, Name: "Raghunath Pradhan",
			District: "koraput", TrustScore: 85, Phone: "+91-9876543210",
			CreatedAt: now - 30*dayMillis, TotalTransactions: 12, SuccessfulDeliveries: 11,
		},
		{
			ID: "farmer-2", Role: domain.RoleFarmer, Name: "Sunita Behera",
			District: "sambalpur", TrustScore: 92, Phone: "+91-9876543211",
			CreatedAt: now - 45*dayMillis, TotalTransactions: 18, SuccessfulDeliveries: 17,
		},
		{
			ID: "farmer-3", Role: domain.RoleFarmer, Name: "Bipin Kumar Sahu",
			District: "ganjam", TrustScore: 78, Phone: "+91-9876543212",
			CreatedAt: now - 60*dayMillis, TotalTransactions: 8, SuccessfulDeliveries: 7,
		},
		{
			ID: "transporter-1", Role: domain.RoleTransporter, Name: "Ramesh Transport Services",
			District: "bhubaneswar", TrustScore: 88, Phone: "+91-9876543213",
			CreatedAt: now - 90*dayMillis, TotalTransactions: 45, SuccessfulDeliveries: 42,
		},
		{
			ID: "transporter-2", Role: domain.RoleTransporter, Name: "Odisha Express Logistics",
			District: "cuttack", TrustScore: 91, Phone: "+91-9876543214",
			CreatedAt: now - 75*dayMillis, TotalTransactions: 38, SuccessfulDeliveries: 36,
		},
		{
			ID: "retailer-1", Role: domain.RoleRetailer, Name: "Green Valley Organics",
			District: "bhubaneswar", TrustScore: 86, Phone: "+91-9876543215",
			CreatedAt: now - 50*dayMillis, TotalTransactions: 25, SuccessfulDeliveries: 24,
		},
		{
			ID: "admin-1", Role: domain.RoleAdmin, Name: "System Admin",
			District: "bhubaneswar", TrustScore: 100,
			CreatedAt: now - 365*dayMillis,
		},
	}

	products := []domain.Product{
		{
			ID: "prod-1", Name: "Organic Turmeric", Category: domain.CropTurmeric,
			Variety: "Curcuma Longa", Unit: "kg", Quantity: 50,
			FarmerID: "farmer-1", District: "koraput",
			HarvestDate: now - 7*dayMillis, ExpiryDate: now + 365*dayMillis,
			Status: domain.ProductDelivered, QRCodeID: "gl-prod001",
			OrganicCertified: true, PricePerUnit: 120, CreatedAt: now - 7*dayMillis,
			Description:  "Premium organic turmeric from Koraput hills",
			BlockchainTx: "0x93c7a4e1f05b2d8a6c41e9b37d25f08c61da4be2907f3a5c8e16d04b72f9c3ae",
		},
		{
			ID: "prod-2", Name: "Basmati Paddy", Category: domain.CropPaddy,
			Variety: "Basmati 1121", Unit: "quintal", Quantity: 5,
			FarmerID: "farmer-2", District: "sambalpur",
			HarvestDate: now - 14*dayMillis, ExpiryDate: now + 180*dayMillis,
			Status: domain.ProductInTransit, QRCodeID: "gl-prod002",
			PricePerUnit: 2500, CreatedAt: now - 14*dayMillis,
			Description:  "High quality basmati paddy from Sambalpur",
			BlockchainTx: "0x4f18ce52ab07d9e6341b8cf2a60d95e37c24fa819b05d6e3c87f12a4d0b69e51",
		},
		{
			ID: "prod-3", Name: "Fresh Brinjal", Category: domain.CropBrinjal,
			Variety: "Round Purple", Unit: "kg", Quantity: 25,
			FarmerID: "farmer-3", District: "ganjam",
			HarvestDate: now - 2*dayMillis, ExpiryDate: now + 14*dayMillis,
			Status: domain.ProductRegistered, QRCodeID: "gl-prod003",
			PricePerUnit: 35, CreatedAt: now - 2*dayMillis,
			Description:  "Fresh brinjal harvested from coastal Ganjam",
			BlockchainTx: "0xd60b3a97e42f15c8a09d6be731f48ca25e09d7b16384cf5a2be90467d13e8f0c",
		},
	}

	shipments := []domain.Shipment{
		{
			ID: "ship-1", ProductIDs: []string{"prod-1"}, TransporterID: "transporter-1",
			OriginDistrict: "koraput", DestDistrict: "bhubaneswar",
			Status: domain.ShipmentDelivered, CreatedAt: now - 5*dayMillis,
			ActualPickup: now - 4*dayMillis, ActualDelivery: now - 1*dayMillis,
			Temperature: f64(22), Humidity: f64(65),
		},
		{
			ID: "ship-2", ProductIDs: []string{"prod-2"}, TransporterID: "transporter-2",
			OriginDistrict: "sambalpur", DestDistrict: "bhubaneswar",
			Status: domain.ShipmentInTransit, CreatedAt: now - 2*dayMillis,
			ActualPickup: now - 1*dayMillis, EstimatedDelivery: now + 1*dayMillis,
			Temperature: f64(25), Humidity: f64(60),
			CurrentLocation: &domain.Coordinates{Lat: 20.8, Lng: 84.5},
		},
	}

	ratings := []domain.Rating{
		{
			ID: "rating-1", TargetID: "farmer-1", TargetRole: domain.RoleFarmer,
			FromID: "retailer-1", FromRole: domain.RoleRetailer, Stars: 5,
			Comment: "Excellent quality turmeric, well packaged",
			CreatedAt: now - 1*dayMillis, ProductID: "prod-1",
		},
		{
			ID: "rating-2", TargetID: "transporter-1", TargetRole: domain.RoleTransporter,
			FromID: "retailer-1", FromRole: domain.RoleRetailer, Stars: 4,
			Comment: "On-time delivery, good handling",
			CreatedAt: now - 1*dayMillis, ShipmentID: "ship-1",
		},
	}

	payments := []domain.Payment{
		{
			ID: "pay-1", PayerID: "retailer-1", PayeeID: "farmer-1", ProductID: "prod-1",
			Amount: decimal.NewFromInt(6000), State: domain.PaymentReleased,
			CreatedAt: now - 5*dayMillis, ReleasedAt: now - 1*dayMillis,
			ReleaseCondition: domain.ReleaseOnDelivery, Currency: "INR",
		},
		{
			ID: "pay-2", PayerID: "retailer-1", PayeeID: "farmer-2", ProductID: "prod-2",
			Amount: decimal.NewFromInt(12500), State: domain.PaymentEscrowed,
			CreatedAt: now - 2*dayMillis,
			ReleaseCondition: domain.ReleaseOnDelivery, Currency: "INR",
		},
	}

	events := []domain.Event{
		{
			ID: "event-1", ProductID: "prod-1", Type: domain.EventRegistration,
			ActorID: "farmer-1", ActorRole: domain.RoleFarmer, Timestamp: now - 7*dayMillis,
			Location: "Koraput, Odisha", Notes: "Organic turmeric registered with certification",
		},
		{
			ID: "event-2", ProductID: "prod-1", Type: domain.EventPickupScheduled,
			ActorID: "transporter-1", ActorRole: domain.RoleTransporter, Timestamp: now - 5*dayMillis,
			Location: "Koraput, Odisha", Notes: "Pickup scheduled for transport to Bhubaneswar",
		},
		{
			ID: "event-3", ProductID: "prod-1", Type: domain.EventPickedUp,
			ActorID: "transporter-1", ActorRole: domain.RoleTransporter, Timestamp: now - 4*dayMillis,
			Location: "Koraput, Odisha", Temperature: f64(22), Humidity: f64(65),
			Notes: "Product collected from farm in refrigerated truck",
		},
		{
			ID: "event-4", ProductID: "prod-1", Type: domain.EventTemperatureLog,
			ActorID: "transporter-1", ActorRole: domain.RoleTransporter, Timestamp: now - 3*dayMillis,
			Location: "En route to Bhubaneswar", Temperature: f64(24), Humidity: f64(62),
			Notes: "Temperature check during transit",
		},
		{
			ID: "event-5", ProductID: "prod-1", Type: domain.EventDelivered,
			ActorID: "transporter-1", ActorRole: domain.RoleTransporter, Timestamp: now - 1*dayMillis,
			Location: "Bhubaneswar, Odisha", Temperature: f64(23), Humidity: f64(63),
			Notes: "Successfully delivered to Green Valley Organics",
		},
		{
			ID: "event-6", ProductID: "prod-1", Type: domain.EventVerified,
			ActorID: "retailer-1", ActorRole: domain.RoleRetailer, Timestamp: now - 1*dayMillis,
			Location: "Bhubaneswar, Odisha", Notes: "Quality verified and accepted by retailer",
		},
		{
			ID: "event-7", ProductID: "prod-2", Type: domain.EventRegistration,
			ActorID: "farmer-2", ActorRole: domain.RoleFarmer, Timestamp: now - 14*dayMillis,
			Location: "Sambalpur, Odisha", Notes: "Premium Basmati 1121 variety registered",
		},
		{
			ID: "event-8", ProductID: "prod-2", Type: domain.EventPickupScheduled,
			ActorID: "transporter-2", ActorRole: domain.RoleTransporter, Timestamp: now - 2*dayMillis,
			Location: "Sambalpur, Odisha", Notes: "Transport arranged for delivery to processing center",
		},
		{
			ID: "event-9", ProductID: "prod-2", Type: domain.EventPickedUp,
			ActorID: "transporter-2", ActorRole: domain.RoleTransporter, Timestamp: now - 1*dayMillis,
			Location: "Sambalpur, Odisha", Temperature: f64(25), Humidity: f64(60),
			Notes: "Collected and loaded for transport",
		},
		{
			ID: "event-10", ProductID: "prod-2", Type: domain.EventStatusUpdate,
			ActorID: "transporter-2", ActorRole: domain.RoleTransporter, Timestamp: now - 12*hourMillis,
			Location: "Angul, Odisha", Temperature: f64(26), Humidity: f64(58),
			Notes: "Crossed Angul, on schedule for delivery",
		},
		{
			ID: "event-11", ProductID: "prod-3", Type: domain.EventRegistration,
			ActorID: "farmer-3", ActorRole: domain.RoleFarmer, Timestamp: now - 2*dayMillis,
			Location: "Ganjam, Odisha", Notes: "Fresh brinjal harvested and ready for market",
		},
	}

	current := users[0]
	return domain.AppState{
		CurrentUser: &current,
		Users:       users,
		Products:    products,
		Shipments:   shipments,
		Events:      events,
		Ratings:     ratings,
		Payments:    payments,
	}
}
