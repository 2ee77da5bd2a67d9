package domain

import "github.com/shopspring/decimal"

// Role of a platform participant.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleTransporter Role = "transporter"
	RoleRetailer    Role = "retailer"
	RoleConsumer    Role = "consumer"
	RoleAdmin       Role = "admin"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleFarmer, RoleTransporter, RoleRetailer, RoleConsumer, RoleAdmin}
}

func ValidRole(r Role) bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

type UserProfile struct {
	ID                   string `json:"id"`
	Role                 Role   `json:"role" enum:"farmer,transporter,retailer,consumer,admin"`
	Name                 string `json:"name"`
	District             string `json:"district"`
	TrustScore           int    `json:"trust_score" minimum:"0" maximum:"100"`
	Phone                string `json:"phone,omitempty"`
	Email                string `json:"email,omitempty"`
	CreatedAt            int64  `json:"created_at"`
	TotalTransactions    int    `json:"total_transactions"`
	SuccessfulDeliveries int    `json:"successful_deliveries"`
}

type CropType string

const (
	CropPaddy     CropType = "paddy"
	CropTurmeric  CropType = "turmeric"
	CropBrinjal   CropType = "brinjal"
	CropChili     CropType = "chili"
	CropGroundnut CropType = "groundnut"
	CropSesame    CropType = "sesame"
	CropMaize     CropType = "maize"
	CropCoconut   CropType = "coconut"
	CropCashew    CropType = "cashew"
)

type ProductStatus string

const (
	ProductRegistered      ProductStatus = "registered"
	ProductPickupScheduled ProductStatus = "pickup_scheduled"
	ProductInTransit       ProductStatus = "in_transit"
	ProductDelivered       ProductStatus = "delivered"
	ProductVerified        ProductStatus = "verified"
	ProductExpired         ProductStatus = "expired"
)

type Product struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Category         CropType      `json:"category" enum:"paddy,turmeric,brinjal,chili,groundnut,sesame,maize,coconut,cashew"`
	Variety          string        `json:"variety,omitempty"`
	Unit             string        `json:"unit" enum:"kg,quintal,tonnes"`
	Quantity         float64       `json:"quantity"`
	FarmerID         string        `json:"farmer_id"`
	District         string        `json:"district"`
	HarvestDate      int64         `json:"harvest_date"`
	ExpiryDate       int64         `json:"expiry_date"`
	Status           ProductStatus `json:"status" enum:"registered,pickup_scheduled,in_transit,delivered,verified,expired"`
	QRCodeID         string        `json:"qr_code_id"`
	BlockchainTx     string        `json:"blockchain_tx,omitempty"`
	Description      string        `json:"description,omitempty"`
	OrganicCertified bool          `json:"organic_certified,omitempty"`
	PricePerUnit     float64       `json:"price_per_unit,omitempty"`
	CreatedAt        int64         `json:"created_at"`
}

type ShipmentStatus string

const (
	ShipmentPending         ShipmentStatus = "pending"
	ShipmentPickupScheduled ShipmentStatus = "pickup_scheduled"
	ShipmentPickedUp        ShipmentStatus = "picked_up"
	ShipmentInTransit       ShipmentStatus = "in_transit"
	ShipmentDelivered       ShipmentStatus = "delivered"
	ShipmentCancelled       ShipmentStatus = "cancelled"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Shipment struct {
	ID                string         `json:"id"`
	ProductIDs        []string       `json:"product_ids"`
	TransporterID     string         `json:"transporter_id,omitempty"`
	OriginDistrict    string         `json:"origin_district"`
	DestDistrict      string         `json:"destination_district"`
	Status            ShipmentStatus `json:"status" enum:"pending,pickup_scheduled,picked_up,in_transit,delivered,cancelled"`
	CreatedAt         int64          `json:"created_at"`
	ScheduledPickup   int64          `json:"scheduled_pickup,omitempty"`
	ActualPickup      int64          `json:"actual_pickup,omitempty"`
	EstimatedDelivery int64          `json:"estimated_delivery,omitempty"`
	ActualDelivery    int64          `json:"actual_delivery,omitempty"`
	Temperature       *float64       `json:"temperature,omitempty"`
	Humidity          *float64       `json:"humidity,omitempty"`
	CurrentLocation   *Coordinates   `json:"current_location,omitempty"`
}

type EventType string

const (
	EventRegistration    EventType = "registration"
	EventPickupScheduled EventType = "pickup_scheduled"
	EventPickedUp        EventType = "picked_up"
	EventStatusUpdate    EventType = "status_update"
	EventTemperatureLog  EventType = "temperature_log"
	EventDelivered       EventType = "delivered"
	EventVerified        EventType = "verified"
)

// Event is one entry of the append-only audit trail. Events are never
// updated or removed once appended.
type Event struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id,omitempty"`
	ShipmentID   string    `json:"shipment_id,omitempty"`
	ActorRole    Role      `json:"actor_role"`
	ActorID      string    `json:"actor_id"`
	Type         EventType `json:"type" enum:"registration,pickup_scheduled,picked_up,status_update,temperature_log,delivered,verified"`
	Timestamp    int64     `json:"timestamp"`
	Location     string    `json:"location,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	Humidity     *float64  `json:"humidity,omitempty"`
	BlockchainTx string    `json:"blockchain_tx,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

type Rating struct {
	ID         string `json:"id"`
	TargetID   string `json:"target_id"`
	TargetRole Role   `json:"target_role"`
	FromID     string `json:"from_id"`
	FromRole   Role   `json:"from_role"`
	Stars      int    `json:"stars" minimum:"1" maximum:"5"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	ProductID  string `json:"product_id,omitempty"`
	ShipmentID string `json:"shipment_id,omitempty"`
}

type PaymentState string

const (
	PaymentEscrowed PaymentState = "escrowed"
	PaymentReleased PaymentState = "released"
	PaymentRefunded PaymentState = "refunded"
	PaymentDisputed PaymentState = "disputed"
)

type ReleaseCondition string

const (
	ReleaseOnDelivery ReleaseCondition = "delivery_confirmed"
	ReleaseOnQuality  ReleaseCondition = "quality_verified"
	ReleaseManual     ReleaseCondition = "manual_release"
)

// Payment is a simulated escrow record. No real funds move; state changes
// are explicit operations, never a side effect of delivery events.
type Payment struct {
	ID               string           `json:"id"`
	PayerID          string           `json:"payer_id"`
	PayeeID          string           `json:"payee_id"`
	ProductID        string           `json:"product_id,omitempty"`
	ShipmentID       string           `json:"shipment_id,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	State            PaymentState     `json:"state" enum:"escrowed,released,refunded,disputed"`
	BlockchainTx     string           `json:"blockchain_tx,omitempty"`
	CreatedAt        int64            `json:"created_at"`
	ReleasedAt       int64            `json:"released_at,omitempty"`
	ReleaseCondition ReleaseCondition `json:"escrow_release_condition" enum:"delivery_confirmed,quality_verified,manual_release"`
	Currency         string           `json:"currency"`
}

// AppState is the aggregate root owned by the store. Collections are
// replaced wholesale on update, never mutated in place.
type AppState struct {
	CurrentUser *UserProfile  `json:"current_user"`
	Users       []UserProfile `json:"users"`
	Products    []Product     `json:"products"`
	Shipments   []Shipment    `json:"shipments"`
	Events      []Event       `json:"events"`
	Ratings     []Rating      `json:"ratings"`
	Payments    []Payment     `json:"payments"`
	Loading     bool          `json:"loading"`
	Error       string        `json:"error,omitempty"`
}
