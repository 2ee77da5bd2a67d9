package server

import (
	"greenledger/internal/domain"
)

// Request payloads

type CreateUserRequest struct {
	Role     string `json:"role" enum:"farmer,transporter,retailer,consumer,admin"`
	Name     string `json:"name"`
	District string `json:"district,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

type UpdateUserRequest struct {
	Name                 *string `json:"name,omitempty"`
	District             *string `json:"district,omitempty"`
	TrustScore           *int    `json:"trust_score,omitempty" minimum:"0" maximum:"100"`
	Phone                *string `json:"phone,omitempty"`
	Email                *string `json:"email,omitempty"`
	TotalTransactions    *int    `json:"total_transactions,omitempty"`
	SuccessfulDeliveries *int    `json:"successful_deliveries,omitempty"`
}

type RegisterProductRequest struct {
	Name             string  `json:"name"`
	Category         string  `json:"category" enum:"paddy,turmeric,brinjal,chili,groundnut,sesame,maize,coconut,cashew"`
	Variety          string  `json:"variety,omitempty"`
	Unit             string  `json:"unit,omitempty" enum:"kg,quintal,tonnes"`
	Quantity         float64 `json:"quantity"`
	FarmerID         string  `json:"farmer_id,omitempty"`
	District         string  `json:"district,omitempty"`
	HarvestDate      int64   `json:"harvest_date,omitempty"`
	ExpiryDate       int64   `json:"expiry_date,omitempty"`
	Description      string  `json:"description,omitempty"`
	OrganicCertified bool    `json:"organic_certified,omitempty"`
	PricePerUnit     float64 `json:"price_per_unit,omitempty"`
	Location         string  `json:"location,omitempty"`
}

type SetProductStatusRequest struct {
	Status   string `json:"status" enum:"registered,pickup_scheduled,in_transit,delivered,verified,expired"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

type CreateShipmentRequest struct {
	ProductIDs      []string `json:"product_ids"`
	TransporterID   string   `json:"transporter_id,omitempty"`
	OriginDistrict  string   `json:"origin_district"`
	DestDistrict    string   `json:"destination_district"`
	ScheduledPickup int64    `json:"scheduled_pickup,omitempty"`
}

type SetShipmentStatusRequest struct {
	Status   string `json:"status" enum:"pending,pickup_scheduled,picked_up,in_transit,delivered,cancelled"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

type TelemetryRequest struct {
	Temperature *float64            `json:"temperature,omitempty"`
	Humidity    *float64            `json:"humidity,omitempty"`
	Location    string              `json:"location,omitempty"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	Notes       string              `json:"notes,omitempty"`
}

type CreateRatingRequest struct {
	TargetID    string `json:"target_id"`
	Stars       int    `json:"stars" minimum:"1" maximum:"5"`
	Comment     string `json:"comment,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
	ShipmentID  string `json:"shipment_id,omitempty"`
	CommitTrust bool   `json:"commit_trust,omitempty"`
}

type CreatePaymentRequest struct {
	PayerID    string `json:"payer_id,omitempty"`
	PayeeID    string `json:"payee_id"`
	ProductID  string `json:"product_id,omitempty"`
	ShipmentID string `json:"shipment_id,omitempty"`
	// Amount is a decimal string, e.g. "12500.00".
	Amount    string `json:"amount"`
	Condition string `json:"escrow_release_condition,omitempty" enum:"delivery_confirmed,quality_verified,manual_release"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

// Response payloads

// PaymentResponse carries the amount as a decimal string so no JSON
// number precision is lost.
type PaymentResponse struct {
	ID               string `json:"id"`
	PayerID          string `json:"payer_id"`
	PayeeID          string `json:"payee_id"`
	ProductID        string `json:"product_id,omitempty"`
	ShipmentID       string `json:"shipment_id,omitempty"`
	Amount           string `json:"amount"`
	State            string `json:"state" enum:"escrowed,released,refunded,disputed"`
	BlockchainTx     string `json:"blockchain_tx,omitempty"`
	CreatedAt        int64  `json:"created_at"`
	ReleasedAt       int64  `json:"released_at,omitempty"`
	ReleaseCondition string `json:"escrow_release_condition"`
	Currency         string `json:"currency"`
}

func paymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		PayerID:          p.PayerID,
		PayeeID:          p.PayeeID,
		ProductID:        p.ProductID,
		ShipmentID:       p.ShipmentID,
		Amount:           p.Amount.String(),
		State:            string(p.State),
		BlockchainTx:     p.BlockchainTx,
		CreatedAt:        p.CreatedAt,
		ReleasedAt:       p.ReleasedAt,
		ReleaseCondition: string(p.ReleaseCondition),
		Currency:         p.Currency,
	}
}

func mapPayments(in []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(in))
	for _, p := range in {
		out = append(out, paymentResponse(p))
	}
	return out
}

type VerificationResponse struct {
	Product  domain.Product      `json:"product"`
	Farmer   *domain.UserProfile `json:"farmer,omitempty"`
	Timeline []domain.Event      `json:"timeline"`
	ChainOK  bool                `json:"chain_ok"`
}

type TrustResponse struct {
	UserID       string `json:"user_id"`
	StoredScore  int    `json:"stored_score"`
	DerivedScore int    `json:"derived_score"`
	Ratings      int    `json:"ratings"`
}

type StateSummaryResponse struct {
	CurrentUser *domain.UserProfile `json:"current_user"`
	Users       int                 `json:"users"`
	Products    int                 `json:"products"`
	Shipments   int                 `json:"shipments"`
	Events      int                 `json:"events"`
	Ratings     int                 `json:"ratings"`
	Payments    int                 `json:"payments"`
}

type StorageInfoResponse struct {
	Stored    bool   `json:"stored"`
	Version   string `json:"version,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type DevLoginResponse struct {
	Token   string `json:"token"`
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}
