package store

import "greenledger/internal/domain"

// Action is the closed set of state transitions the reducer accepts.
// The marker method seals the set so Reduce can match it exhaustively;
// adding a new action kind is a compile-time visible change.
type Action interface {
	isAction()
}

type SetCurrentUser struct {
	User *domain.UserProfile
}

type AddUser struct {
	User domain.UserProfile
}

type UpdateUser struct {
	ID    string
	Patch UserPatch
}

type AddProduct struct {
	Product domain.Product
}

type UpdateProduct struct {
	ID    string
	Patch ProductPatch
}

type AddShipment struct {
	Shipment domain.Shipment
}

type UpdateShipment struct {
	ID    string
	Patch ShipmentPatch
}

type AddEvent struct {
	Event domain.Event
}

type AddRating struct {
	Rating domain.Rating
}

type AddPayment struct {
	Payment domain.Payment
}

type UpdatePayment struct {
	ID    string
	Patch PaymentPatch
}

type SetLoading struct {
	Loading bool
}

type SetError struct {
	Error string
}

// ResetDemoData replaces the whole state with seeded demo data. The seed
// timestamps derive from Now so the reducer itself stays clock-free.
type ResetDemoData struct {
	Now int64
}

// LoadState replaces the whole state, used when restoring a persisted
// session.
type LoadState struct {
	State domain.AppState
}

func (SetCurrentUser) isAction() {}
func (AddUser) isAction()        {}
func (UpdateUser) isAction()     {}
func (AddProduct) isAction()     {}
func (UpdateProduct) isAction()  {}
func (AddShipment) isAction()    {}
func (UpdateShipment) isAction() {}
func (AddEvent) isAction()       {}
func (AddRating) isAction()      {}
func (AddPayment) isAction()     {}
func (UpdatePayment) isAction()  {}
func (SetLoading) isAction()     {}
func (SetError) isAction()       {}
func (ResetDemoData) isAction()  {}
func (LoadState) isAction()      {}

// UserPatch is a partial update; nil fields are left untouched. Role is
// deliberately absent: a profile's role is immutable after creation.
type UserPatch struct {
	Name                 *string
	District             *string
	TrustScore           *int
	Phone                *string
	Email                *string
	TotalTransactions    *int
	SuccessfulDeliveries *int
}

func (p UserPatch) apply(u domain.UserProfile) domain.UserProfile {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.District != nil {
		u.District = *p.District
	}
	if p.TrustScore != nil {
		u.TrustScore = *p.TrustScore
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.TotalTransactions != nil {
		u.TotalTransactions = *p.TotalTransactions
	}
	if p.SuccessfulDeliveries != nil {
		u.SuccessfulDeliveries = *p.SuccessfulDeliveries
	}
	return u
}

type ProductPatch struct {
	Name             *string
	Variety          *string
	Unit             *string
	Quantity         *float64
	ExpiryDate       *int64
	Status           *domain.ProductStatus
	BlockchainTx     *string
	Description      *string
	OrganicCertified *bool
	PricePerUnit     *float64
}

func (p ProductPatch) apply(pr domain.Product) domain.Product {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Variety != nil {
		pr.Variety = *p.Variety
	}
	if p.Unit != nil {
		pr.Unit = *p.Unit
	}
	if p.Quantity != nil {
		pr.Quantity = *p.Quantity
	}
	if p.ExpiryDate != nil {
		pr.ExpiryDate = *p.ExpiryDate
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
	if p.BlockchainTx != nil {
		pr.BlockchainTx = *p.BlockchainTx
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.OrganicCertified != nil {
		pr.OrganicCertified = *p.OrganicCertified
	}
	if p.PricePerUnit != nil {
		pr.PricePerUnit = *p.PricePerUnit
	}
	return pr
}

type ShipmentPatch struct {
	TransporterID     *string
	Status            *domain.ShipmentStatus
	ScheduledPickup   *int64
	ActualPickup      *int64
	EstimatedDelivery *int64
	ActualDelivery    *int64
	Temperature       *float64
	Humidity          *float64
	CurrentLocation   *domain.Coordinates
}

func (p ShipmentPatch) apply(sh domain.Shipment) domain.Shipment {
	if p.TransporterID != nil {
		sh.TransporterID = *p.TransporterID
	}
	if p.Status != nil {
		sh.Status = *p.Status
	}
	if p.ScheduledPickup != nil {
		sh.ScheduledPickup = *p.ScheduledPickup
	}
	if p.ActualPickup != nil {
		sh.ActualPickup = *p.ActualPickup
	}
	if p.EstimatedDelivery != nil {
		sh.EstimatedDelivery = *p.EstimatedDelivery
	}
	if p.ActualDelivery != nil {
		sh.ActualDelivery = *p.ActualDelivery
	}
	if p.Temperature != nil {
		sh.Temperature = p.Temperature
	}
	if p.Humidity != nil {
		sh.Humidity = p.Humidity
	}
	if p.CurrentLocation != nil {
		sh.CurrentLocation = p.CurrentLocation
	}
	return sh
}

type PaymentPatch struct {
	State        *domain.PaymentState
	ReleasedAt   *int64
	BlockchainTx *string
}

func (p PaymentPatch) apply(pay domain.Payment) domain.Payment {
	if p.State != nil {
		pay.State = *p.State
	}
	if p.ReleasedAt != nil {
		pay.ReleasedAt = *p.ReleasedAt
	}
	if p.BlockchainTx != nil {
		pay.BlockchainTx = *p.BlockchainTx
	}
	return pay
}
