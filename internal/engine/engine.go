package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"greenledger/internal/chain"
	"greenledger/internal/config"
	"greenledger/internal/domain"
	"greenledger/internal/geo"
	"greenledger/internal/qr"
	"greenledger/internal/store"
)

var ErrNotFound = errors.New("not found")

// InvalidTransitionError reports a status change the lifecycle does not
// allow.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition %s -> %s", e.Entity, e.From, e.To)
}

// Engine orchestrates state changes: it owns the clock, id generation and
// the mock chain, builds action payloads, and dispatches them. The
// reducer underneath stays pure and permissive; lifecycle legality is
// checked here, with Force as the escape hatch.
type Engine struct {
	Store  *store.Store
	Config *config.Config
	Chain  chain.Minter
	Now    func() time.Time
}

func New(st *store.Store, cfg *config.Config) Engine {
	return Engine{
		Store:  st,
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// newID builds the prefix-plus-timestamp identifiers used across the
// demo data set.
func (e Engine) newID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, e.now().UnixMilli())
}

func (e Engine) currency() string {
	if e.Config != nil && e.Config.Platform.Currency != "" {
		return e.Config.Platform.Currency
	}
	return "INR"
}

// State returns the current snapshot.
func (e Engine) State() domain.AppState {
	return e.Store.State()
}

// ResetDemo replaces everything with freshly seeded demo data.
func (e Engine) ResetDemo() domain.AppState {
	return e.Store.Dispatch(store.ResetDemoData{Now: e.now().UnixMilli()})
}

// SetCurrentUser switches the active session user. Role switching is a
// demo convenience, not a security boundary.
func (e Engine) SetCurrentUser(userID string) (domain.UserProfile, error) {
	u := store.UserByID(e.Store.State(), userID)
	if u == nil {
		return domain.UserProfile{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	e.Store.Dispatch(store.SetCurrentUser{User: u})
	return *u, nil
}

// UserCreateOptions are parameters for creating a user profile.
type UserCreateOptions struct {
	Role     domain.Role
	Name     string
	District string
	Phone    string
	Email    string
}

func (e Engine) CreateUser(opts UserCreateOptions) (domain.UserProfile, error) {
	if opts.Name == "" {
		return domain.UserProfile{}, errors.New("name is required")
	}
	if !domain.ValidRole(opts.Role) {
		return domain.UserProfile{}, fmt.Errorf("invalid role %q", opts.Role)
	}
	u := domain.UserProfile{
		ID:         e.newID("user"),
		Role:       opts.Role,
		Name:       opts.Name,
		District:   opts.District,
		TrustScore: 50,
		Phone:      opts.Phone,
		Email:      opts.Email,
		CreatedAt:  e.now().UnixMilli(),
	}
	e.Store.Dispatch(store.AddUser{User: u})
	return u, nil
}

func (e Engine) UpdateUser(id string, patch store.UserPatch) (domain.UserProfile, error) {
	if store.UserByID(e.Store.State(), id) == nil {
		return domain.UserProfile{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	next := e.Store.Dispatch(store.UpdateUser{ID: id, Patch: patch})
	return *store.UserByID(next, id), nil
}

// ProductRegisterOptions are parameters for registering a crop batch.
type ProductRegisterOptions struct {
	Name             string
	Category         domain.CropType
	Variety          string
	Unit             string
	Quantity         float64
	FarmerID         string
	District         string
	HarvestDate      int64
	ExpiryDate       int64
	Description      string
	OrganicCertified bool
	PricePerUnit     float64
	Location         string
}

// RegisterProduct creates a batch in the registered state, mints its mock
// chain receipt, and appends the registration event.
func (e Engine) RegisterProduct(opts ProductRegisterOptions) (domain.Product, error) {
	if opts.Name == "" {
		return domain.Product{}, errors.New("name is required")
	}
	if opts.Quantity <= 0 {
		return domain.Product{}, errors.New("quantity must be positive")
	}
	s := e.Store.State()
	farmer := store.UserByID(s, opts.FarmerID)
	if farmer == nil {
		return domain.Product{}, fmt.Errorf("farmer %s: %w", opts.FarmerID, ErrNotFound)
	}
	if opts.Unit == "" {
		opts.Unit = "kg"
	}
	if opts.District == "" {
		opts.District = farmer.District
	}
	now := e.now().UnixMilli()
	if opts.HarvestDate == 0 {
		opts.HarvestDate = now
	}
	id := e.newID("prod")
	tx := e.Chain.CropRegistration(id, opts.FarmerID)
	p := domain.Product{
		ID:               id,
		Name:             opts.Name,
		Category:         opts.Category,
		Variety:          opts.Variety,
		Unit:             opts.Unit,
		Quantity:         opts.Quantity,
		FarmerID:         opts.FarmerID,
		District:         opts.District,
		HarvestDate:      opts.HarvestDate,
		ExpiryDate:       opts.ExpiryDate,
		Status:           domain.ProductRegistered,
		QRCodeID:         qr.Code(id),
		BlockchainTx:     tx.Hash,
		Description:      opts.Description,
		OrganicCertified: opts.OrganicCertified,
		PricePerUnit:     opts.PricePerUnit,
		CreatedAt:        now,
	}
	e.Store.Dispatch(store.AddProduct{Product: p})
	e.appendEvent(domain.Event{
		ProductID:    p.ID,
		ActorID:      opts.FarmerID,
		ActorRole:    farmer.Role,
		Type:         domain.EventRegistration,
		Location:     opts.Location,
		BlockchainTx: tx.Hash,
		Notes:        fmt.Sprintf("%s registered by %s", p.Name, farmer.Name),
	})
	return p, nil
}

// ensureProductTransition validates the batch lifecycle:
// registered -> pickup_scheduled -> in_transit -> delivered -> verified,
// with expired reachable from any non-terminal state.
func ensureProductTransition(old, next domain.ProductStatus, force bool) error {
	if force {
		return nil
	}
	if next == domain.ProductExpired {
		if old == domain.ProductVerified || old == domain.ProductExpired {
			return InvalidTransitionError{Entity: "product", From: string(old), To: string(next)}
		}
		return nil
	}
	switch old {
	case domain.ProductRegistered:
		if next == domain.ProductPickupScheduled {
			return nil
		}
	case domain.ProductPickupScheduled:
		if next == domain.ProductInTransit {
			return nil
		}
	case domain.ProductInTransit:
		if next == domain.ProductDelivered {
			return nil
		}
	case domain.ProductDelivered:
		if next == domain.ProductVerified {
			return nil
		}
	}
	return InvalidTransitionError{Entity: "product", From: string(old), To: string(next)}
}

// StatusUpdateOptions carry the actor context for a lifecycle change.
type StatusUpdateOptions struct {
	ActorID  string
	Location string
	Notes    string
	Force    bool
}

func eventTypeForProductStatus(status domain.ProductStatus) domain.EventType {
	switch status {
	case domain.ProductPickupScheduled:
		return domain.EventPickupScheduled
	case domain.ProductInTransit:
		return domain.EventPickedUp
	case domain.ProductDelivered:
		return domain.EventDelivered
	case domain.ProductVerified:
		return domain.EventVerified
	default:
		return domain.EventStatusUpdate
	}
}

// UpdateProductStatus advances a batch through its lifecycle and records
// the audit event.
func (e Engine) UpdateProductStatus(id string, status domain.ProductStatus, opts StatusUpdateOptions) (domain.Product, error) {
	s := e.Store.State()
	p := store.ProductByID(s, id)
	if p == nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err := ensureProductTransition(p.Status, status, opts.Force); err != nil {
		return *p, err
	}
	next := e.Store.Dispatch(store.UpdateProduct{ID: id, Patch: store.ProductPatch{Status: &status}})
	e.appendEvent(domain.Event{
		ProductID: id,
		ActorID:   opts.ActorID,
		ActorRole: actorRole(s, opts.ActorID),
		Type:      eventTypeForProductStatus(status),
		Location:  opts.Location,
		Notes:     opts.Notes,
	})
	return *store.ProductByID(next, id), nil
}

// ShipmentCreateOptions are parameters for creating a transport job.
type ShipmentCreateOptions struct {
	ProductIDs      []string
	TransporterID   string
	OriginDistrict  string
	DestDistrict    string
	ScheduledPickup int64
	ActorID         string
}

// CreateShipment registers a transport job. The delivery estimate comes
// from district distance at 40 km/h.
func (e Engine) CreateShipment(opts ShipmentCreateOptions) (domain.Shipment, error) {
	if len(opts.ProductIDs) == 0 {
		return domain.Shipment{}, errors.New("at least one product is required")
	}
	if opts.OriginDistrict == "" || opts.DestDistrict == "" {
		return domain.Shipment{}, errors.New("origin and destination districts are required")
	}
	s := e.Store.State()
	for _, pid := range opts.ProductIDs {
		if store.ProductByID(s, pid) == nil {
			return domain.Shipment{}, fmt.Errorf("product %s: %w", pid, ErrNotFound)
		}
	}
	if opts.TransporterID != "" {
		if store.UserByID(s, opts.TransporterID) == nil {
			return domain.Shipment{}, fmt.Errorf("transporter %s: %w", opts.TransporterID, ErrNotFound)
		}
	}
	now := e.now()
	status := domain.ShipmentPending
	if opts.ScheduledPickup > 0 {
		status = domain.ShipmentPickupScheduled
	}
	hours := geo.EstimateDeliveryHours(opts.OriginDistrict, opts.DestDistrict)
	sh := domain.Shipment{
		ID:                e.newID("ship"),
		ProductIDs:        opts.ProductIDs,
		TransporterID:     opts.TransporterID,
		OriginDistrict:    opts.OriginDistrict,
		DestDistrict:      opts.DestDistrict,
		Status:            status,
		CreatedAt:         now.UnixMilli(),
		ScheduledPickup:   opts.ScheduledPickup,
		EstimatedDelivery: now.Add(time.Duration(hours * float64(time.Hour))).UnixMilli(),
	}
	e.Store.Dispatch(store.AddShipment{Shipment: sh})
	if status == domain.ShipmentPickupScheduled {
		e.appendShipmentEvent(sh, domain.EventPickupScheduled, opts.ActorID, "", "Pickup scheduled")
	}
	return sh, nil
}

// AssignTransporter attaches a transporter to a pending shipment.
func (e Engine) AssignTransporter(shipmentID, transporterID string) (domain.Shipment, error) {
	s := e.Store.State()
	if store.ShipmentByID(s, shipmentID) == nil {
		return domain.Shipment{}, fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
	}
	t := store.UserByID(s, transporterID)
	if t == nil {
		return domain.Shipment{}, fmt.Errorf("transporter %s: %w", transporterID, ErrNotFound)
	}
	if t.Role != domain.RoleTransporter {
		return domain.Shipment{}, fmt.Errorf("user %s is not a transporter", transporterID)
	}
	next := e.Store.Dispatch(store.UpdateShipment{ID: shipmentID, Patch: store.ShipmentPatch{TransporterID: &transporterID}})
	return *store.ShipmentByID(next, shipmentID), nil
}

// ensureShipmentTransition validates the transport lifecycle:
// pending -> pickup_scheduled -> picked_up -> in_transit -> delivered,
// with cancelled reachable until the goods are delivered.
func ensureShipmentTransition(old, next domain.ShipmentStatus, force bool) error {
	if force {
		return nil
	}
	if next == domain.ShipmentCancelled {
		if old == domain.ShipmentDelivered || old == domain.ShipmentCancelled {
			return InvalidTransitionError{Entity: "shipment", From: string(old), To: string(next)}
		}
		return nil
	}
	switch old {
	case domain.ShipmentPending:
		if next == domain.ShipmentPickupScheduled || next == domain.ShipmentPickedUp {
			return nil
		}
	case domain.ShipmentPickupScheduled:
		if next == domain.ShipmentPickedUp {
			return nil
		}
	case domain.ShipmentPickedUp:
		if next == domain.ShipmentInTransit {
			return nil
		}
	case domain.ShipmentInTransit:
		if next == domain.ShipmentDelivered {
			return nil
		}
	}
	return InvalidTransitionError{Entity: "shipment", From: string(old), To: string(next)}
}

func eventTypeForShipmentStatus(status domain.ShipmentStatus) domain.EventType {
	switch status {
	case domain.ShipmentPickupScheduled:
		return domain.EventPickupScheduled
	case domain.ShipmentPickedUp:
		return domain.EventPickedUp
	case domain.ShipmentDelivered:
		return domain.EventDelivered
	default:
		return domain.EventStatusUpdate
	}
}

// UpdateShipmentStatus advances a transport job, stamps pickup/delivery
// times, mirrors the movement onto the carried products, and records the
// audit event with a mock chain receipt. Escrow is NOT released on
// delivery; payment transitions stay explicit.
func (e Engine) UpdateShipmentStatus(id string, status domain.ShipmentStatus, opts StatusUpdateOptions) (domain.Shipment, error) {
	s := e.Store.State()
	sh := store.ShipmentByID(s, id)
	if sh == nil {
		return domain.Shipment{}, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	if err := ensureShipmentTransition(sh.Status, status, opts.Force); err != nil {
		return *sh, err
	}
	now := e.now().UnixMilli()
	patch := store.ShipmentPatch{Status: &status}
	switch status {
	case domain.ShipmentPickedUp:
		patch.ActualPickup = &now
	case domain.ShipmentDelivered:
		patch.ActualDelivery = &now
	}
	next := e.Store.Dispatch(store.UpdateShipment{ID: id, Patch: patch})

	if productStatus, ok := productStatusForShipment(status); ok {
		for _, pid := range sh.ProductIDs {
			p := store.ProductByID(next, pid)
			if p == nil {
				continue
			}
			if err := ensureProductTransition(p.Status, productStatus, opts.Force); err == nil {
				next = e.Store.Dispatch(store.UpdateProduct{ID: pid, Patch: store.ProductPatch{Status: &productStatus}})
			}
		}
	}

	tx := e.Chain.StatusUpdate(id, string(status), opts.Location)
	updated := *store.ShipmentByID(next, id)
	e.appendShipmentEvent(updated, eventTypeForShipmentStatus(status), opts.ActorID, tx.Hash, opts.Notes)
	return updated, nil
}

func productStatusForShipment(status domain.ShipmentStatus) (domain.ProductStatus, bool) {
	switch status {
	case domain.ShipmentPickupScheduled:
		return domain.ProductPickupScheduled, true
	case domain.ShipmentPickedUp, domain.ShipmentInTransit:
		return domain.ProductInTransit, true
	case domain.ShipmentDelivered:
		return domain.ProductDelivered, true
	}
	return "", false
}

// TelemetryOptions are readings reported by a transporter en route.
type TelemetryOptions struct {
	Temperature *float64
	Humidity    *float64
	Location    string
	Coordinates *domain.Coordinates
	ActorID     string
	Notes       string
}

// LogTelemetry records environmental readings on an active shipment and
// appends a temperature_log event for each carried product.
func (e Engine) LogTelemetry(shipmentID string, opts TelemetryOptions) (domain.Shipment, error) {
	s := e.Store.State()
	sh := store.ShipmentByID(s, shipmentID)
	if sh == nil {
		return domain.Shipment{}, fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
	}
	patch := store.ShipmentPatch{
		Temperature:     opts.Temperature,
		Humidity:        opts.Humidity,
		CurrentLocation: opts.Coordinates,
	}
	next := e.Store.Dispatch(store.UpdateShipment{ID: shipmentID, Patch: patch})
	for _, pid := range sh.ProductIDs {
		e.appendEvent(domain.Event{
			ProductID:   pid,
			ShipmentID:  shipmentID,
			ActorID:     opts.ActorID,
			ActorRole:   actorRole(s, opts.ActorID),
			Type:        domain.EventTemperatureLog,
			Location:    opts.Location,
			Temperature: opts.Temperature,
			Humidity:    opts.Humidity,
			Notes:       opts.Notes,
		})
	}
	return *store.ShipmentByID(next, shipmentID), nil
}

// VerificationResult is what a consumer sees after scanning a code.
type VerificationResult struct {
	Product  domain.Product      `json:"product"`
	Farmer   *domain.UserProfile `json:"farmer,omitempty"`
	Timeline []domain.Event      `json:"timeline"`
	ChainOK  bool                `json:"chain_ok"`
}

// VerifyCode resolves a scanned verification code to a product and its
// timeline. Read-only: scanning does not change state.
func (e Engine) VerifyCode(code string) (*VerificationResult, error) {
	if !qr.Valid(code) {
		return nil, fmt.Errorf("invalid verification code %q", code)
	}
	s := e.Store.State()
	p := store.ProductByQRCode(s, code)
	if p == nil {
		return nil, fmt.Errorf("product for code %s: %w", code, ErrNotFound)
	}
	return &VerificationResult{
		Product:  *p,
		Farmer:   store.UserByID(s, p.FarmerID),
		Timeline: store.EventsForProduct(s, p.ID),
		ChainOK:  chain.Verify(p.BlockchainTx),
	}, nil
}

// ConfirmVerification marks a delivered batch as verified by the
// receiving party.
func (e Engine) ConfirmVerification(productID string, opts StatusUpdateOptions) (domain.Product, error) {
	return e.UpdateProductStatus(productID, domain.ProductVerified, opts)
}

// SchedulePickup marks a registered batch as ready for collection.
func (e Engine) SchedulePickup(productID string, opts StatusUpdateOptions) (domain.Product, error) {
	return e.UpdateProductStatus(productID, domain.ProductPickupScheduled, opts)
}

// RatingOptions are parameters for a star review.
type RatingOptions struct {
	TargetID   string
	FromID     string
	Stars      int
	Comment    string
	ProductID  string
	ShipmentID string
	// CommitTrust recomputes the target's trust score and writes it back.
	// Derivation alone never mutates state.
	CommitTrust bool
}

func (e Engine) AddRating(opts RatingOptions) (domain.Rating, error) {
	if opts.Stars < 1 || opts.Stars > 5 {
		return domain.Rating{}, errors.New("stars must be between 1 and 5")
	}
	s := e.Store.State()
	target := store.UserByID(s, opts.TargetID)
	if target == nil {
		return domain.Rating{}, fmt.Errorf("target user %s: %w", opts.TargetID, ErrNotFound)
	}
	from := store.UserByID(s, opts.FromID)
	if from == nil {
		return domain.Rating{}, fmt.Errorf("rating user %s: %w", opts.FromID, ErrNotFound)
	}
	r := domain.Rating{
		ID:         e.newID("rating"),
		TargetID:   opts.TargetID,
		TargetRole: target.Role,
		FromID:     opts.FromID,
		FromRole:   from.Role,
		Stars:      opts.Stars,
		Comment:    opts.Comment,
		CreatedAt:  e.now().UnixMilli(),
		ProductID:  opts.ProductID,
		ShipmentID: opts.ShipmentID,
	}
	next := e.Store.Dispatch(store.AddRating{Rating: r})
	if opts.CommitTrust {
		score := store.TrustScore(next, opts.TargetID)
		if score != target.TrustScore {
			e.Store.Dispatch(store.UpdateUser{ID: opts.TargetID, Patch: store.UserPatch{TrustScore: &score}})
		}
	}
	return r, nil
}

// EscrowOptions are parameters for opening a simulated escrow.
type EscrowOptions struct {
	PayerID    string
	PayeeID    string
	ProductID  string
	ShipmentID string
	Amount     decimal.Decimal
	Condition  domain.ReleaseCondition
}

// OpenEscrow creates a payment in the escrowed state with its mock chain
// receipt.
func (e Engine) OpenEscrow(opts EscrowOptions) (domain.Payment, error) {
	if !opts.Amount.IsPositive() {
		return domain.Payment{}, errors.New("amount must be positive")
	}
	s := e.Store.State()
	if store.UserByID(s, opts.PayerID) == nil {
		return domain.Payment{}, fmt.Errorf("payer %s: %w", opts.PayerID, ErrNotFound)
	}
	if store.UserByID(s, opts.PayeeID) == nil {
		return domain.Payment{}, fmt.Errorf("payee %s: %w", opts.PayeeID, ErrNotFound)
	}
	if opts.Condition == "" {
		opts.Condition = domain.ReleaseOnDelivery
	}
	id := e.newID("pay")
	tx := e.Chain.PaymentEscrow(id, opts.Amount.String())
	p := domain.Payment{
		ID:               id,
		PayerID:          opts.PayerID,
		PayeeID:          opts.PayeeID,
		ProductID:        opts.ProductID,
		ShipmentID:       opts.ShipmentID,
		Amount:           opts.Amount,
		State:            domain.PaymentEscrowed,
		BlockchainTx:     tx.Hash,
		CreatedAt:        e.now().UnixMilli(),
		ReleaseCondition: opts.Condition,
		Currency:         e.currency(),
	}
	e.Store.Dispatch(store.AddPayment{Payment: p})
	return p, nil
}

// ensurePaymentTransition validates the escrow lifecycle: escrowed may
// move to released, disputed or refunded; all three are terminal.
func ensurePaymentTransition(old, next domain.PaymentState, force bool) error {
	if force {
		return nil
	}
	if old == domain.PaymentEscrowed &&
		(next == domain.PaymentReleased || next == domain.PaymentDisputed || next == domain.PaymentRefunded) {
		return nil
	}
	return InvalidTransitionError{Entity: "payment", From: string(old), To: string(next)}
}

func (e Engine) setPaymentState(id string, state domain.PaymentState, force bool) (domain.Payment, error) {
	s := e.Store.State()
	p := store.PaymentByID(s, id)
	if p == nil {
		return domain.Payment{}, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	if err := ensurePaymentTransition(p.State, state, force); err != nil {
		return *p, err
	}
	patch := store.PaymentPatch{State: &state}
	if state == domain.PaymentReleased {
		now := e.now().UnixMilli()
		tx := e.Chain.PaymentRelease(id, p.PayeeID)
		patch.ReleasedAt = &now
		patch.BlockchainTx = &tx.Hash
	}
	next := e.Store.Dispatch(store.UpdatePayment{ID: id, Patch: patch})
	return *store.PaymentByID(next, id), nil
}

func (e Engine) ReleasePayment(id string, force bool) (domain.Payment, error) {
	return e.setPaymentState(id, domain.PaymentReleased, force)
}

func (e Engine) DisputePayment(id string, force bool) (domain.Payment, error) {
	return e.setPaymentState(id, domain.PaymentDisputed, force)
}

func (e Engine) RefundPayment(id string, force bool) (domain.Payment, error) {
	return e.setPaymentState(id, domain.PaymentRefunded, force)
}

// Events are often appended in bursts (one per product on a shipment), so
// a millisecond timestamp alone cannot key them.
var eventSeq atomic.Int64

func (e Engine) newEventID() string {
	return fmt.Sprintf("event-%d-%d", e.now().UnixMilli(), eventSeq.Add(1))
}

// appendEvent stamps id and timestamp and dispatches the append.
func (e Engine) appendEvent(ev domain.Event) domain.Event {
	if ev.ID == "" {
		ev.ID = e.newEventID()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = e.now().UnixMilli()
	}
	e.Store.Dispatch(store.AddEvent{Event: ev})
	return ev
}

func (e Engine) appendShipmentEvent(sh domain.Shipment, evtType domain.EventType, actorID, txHash, notes string) {
	role := actorRole(e.Store.State(), actorID)
	for _, pid := range sh.ProductIDs {
		e.appendEvent(domain.Event{
			ProductID:    pid,
			ShipmentID:   sh.ID,
			ActorID:      actorID,
			ActorRole:    role,
			Type:         evtType,
			BlockchainTx: txHash,
			Notes:        notes,
		})
	}
}

func actorRole(s domain.AppState, actorID string) domain.Role {
	if u := store.UserByID(s, actorID); u != nil {
		return u.Role
	}
	return domain.RoleAdmin
}
