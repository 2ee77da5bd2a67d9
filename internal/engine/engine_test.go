package engine_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"greenledger/internal/chain"
	"greenledger/internal/config"
	"greenledger/internal/domain"
	"greenledger/internal/engine"
	"greenledger/internal/store"
)

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) engine.Engine {
	t.Helper()
	st := store.New(store.DemoState(testClock.UnixMilli()), nil)
	e := engine.New(st, config.Default())
	e.Now = func() time.Time { return testClock }
	e.Chain = chain.Minter{
		Rand: rand.New(rand.NewSource(1)),
		Now:  func() time.Time { return testClock },
	}
	return e
}

func TestRegisterProductFlow(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.RegisterProduct(engine.ProductRegisterOptions{
		Name:     "Kandhamal Turmeric",
		Category: domain.CropTurmeric,
		Quantity: 250,
		FarmerID: "farmer-1",
		Location: "Kandhamal",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Status != domain.ProductRegistered {
		t.Fatalf("want registered, got %s", p.Status)
	}
	if p.District != "koraput" {
		t.Fatalf("district should default to the farmer's, got %s", p.District)
	}
	if p.Unit != "kg" {
		t.Fatalf("unit should default to kg, got %s", p.Unit)
	}
	if p.HarvestDate != testClock.UnixMilli() {
		t.Fatalf("harvest date should default to now")
	}
	if len(p.BlockchainTx) != 66 || p.BlockchainTx[:2] != "0x" {
		t.Fatalf("bad chain receipt %q", p.BlockchainTx)
	}
	if p.QRCodeID == "" || p.QRCodeID[:3] != "gl-" {
		t.Fatalf("bad verification code %q", p.QRCodeID)
	}

	events := store.EventsForProduct(e.State(), p.ID)
	if len(events) != 1 || events[0].Type != domain.EventRegistration {
		t.Fatalf("want one registration event, got %+v", events)
	}
	if events[0].BlockchainTx != p.BlockchainTx {
		t.Fatalf("event should carry the registration receipt")
	}
}

func TestRegisterProductValidation(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.RegisterProduct(engine.ProductRegisterOptions{Quantity: 1, FarmerID: "farmer-1"}); err == nil {
		t.Fatalf("want error for empty name")
	}
	if _, err := e.RegisterProduct(engine.ProductRegisterOptions{Name: "x", Quantity: 0, FarmerID: "farmer-1"}); err == nil {
		t.Fatalf("want error for zero quantity")
	}
	_, err := e.RegisterProduct(engine.ProductRegisterOptions{Name: "x", Quantity: 1, FarmerID: "ghost"})
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown farmer, got %v", err)
	}
}

func TestProductStatusTransitions(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.RegisterProduct(engine.ProductRegisterOptions{
		Name: "Paddy", Category: domain.CropPaddy, Quantity: 100, FarmerID: "farmer-2",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// skipping pickup_scheduled is illegal
	_, err = e.UpdateProductStatus(p.ID, domain.ProductInTransit, engine.StatusUpdateOptions{})
	var te engine.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
	if te.Entity != "product" || te.From != "registered" || te.To != "in_transit" {
		t.Fatalf("unexpected transition error %+v", te)
	}

	// the same jump passes with force
	if _, err := e.UpdateProductStatus(p.ID, domain.ProductInTransit, engine.StatusUpdateOptions{Force: true}); err != nil {
		t.Fatalf("forced jump: %v", err)
	}

	// the ordered path works
	if _, err := e.UpdateProductStatus(p.ID, domain.ProductDelivered, engine.StatusUpdateOptions{ActorID: "transporter-1"}); err != nil {
		t.Fatalf("to delivered: %v", err)
	}
	got, err := e.ConfirmVerification(p.ID, engine.StatusUpdateOptions{ActorID: "retailer-1"})
	if err != nil || got.Status != domain.ProductVerified {
		t.Fatalf("to verified: %v (%s)", err, got.Status)
	}

	// verified is terminal, even for expiry
	if _, err := e.UpdateProductStatus(p.ID, domain.ProductExpired, engine.StatusUpdateOptions{}); err == nil {
		t.Fatalf("verified batch should not expire")
	}
}

func TestExpiryReachableFromActiveStates(t *testing.T) {
	e := newTestEngine(t)
	p, _ := e.RegisterProduct(engine.ProductRegisterOptions{
		Name: "Brinjal", Category: domain.CropBrinjal, Quantity: 40, FarmerID: "farmer-3",
	})
	if _, err := e.UpdateProductStatus(p.ID, domain.ProductExpired, engine.StatusUpdateOptions{}); err != nil {
		t.Fatalf("registered batch should expire: %v", err)
	}
}

func TestCreateShipmentEstimatesDelivery(t *testing.T) {
	e := newTestEngine(t)
	sh, err := e.CreateShipment(engine.ShipmentCreateOptions{
		ProductIDs:     []string{"prod-3"},
		OriginDistrict: "ganjam",
		DestDistrict:   "bhubaneswar",
		ActorID:        "farmer-3",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sh.Status != domain.ShipmentPending {
		t.Fatalf("want pending without a scheduled pickup, got %s", sh.Status)
	}
	if sh.EstimatedDelivery <= testClock.UnixMilli() {
		t.Fatalf("estimate should be in the future")
	}
}

func TestCreateShipmentWithPickupSchedulesAndLogs(t *testing.T) {
	e := newTestEngine(t)
	pickup := testClock.Add(6 * time.Hour).UnixMilli()
	sh, err := e.CreateShipment(engine.ShipmentCreateOptions{
		ProductIDs:      []string{"prod-3"},
		OriginDistrict:  "ganjam",
		DestDistrict:    "cuttack",
		ScheduledPickup: pickup,
		ActorID:         "farmer-3",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sh.Status != domain.ShipmentPickupScheduled {
		t.Fatalf("want pickup_scheduled, got %s", sh.Status)
	}
	events := store.EventsForShipment(e.State(), sh.ID)
	if len(events) != 1 || events[0].Type != domain.EventPickupScheduled {
		t.Fatalf("want one pickup_scheduled event, got %+v", events)
	}
}

func TestAssignTransporterRequiresRole(t *testing.T) {
	e := newTestEngine(t)
	sh, _ := e.CreateShipment(engine.ShipmentCreateOptions{
		ProductIDs: []string{"prod-3"}, OriginDistrict: "ganjam", DestDistrict: "cuttack",
	})

	if _, err := e.AssignTransporter(sh.ID, "retailer-1"); err == nil {
		t.Fatalf("retailer must not be assignable as transporter")
	}
	got, err := e.AssignTransporter(sh.ID, "transporter-2")
	if err != nil || got.TransporterID != "transporter-2" {
		t.Fatalf("assign: %v (%+v)", err, got)
	}
}

func TestShipmentDeliveryMirrorsProducts(t *testing.T) {
	e := newTestEngine(t)
	sh, err := e.CreateShipment(engine.ShipmentCreateOptions{
		ProductIDs:      []string{"prod-3"},
		TransporterID:   "transporter-1",
		OriginDistrict:  "ganjam",
		DestDistrict:    "bhubaneswar",
		ScheduledPickup: testClock.UnixMilli(),
		ActorID:         "farmer-3",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.SchedulePickup("prod-3", engine.StatusUpdateOptions{ActorID: "farmer-3"}); err != nil {
		t.Fatalf("schedule pickup: %v", err)
	}

	if _, err := e.UpdateShipmentStatus(sh.ID, domain.ShipmentPickedUp, engine.StatusUpdateOptions{ActorID: "transporter-1"}); err != nil {
		t.Fatalf("picked_up: %v", err)
	}
	if got := store.ShipmentByID(e.State(), sh.ID); got.ActualPickup != testClock.UnixMilli() {
		t.Fatalf("pickup time not stamped")
	}
	if p := store.ProductByID(e.State(), "prod-3"); p.Status != domain.ProductInTransit {
		t.Fatalf("carried product not mirrored, got %s", p.Status)
	}

	if _, err := e.UpdateShipmentStatus(sh.ID, domain.ShipmentInTransit, engine.StatusUpdateOptions{ActorID: "transporter-1"}); err != nil {
		t.Fatalf("in_transit: %v", err)
	}
	if _, err := e.UpdateShipmentStatus(sh.ID, domain.ShipmentDelivered, engine.StatusUpdateOptions{ActorID: "transporter-1"}); err != nil {
		t.Fatalf("delivered: %v", err)
	}
	if got := store.ShipmentByID(e.State(), sh.ID); got.ActualDelivery != testClock.UnixMilli() {
		t.Fatalf("delivery time not stamped")
	}
	if p := store.ProductByID(e.State(), "prod-3"); p.Status != domain.ProductDelivered {
		t.Fatalf("product should be delivered, got %s", p.Status)
	}

	// delivery never releases escrow by itself
	for _, pay := range e.State().Payments {
		if pay.ID == "pay-2" && pay.State != domain.PaymentEscrowed {
			t.Fatalf("delivery must not touch escrow")
		}
	}
}

func TestShipmentCancelBlockedAfterDelivery(t *testing.T) {
	e := newTestEngine(t)
	// ship-1 is delivered in the demo data
	_, err := e.UpdateShipmentStatus("ship-1", domain.ShipmentCancelled, engine.StatusUpdateOptions{})
	var te engine.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
}

func TestLogTelemetryAppendsPerProduct(t *testing.T) {
	e := newTestEngine(t)
	temp, hum := 24.5, 60.0
	sh, err := e.LogTelemetry("ship-2", engine.TelemetryOptions{
		Temperature: &temp,
		Humidity:    &hum,
		Location:    "NH-16 near Khordha",
		ActorID:     "transporter-1",
	})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	if sh.Temperature == nil || *sh.Temperature != 24.5 {
		t.Fatalf("temperature not recorded")
	}
	for _, pid := range sh.ProductIDs {
		events := store.EventsForProduct(e.State(), pid)
		last := events[len(events)-1]
		if last.Type != domain.EventTemperatureLog || last.Temperature == nil || *last.Temperature != 24.5 {
			t.Fatalf("product %s missing temperature_log event", pid)
		}
	}
}

func TestVerifyCode(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.VerifyCode("gl-prod001")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Product.ID != "prod-1" {
		t.Fatalf("want prod-1, got %s", res.Product.ID)
	}
	if res.Farmer == nil || res.Farmer.ID != "farmer-1" {
		t.Fatalf("farmer not resolved")
	}
	if !res.ChainOK {
		t.Fatalf("demo receipt should verify")
	}
	if len(res.Timeline) == 0 {
		t.Fatalf("timeline empty")
	}
	for i := 1; i < len(res.Timeline); i++ {
		if res.Timeline[i].Timestamp < res.Timeline[i-1].Timestamp {
			t.Fatalf("timeline out of order")
		}
	}

	if _, err := e.VerifyCode("not-a-code"); err == nil {
		t.Fatalf("malformed code should fail")
	}
	if _, err := e.VerifyCode("gl-missing1"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("unknown code: want ErrNotFound, got %v", err)
	}
}

func TestVerifyCodeIsReadOnly(t *testing.T) {
	e := newTestEngine(t)
	before := e.State()
	if _, err := e.VerifyCode("gl-prod001"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	after := e.State()
	if len(after.Events) != len(before.Events) {
		t.Fatalf("scanning must not append events")
	}
}

func TestAddRatingCommitTrust(t *testing.T) {
	e := newTestEngine(t)
	r, err := e.AddRating(engine.RatingOptions{
		TargetID:    "farmer-1",
		FromID:      "retailer-1",
		Stars:       5,
		Comment:     "excellent turmeric",
		CommitTrust: true,
	})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r.Stars != 5 || r.TargetID != "farmer-1" {
		t.Fatalf("bad rating %+v", r)
	}
	u := store.UserByID(e.State(), "farmer-1")
	// two 5-star ratings now: base 100, success 11/12 -> 98
	if u.TrustScore != 98 {
		t.Fatalf("want committed trust 98, got %d", u.TrustScore)
	}
}

func TestAddRatingWithoutCommitLeavesScore(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddRating(engine.RatingOptions{TargetID: "farmer-2", FromID: "retailer-1", Stars: 3}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if u := store.UserByID(e.State(), "farmer-2"); u.TrustScore != 92 {
		t.Fatalf("stored score must not move without commit, got %d", u.TrustScore)
	}
}

func TestAddRatingValidation(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddRating(engine.RatingOptions{TargetID: "farmer-1", FromID: "retailer-1", Stars: 6}); err == nil {
		t.Fatalf("want error for 6 stars")
	}
	if _, err := e.AddRating(engine.RatingOptions{TargetID: "farmer-1", FromID: "retailer-1", Stars: 0}); err == nil {
		t.Fatalf("want error for 0 stars")
	}
	if _, err := e.AddRating(engine.RatingOptions{TargetID: "ghost", FromID: "retailer-1", Stars: 4}); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown target")
	}
}

func TestPaymentLifecycle(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.OpenEscrow(engine.EscrowOptions{
		PayerID:   "retailer-1",
		PayeeID:   "farmer-1",
		ProductID: "prod-1",
		Amount:    decimal.RequireFromString("7500.50"),
		Condition: domain.ReleaseOnDelivery,
	})
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if p.State != domain.PaymentEscrowed {
		t.Fatalf("want escrowed, got %s", p.State)
	}
	if p.Currency != "INR" {
		t.Fatalf("currency should default from config, got %s", p.Currency)
	}
	if !p.Amount.Equal(decimal.RequireFromString("7500.50")) {
		t.Fatalf("amount drifted: %s", p.Amount)
	}

	released, err := e.ReleasePayment(p.ID, false)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.State != domain.PaymentReleased || released.ReleasedAt != testClock.UnixMilli() {
		t.Fatalf("bad release %+v", released)
	}

	// released is terminal
	if _, err := e.RefundPayment(p.ID, false); err == nil {
		t.Fatalf("released payment must not refund")
	}
	var te engine.InvalidTransitionError
	if _, err := e.DisputePayment(p.ID, false); !errors.As(err, &te) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
}

func TestOpenEscrowValidation(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.OpenEscrow(engine.EscrowOptions{
		PayerID: "retailer-1", PayeeID: "farmer-1", Amount: decimal.Zero,
	}); err == nil {
		t.Fatalf("want error for zero amount")
	}
	if _, err := e.OpenEscrow(engine.EscrowOptions{
		PayerID: "ghost", PayeeID: "farmer-1", Amount: decimal.NewFromInt(10),
	}); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown payer")
	}
}

func TestSetCurrentUser(t *testing.T) {
	e := newTestEngine(t)
	u, err := e.SetCurrentUser("retailer-1")
	if err != nil || u.ID != "retailer-1" {
		t.Fatalf("switch: %v", err)
	}
	if got := e.State().CurrentUser; got == nil || got.ID != "retailer-1" {
		t.Fatalf("session user not switched")
	}
	if _, err := e.SetCurrentUser("ghost"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateUserDefaults(t *testing.T) {
	e := newTestEngine(t)
	u, err := e.CreateUser(engine.UserCreateOptions{Role: domain.RoleConsumer, Name: "Scanner"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.TrustScore != 50 {
		t.Fatalf("new users start at trust 50, got %d", u.TrustScore)
	}
	if _, err := e.CreateUser(engine.UserCreateOptions{Role: "pirate", Name: "Arr"}); err == nil {
		t.Fatalf("want error for unknown role")
	}
}

func TestResetDemoRestoresSeed(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.CreateUser(engine.UserCreateOptions{Role: domain.RoleConsumer, Name: "Extra"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	s := e.ResetDemo()
	if len(s.Users) != 7 {
		t.Fatalf("reset should restore 7 demo users, got %d", len(s.Users))
	}
}

func TestUpdateUserMissing(t *testing.T) {
	e := newTestEngine(t)
	name := "x"
	if _, err := e.UpdateUser("ghost", store.UserPatch{Name: &name}); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
