package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"testing"
	"time"

	"greenledger/internal/chain"
	"greenledger/internal/config"
	"greenledger/internal/db"
	"greenledger/internal/domain"
	"greenledger/internal/engine"
	"greenledger/internal/storage"
	"greenledger/internal/store"
)

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	adapter, err := storage.New(conn)
	if err != nil {
		t.Fatalf("storage adapter: %v", err)
	}
	st := store.New(store.DemoState(testClock.UnixMilli()), adapter)
	e := engine.New(st, config.Default())
	e.Now = func() time.Time { return testClock }
	e.Chain = chain.Minter{
		Rand: rand.New(rand.NewSource(1)),
		Now:  func() time.Time { return testClock },
	}
	handler, err := New(Config{Engine: e, Storage: adapter, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestVerifyEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/verify/gl-prod001", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d: %s", res.StatusCode, string(data))
	}
	var out VerificationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Product.ID != "prod-1" {
		t.Fatalf("want prod-1, got %s", out.Product.ID)
	}
	if out.Farmer == nil || out.Farmer.ID != "farmer-1" {
		t.Fatalf("farmer missing")
	}
	if !out.ChainOK || len(out.Timeline) == 0 {
		t.Fatalf("incomplete verification %+v", out)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/verify/gl-missing1", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown code status %d: %s", res.StatusCode, string(data))
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error.Code != "not_found" {
		t.Fatalf("want not_found, got %q", env.Error.Code)
	}
}

func TestRegisterProductWithActorHeader(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/products", map[string]any{
		"name":     "Kandhamal Turmeric",
		"category": "turmeric",
		"quantity": 250,
	}, map[string]string{"X-Actor-Id": "farmer-1"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal product: %v", err)
	}
	if p.FarmerID != "farmer-1" {
		t.Fatalf("farmer should come from the actor header, got %s", p.FarmerID)
	}
	if p.Status != domain.ProductRegistered || p.QRCodeID == "" {
		t.Fatalf("bad product %+v", p)
	}

	// the new batch resolves through its verification code
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/verify/"+p.QRCodeID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("verify new batch status %d: %s", res.StatusCode, string(data))
	}
}

func TestInvalidTransitionEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	// prod-3 is freshly registered; jumping straight to in_transit is illegal
	res, data := doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v0/products/prod-3/status", map[string]any{
		"status": "in_transit",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Error.Code != "invalid_transition" {
		t.Fatalf("want invalid_transition, got %q", env.Error.Code)
	}
	if env.Error.Details["from"] != "registered" || env.Error.Details["to"] != "in_transit" {
		t.Fatalf("details %+v", env.Error.Details)
	}

	// same jump with force passes
	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v0/products/prod-3/status", map[string]any{
		"status": "in_transit",
		"force":  true,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("forced status %d: %s", res.StatusCode, string(data))
	}
}

func TestPaymentEscrowAndRelease(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/payments", map[string]any{
		"payer_id": "retailer-1",
		"payee_id": "farmer-1",
		"amount":   "7500.50",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("escrow status %d: %s", res.StatusCode, string(data))
	}
	var created PaymentResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal payment: %v", err)
	}
	if created.State != "escrowed" || created.Amount != "7500.5" {
		t.Fatalf("bad payment %+v", created)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/payments/"+created.ID+"/release", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("release status %d: %s", res.StatusCode, string(data))
	}
	var released PaymentResponse
	if err := json.Unmarshal(data, &released); err != nil {
		t.Fatalf("unmarshal release: %v", err)
	}
	if released.State != "released" || released.ReleasedAt == 0 {
		t.Fatalf("bad release %+v", released)
	}

	// released escrow is terminal
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/payments/"+created.ID+"/refund", nil, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("refund status %d: %s", res.StatusCode, string(data))
	}
}

func TestPaymentRejectsBadAmount(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/payments", map[string]any{
		"payer_id": "retailer-1",
		"payee_id": "farmer-1",
		"amount":   "seven rupees",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestStateSummaryAndStorage(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/state", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state status %d: %s", res.StatusCode, string(data))
	}
	var summary StateSummaryResponse
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Users != 7 || summary.Products != 3 {
		t.Fatalf("unexpected demo counts %+v", summary)
	}

	// dispatching anything persists a snapshot in the slot
	if _, err := doJSONOK(t, client, http.MethodPut, srv.URL+"/v0/session/user", map[string]any{"actor_id": "retailer-1"}); err != nil {
		t.Fatalf("switch user: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/state/storage", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("storage status %d: %s", res.StatusCode, string(data))
	}
	var info StorageInfoResponse
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("unmarshal info: %v", err)
	}
	if !info.Stored || info.Version != storage.SchemaVersion {
		t.Fatalf("bad storage info %+v", info)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/state/storage", nil, nil)
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		t.Fatalf("clear status %d: %s", res.StatusCode, string(data))
	}
}

func doJSONOK(t *testing.T, client *http.Client, method, url string, body any) ([]byte, error) {
	t.Helper()
	res, data := doJSON(t, client, method, url, body, nil)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		t.Fatalf("%s %s status %d: %s", method, url, res.StatusCode, string(data))
	}
	return data, nil
}

func TestDistrictsEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/districts?region=southern", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("districts status %d: %s", res.StatusCode, string(data))
	}
	var ds []map[string]any
	if err := json.Unmarshal(data, &ds); err != nil {
		t.Fatalf("unmarshal districts: %v", err)
	}
	if len(ds) == 0 {
		t.Fatalf("southern region empty")
	}
	for _, d := range ds {
		if d["region"] != "southern" {
			t.Fatalf("filter leak: %+v", d)
		}
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/districts/distance?from=koraput&to=cuttack", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("distance status %d: %s", res.StatusCode, string(data))
	}
	var dist struct {
		DistanceKm     float64 `json:"distance_km"`
		EstimatedHours float64 `json:"estimated_hours"`
	}
	if err := json.Unmarshal(data, &dist); err != nil {
		t.Fatalf("unmarshal distance: %v", err)
	}
	if dist.DistanceKm <= 0 || dist.EstimatedHours < 2 {
		t.Fatalf("bad distance %+v", dist)
	}
}

func TestQRImageEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, err := srv.Client().Get(srv.URL + "/v0/products/prod-1/qr.png")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("qr status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}
}

func TestDevLoginIssuesToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id": "farmer-1",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}
	var out DevLoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if out.Token == "" || out.ActorID != "farmer-1" || out.Role != "farmer" {
		t.Fatalf("bad login response %+v", out)
	}
}
