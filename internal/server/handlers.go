package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"greenledger/internal/domain"
	"greenledger/internal/engine"
	"greenledger/internal/geo"
	"greenledger/internal/qr"
	"greenledger/internal/storage"
	"greenledger/internal/store"
)

func engineNow(e engine.Engine) time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func registerSessions(api huma.API, e engine.Engine, auth AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Issue a dev session token",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		u := store.UserByID(e.State(), input.Body.ActorID)
		if u == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "user "+input.Body.ActorID+" not found", nil)
		}
		token, err := auth.issueToken(u.ID, string(u.Role), engineNow(e))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token, ActorID: u.ID, Role: string(u.Role)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session-user",
		Method:      http.MethodGet,
		Path:        "/session/user",
		Summary:     "Get the active session user",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body *domain.UserProfile `json:"body"`
	}, error) {
		return &struct {
			Body *domain.UserProfile `json:"body"`
		}{Body: e.State().CurrentUser}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-session-user",
		Method:      http.MethodPut,
		Path:        "/session/user",
		Summary:     "Switch the active session user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			UserID string `json:"user_id"`
		} `json:"body"`
	}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		u, err := e.SetCurrentUser(input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: u}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user profile",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		u, err := e.CreateUser(engine.UserCreateOptions{
			Role:     domain.Role(input.Body.Role),
			Name:     input.Body.Name,
			District: input.Body.District,
			Phone:    input.Body.Phone,
			Email:    input.Body.Email,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List user profiles",
	}, func(ctx context.Context, input *struct {
		Role string `query:"role"`
	}) (*struct {
		Body []domain.UserProfile `json:"body"`
	}, error) {
		s := e.State()
		users := s.Users
		if input.Role != "" {
			users = store.UsersByRole(s, domain.Role(input.Role))
		}
		return &struct {
			Body []domain.UserProfile `json:"body"`
		}{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get user profile",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		u := store.UserByID(e.State(), input.ID)
		if u == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "user "+input.ID+" not found", nil)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: *u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update user profile",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateUserRequest `json:"body"`
	}) (*struct {
		Body domain.UserProfile `json:"body"`
	}, error) {
		u, err := e.UpdateUser(input.ID, store.UserPatch{
			Name:                 input.Body.Name,
			District:             input.Body.District,
			TrustScore:           input.Body.TrustScore,
			Phone:                input.Body.Phone,
			Email:                input.Body.Email,
			TotalTransactions:    input.Body.TotalTransactions,
			SuccessfulDeliveries: input.Body.SuccessfulDeliveries,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.UserProfile `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user-trust",
		Method:      http.MethodGet,
		Path:        "/users/{id}/trust",
		Summary:     "Derived trust score",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body TrustResponse `json:"body"`
	}, error) {
		s := e.State()
		u := store.UserByID(s, input.ID)
		if u == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "user "+input.ID+" not found", nil)
		}
		return &struct {
			Body TrustResponse `json:"body"`
		}{Body: TrustResponse{
			UserID:       u.ID,
			StoredScore:  u.TrustScore,
			DerivedScore: store.TrustScore(s, u.ID),
			Ratings:      len(store.RatingsForUser(s, u.ID)),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-ratings",
		Method:      http.MethodGet,
		Path:        "/users/{id}/ratings",
		Summary:     "Ratings received by a user",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.Rating `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Rating `json:"body"`
		}{Body: store.RatingsForUser(e.State(), input.ID)}, nil
	})
}

func registerProducts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-product",
		Method:        http.MethodPost,
		Path:          "/products",
		Summary:       "Register crop batch",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body RegisterProductRequest `json:"body"`
	}) (*struct {
		Body domain.Product `json:"body"`
	}, error) {
		farmerID := resolveActor(ctx, e, input.Body.FarmerID)
		p, err := e.RegisterProduct(engine.ProductRegisterOptions{
			Name:             input.Body.Name,
			Category:         domain.CropType(input.Body.Category),
			Variety:          input.Body.Variety,
			Unit:             input.Body.Unit,
			Quantity:         input.Body.Quantity,
			FarmerID:         farmerID,
			District:         input.Body.District,
			HarvestDate:      input.Body.HarvestDate,
			ExpiryDate:       input.Body.ExpiryDate,
			Description:      input.Body.Description,
			OrganicCertified: input.Body.OrganicCertified,
			PricePerUnit:     input.Body.PricePerUnit,
			Location:         input.Body.Location,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Product `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-products",
		Method:      http.MethodGet,
		Path:        "/products",
		Summary:     "List crop batches",
	}, func(ctx context.Context, input *struct {
		FarmerID string `query:"farmer_id"`
	}) (*struct {
		Body []domain.Product `json:"body"`
	}, error) {
		s := e.State()
		items := s.Products
		if input.FarmerID != "" {
			items = store.ProductsByFarmer(s, input.FarmerID)
		}
		return &struct {
			Body []domain.Product `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-product",
		Method:      http.MethodGet,
		Path:        "/products/{id}",
		Summary:     "Get crop batch",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Product `json:"body"`
	}, error) {
		p := store.ProductByID(e.State(), input.ID)
		if p == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "product "+input.ID+" not found", nil)
		}
		return &struct {
			Body domain.Product `json:"body"`
		}{Body: *p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-product-status",
		Method:      http.MethodPatch,
		Path:        "/products/{id}/status",
		Summary:     "Advance crop batch lifecycle",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body SetProductStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Product `json:"body"`
	}, error) {
		p, err := e.UpdateProductStatus(input.ID, domain.ProductStatus(input.Body.Status), engine.StatusUpdateOptions{
			ActorID:  resolveActor(ctx, e, ""),
			Location: input.Body.Location,
			Notes:    input.Body.Notes,
			Force:    input.Body.Force,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Product `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-product",
		Method:      http.MethodPost,
		Path:        "/products/{id}/verify",
		Summary:     "Confirm delivery verification",
		Errors: []int{
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Location string `json:"location,omitempty"`
			Notes    string `json:"notes,omitempty"`
			Force    bool   `json:"force,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Product `json:"body"`
	}, error) {
		p, err := e.ConfirmVerification(input.ID, engine.StatusUpdateOptions{
			ActorID:  resolveActor(ctx, e, ""),
			Location: input.Body.Location,
			Notes:    input.Body.Notes,
			Force:    input.Body.Force,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Product `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "product-events",
		Method:      http.MethodGet,
		Path:        "/products/{id}/events",
		Summary:     "Product event timeline",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: store.EventsForProduct(e.State(), input.ID)}, nil
	})
}

// registerProductQR serves the QR image directly on the chi router; huma
// handles JSON bodies only.
func registerProductQR(r chi.Router, e engine.Engine, basePath string) {
	r.Get(basePath+"/products/{id}/qr.png", func(w http.ResponseWriter, req *http.Request) {
		p := store.ProductByID(e.State(), chi.URLParam(req, "id"))
		if p == nil {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		size := 256
		if raw := req.URL.Query().Get("size"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n >= 64 && n <= 2048 {
				size = n
			}
		}
		baseURL := ""
		if e.Config != nil {
			baseURL = e.Config.Platform.BaseURL
		}
		png, err := qr.PNG(baseURL, p.QRCodeID, size)
		if err != nil {
			http.Error(w, "qr encoding failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})
}

func registerShipments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-shipment",
		Method:        http.MethodPost,
		Path:          "/shipments",
		Summary:       "Create transport job",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateShipmentRequest `json:"body"`
	}) (*struct {
		Body domain.Shipment `json:"body"`
	}, error) {
		sh, err := e.CreateShipment(engine.ShipmentCreateOptions{
			ProductIDs:      input.Body.ProductIDs,
			TransporterID:   input.Body.TransporterID,
			OriginDistrict:  input.Body.OriginDistrict,
			DestDistrict:    input.Body.DestDistrict,
			ScheduledPickup: input.Body.ScheduledPickup,
			ActorID:         resolveActor(ctx, e, ""),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Shipment `json:"body"`
		}{Body: sh}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-shipments",
		Method:      http.MethodGet,
		Path:        "/shipments",
		Summary:     "List transport jobs",
	}, func(ctx context.Context, input *struct {
		TransporterID string `query:"transporter_id"`
	}) (*struct {
		Body []domain.Shipment `json:"body"`
	}, error) {
		s := e.State()
		items := s.Shipments
		if input.TransporterID != "" {
			items = store.ShipmentsByTransporter(s, input.TransporterID)
		}
		return &struct {
			Body []domain.Shipment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-shipment",
		Method:      http.MethodGet,
		Path:        "/shipments/{id}",
		Summary:     "Get transport job",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Shipment `json:"body"`
	}, error) {
		sh := store.ShipmentByID(e.State(), input.ID)
		if sh == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "shipment "+input.ID+" not found", nil)
		}
		return &struct {
			Body domain.Shipment `json:"body"`
		}{Body: *sh}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-transporter",
		Method:      http.MethodPost,
		Path:        "/shipments/{id}/assign",
		Summary:     "Assign transporter",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			TransporterID string `json:"transporter_id"`
		} `json:"body"`
	}) (*struct {
		Body domain.Shipment `json:"body"`
	}, error) {
		sh, err := e.AssignTransporter(input.ID, input.Body.TransporterID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Shipment `json:"body"`
		}{Body: sh}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-shipment-status",
		Method:      http.MethodPatch,
		Path:        "/shipments/{id}/status",
		Summary:     "Advance transport lifecycle",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                   `path:"id"`
		Body SetShipmentStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Shipment `json:"body"`
	}, error) {
		sh, err := e.UpdateShipmentStatus(input.ID, domain.ShipmentStatus(input.Body.Status), engine.StatusUpdateOptions{
			ActorID:  resolveActor(ctx, e, ""),
			Location: input.Body.Location,
			Notes:    input.Body.Notes,
			Force:    input.Body.Force,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Shipment `json:"body"`
		}{Body: sh}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "log-telemetry",
		Method:      http.MethodPost,
		Path:        "/shipments/{id}/telemetry",
		Summary:     "Record cold-chain readings",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body TelemetryRequest `json:"body"`
	}) (*struct {
		Body domain.Shipment `json:"body"`
	}, error) {
		sh, err := e.LogTelemetry(input.ID, engine.TelemetryOptions{
			Temperature: input.Body.Temperature,
			Humidity:    input.Body.Humidity,
			Location:    input.Body.Location,
			Coordinates: input.Body.Coordinates,
			ActorID:     resolveActor(ctx, e, ""),
			Notes:       input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Shipment `json:"body"`
		}{Body: sh}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shipment-events",
		Method:      http.MethodGet,
		Path:        "/shipments/{id}/events",
		Summary:     "Shipment event timeline",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: store.EventsForShipment(e.State(), input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shipment-route",
		Method:      http.MethodGet,
		Path:        "/shipments/{id}/route",
		Summary:     "Simulated route position",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID       string  `path:"id"`
		Progress float64 `query:"progress" minimum:"0" maximum:"100" default:"50"`
	}) (*struct {
		Body geo.RouteProgress `json:"body"`
	}, error) {
		sh := store.ShipmentByID(e.State(), input.ID)
		if sh == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "shipment "+input.ID+" not found", nil)
		}
		rp := geo.Progress(sh.ID, sh.OriginDistrict, sh.DestDistrict, input.Progress, engineNow(e))
		if rp == nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown origin or destination district", nil)
		}
		return &struct {
			Body geo.RouteProgress `json:"body"`
		}{Body: *rp}, nil
	})
}

func registerRatings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-rating",
		Method:        http.MethodPost,
		Path:          "/ratings",
		Summary:       "Submit star review",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateRatingRequest `json:"body"`
	}) (*struct {
		Body domain.Rating `json:"body"`
	}, error) {
		r, err := e.AddRating(engine.RatingOptions{
			TargetID:    input.Body.TargetID,
			FromID:      resolveActor(ctx, e, ""),
			Stars:       input.Body.Stars,
			Comment:     input.Body.Comment,
			ProductID:   input.Body.ProductID,
			ShipmentID:  input.Body.ShipmentID,
			CommitTrust: input.Body.CommitTrust,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rating `json:"body"`
		}{Body: r}, nil
	})
}

func registerPayments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-payment",
		Method:        http.MethodPost,
		Path:          "/payments",
		Summary:       "Open escrow payment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreatePaymentRequest `json:"body"`
	}) (*struct {
		Body PaymentResponse `json:"body"`
	}, error) {
		amount, err := decimal.NewFromString(strings.TrimSpace(input.Body.Amount))
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid amount", map[string]any{"amount": input.Body.Amount})
		}
		p, err := e.OpenEscrow(engine.EscrowOptions{
			PayerID:    resolveActor(ctx, e, input.Body.PayerID),
			PayeeID:    input.Body.PayeeID,
			ProductID:  input.Body.ProductID,
			ShipmentID: input.Body.ShipmentID,
			Amount:     amount,
			Condition:  domain.ReleaseCondition(input.Body.Condition),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PaymentResponse `json:"body"`
		}{Body: paymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-payments",
		Method:      http.MethodGet,
		Path:        "/payments",
		Summary:     "List payments",
	}, func(ctx context.Context, input *struct {
		UserID string `query:"user_id"`
	}) (*struct {
		Body []PaymentResponse `json:"body"`
	}, error) {
		s := e.State()
		items := s.Payments
		if input.UserID != "" {
			items = store.PaymentsForUser(s, input.UserID)
		}
		return &struct {
			Body []PaymentResponse `json:"body"`
		}{Body: mapPayments(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-payment",
		Method:      http.MethodGet,
		Path:        "/payments/{id}",
		Summary:     "Get payment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body PaymentResponse `json:"body"`
	}, error) {
		p := store.PaymentByID(e.State(), input.ID)
		if p == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "payment "+input.ID+" not found", nil)
		}
		return &struct {
			Body PaymentResponse `json:"body"`
		}{Body: paymentResponse(*p)}, nil
	})

	type paymentTransition struct {
		ID    string `path:"id"`
		Force bool   `query:"force"`
	}
	type paymentOut struct {
		Body PaymentResponse `json:"body"`
	}
	transitionErrors := []int{
		http.StatusNotFound,
		http.StatusUnprocessableEntity,
	}

	huma.Register(api, huma.Operation{
		OperationID: "release-payment",
		Method:      http.MethodPost,
		Path:        "/payments/{id}/release",
		Summary:     "Release escrow to payee",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *paymentTransition) (*paymentOut, error) {
		p, err := e.ReleasePayment(input.ID, input.Force)
		if err != nil {
			return nil, handleError(err)
		}
		return &paymentOut{Body: paymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dispute-payment",
		Method:      http.MethodPost,
		Path:        "/payments/{id}/dispute",
		Summary:     "Dispute escrowed payment",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *paymentTransition) (*paymentOut, error) {
		p, err := e.DisputePayment(input.ID, input.Force)
		if err != nil {
			return nil, handleError(err)
		}
		return &paymentOut{Body: paymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refund-payment",
		Method:      http.MethodPost,
		Path:        "/payments/{id}/refund",
		Summary:     "Refund escrow to payer",
		Errors:      transitionErrors,
	}, func(ctx context.Context, input *paymentTransition) (*paymentOut, error) {
		p, err := e.RefundPayment(input.ID, input.Force)
		if err != nil {
			return nil, handleError(err)
		}
		return &paymentOut{Body: paymentResponse(p)}, nil
	})
}

func registerVerify(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "verify-code",
		Method:      http.MethodGet,
		Path:        "/verify/{code}",
		Summary:     "Resolve a scanned verification code",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Code string `path:"code"`
	}) (*struct {
		Body VerificationResponse `json:"body"`
	}, error) {
		res, err := e.VerifyCode(input.Code)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body VerificationResponse `json:"body"`
		}{Body: VerificationResponse{
			Product:  res.Product,
			Farmer:   res.Farmer,
			Timeline: res.Timeline,
			ChainOK:  res.ChainOK,
		}}, nil
	})
}

func registerDistricts(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-districts",
		Method:      http.MethodGet,
		Path:        "/districts",
		Summary:     "List Odisha districts",
	}, func(ctx context.Context, input *struct {
		Region string `query:"region"`
	}) (*struct {
		Body []geo.District `json:"body"`
	}, error) {
		items := geo.Districts()
		if input.Region != "" {
			items = geo.DistrictsByRegion(geo.Region(input.Region))
		}
		return &struct {
			Body []geo.District `json:"body"`
		}{Body: items}, nil
	})

	type distanceOut struct {
		From           string  `json:"from"`
		To             string  `json:"to"`
		DistanceKm     float64 `json:"distance_km"`
		EstimatedHours float64 `json:"estimated_hours"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "district-distance",
		Method:      http.MethodGet,
		Path:        "/districts/distance",
		Summary:     "Distance and delivery estimate between districts",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		From string `query:"from" required:"true"`
		To   string `query:"to" required:"true"`
	}) (*struct {
		Body distanceOut `json:"body"`
	}, error) {
		from := geo.DistrictByID(input.From)
		to := geo.DistrictByID(input.To)
		if from == nil || to == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "unknown district", map[string]any{"from": input.From, "to": input.To})
		}
		return &struct {
			Body distanceOut `json:"body"`
		}{Body: distanceOut{
			From:           from.ID,
			To:             to.ID,
			DistanceKm:     geo.Distance(*from, *to),
			EstimatedHours: geo.EstimateDeliveryHours(from.ID, to.ID),
		}}, nil
	})
}

func registerAnalytics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "district-analytics",
		Method:      http.MethodGet,
		Path:        "/analytics/districts",
		Summary:     "Per-district activity",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []store.DistrictAnalytics `json:"body"`
	}, error) {
		return &struct {
			Body []store.DistrictAnalytics `json:"body"`
		}{Body: store.AnalyticsByDistrict(e.State())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "trust-distribution",
		Method:      http.MethodGet,
		Path:        "/analytics/trust",
		Summary:     "Trust score distribution",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []store.TrustBucket `json:"body"`
	}, error) {
		return &struct {
			Body []store.TrustBucket `json:"body"`
		}{Body: store.TrustDistribution(e.State())}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50" minimum:"1" maximum:"500"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		events := e.State().Events
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: events}, nil
	})
}

func registerState(api huma.API, e engine.Engine, adapter *storage.Adapter) {
	huma.Register(api, huma.Operation{
		OperationID: "state-summary",
		Method:      http.MethodGet,
		Path:        "/state",
		Summary:     "State summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StateSummaryResponse `json:"body"`
	}, error) {
		s := e.State()
		return &struct {
			Body StateSummaryResponse `json:"body"`
		}{Body: StateSummaryResponse{
			CurrentUser: s.CurrentUser,
			Users:       len(s.Users),
			Products:    len(s.Products),
			Shipments:   len(s.Shipments),
			Events:      len(s.Events),
			Ratings:     len(s.Ratings),
			Payments:    len(s.Payments),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-demo",
		Method:      http.MethodPost,
		Path:        "/state/reset",
		Summary:     "Reset to demo data",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StateSummaryResponse `json:"body"`
	}, error) {
		s := e.ResetDemo()
		return &struct {
			Body StateSummaryResponse `json:"body"`
		}{Body: StateSummaryResponse{
			CurrentUser: s.CurrentUser,
			Users:       len(s.Users),
			Products:    len(s.Products),
			Shipments:   len(s.Shipments),
			Events:      len(s.Events),
			Ratings:     len(s.Ratings),
			Payments:    len(s.Payments),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "storage-info",
		Method:      http.MethodGet,
		Path:        "/state/storage",
		Summary:     "Persisted slot info",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StorageInfoResponse `json:"body"`
	}, error) {
		resp := StorageInfoResponse{}
		if adapter != nil {
			if info := adapter.Info(); info != nil {
				resp = StorageInfoResponse{Stored: true, Version: info.Version, Timestamp: info.Timestamp}
			}
		}
		return &struct {
			Body StorageInfoResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-storage",
		Method:      http.MethodDelete,
		Path:        "/state/storage",
		Summary:     "Clear the persisted slot",
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if adapter != nil {
			adapter.Clear()
		}
		return &struct{}{}, nil
	})
}
