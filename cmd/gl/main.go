package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"greenledger/internal/config"
	"greenledger/internal/db"
	"greenledger/internal/domain"
	"greenledger/internal/engine"
	"greenledger/internal/geo"
	"greenledger/internal/qr"
	"greenledger/internal/server"
	"greenledger/internal/storage"
	"greenledger/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "gl",
	Short: "GreenLedger CLI",
	Long: `GreenLedger traces Odisha farm produce from field to shelf.
Core concepts:
- Workspace: your .greenledger directory holding the single state slot.
- Users: farmer, transporter, retailer, consumer, and admin profiles with trust scores.
- Products: crop batches that move registered -> pickup_scheduled -> in_transit -> delivered -> verified.
- Shipments: transport jobs carrying one or more batches, with cold-chain telemetry.
- QR codes: every batch gets a gl- verification code consumers can scan.
- Payments: simulated escrows that release, refund, or enter dispute.
- Ratings: star reviews that feed the derived trust score.
- Event log: the audit diary, view with 'gl log tail'.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load(filepath.Join(viper.GetString("workspace"), ".env"))
	viper.SetEnvPrefix("GREENLEDGER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "acting user id (defaults to the session user)")
	rootCmd.PersistentFlags().Bool("force", false, "skip lifecycle transition checks")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(productCmd())
	rootCmd.AddCommand(shipmentCmd())
	rootCmd.AddCommand(rateCmd())
	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(districtCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default greenledger.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default()
			}
			return printJSONOrTable(cfg)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset state to the demo data set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.ResetDemo()
				fmt.Printf("Seeded %d users, %d products, %d shipments, %d events\n",
					len(s.Users), len(s.Products), len(s.Shipments), len(s.Events))
				return nil
			})
		},
	}
}

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage user profiles"}
	u.AddCommand(userListCmd())
	u.AddCommand(userAddCmd())
	u.AddCommand(userShowCmd())
	u.AddCommand(userUpdateCmd())
	u.AddCommand(userTrustCmd())
	u.AddCommand(userUseCmd())
	return u
}

func userListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.State()
				users := s.Users
				if role != "" {
					users = store.UsersByRole(s, domain.Role(role))
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "District", "Trust", "Deliveries"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Role, u.District, u.TrustScore,
						fmt.Sprintf("%d/%d", u.SuccessfulDeliveries, u.TotalTransactions)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	return cmd
}

func userAddCmd() *cobra.Command {
	var role, name, district, phone, email string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				u, err := e.CreateUser(engine.UserCreateOptions{
					Role:     domain.Role(role),
					Name:     name,
					District: district,
					Phone:    phone,
					Email:    email,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role (farmer, transporter, retailer, consumer, admin)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&district, "district", "", "home district")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				u := store.UserByID(e.State(), args[0])
				if u == nil {
					return fmt.Errorf("user %s not found", args[0])
				}
				return printJSONOrTable(u)
			})
		},
	}
}

func userUpdateCmd() *cobra.Command {
	var name, district, phone, email string
	var trust, transactions, deliveries int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				var patch store.UserPatch
				if cmd.Flags().Changed("name") {
					patch.Name = &name
				}
				if cmd.Flags().Changed("district") {
					patch.District = &district
				}
				if cmd.Flags().Changed("trust") {
					patch.TrustScore = &trust
				}
				if cmd.Flags().Changed("phone") {
					patch.Phone = &phone
				}
				if cmd.Flags().Changed("email") {
					patch.Email = &email
				}
				if cmd.Flags().Changed("transactions") {
					patch.TotalTransactions = &transactions
				}
				if cmd.Flags().Changed("deliveries") {
					patch.SuccessfulDeliveries = &deliveries
				}
				u, err := e.UpdateUser(args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&district, "district", "", "home district")
	cmd.Flags().IntVar(&trust, "trust", 0, "trust score (0-100)")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().IntVar(&transactions, "transactions", 0, "total transactions")
	cmd.Flags().IntVar(&deliveries, "deliveries", 0, "successful deliveries")
	return cmd
}

func userTrustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trust <id>",
		Short: "Show stored and derived trust score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.State()
				u := store.UserByID(s, args[0])
				if u == nil {
					return fmt.Errorf("user %s not found", args[0])
				}
				return printJSONOrTable(map[string]any{
					"user_id":       u.ID,
					"stored_score":  u.TrustScore,
					"derived_score": store.TrustScore(s, u.ID),
					"ratings":       len(store.RatingsForUser(s, u.ID)),
				})
			})
		},
	}
}

func userUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Switch the session user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				u, err := e.SetCurrentUser(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Session user is now %s (%s)\n", u.Name, u.Role)
				return nil
			})
		},
	}
}

func productCmd() *cobra.Command {
	p := &cobra.Command{Use: "product", Short: "Manage crop batches"}
	p.AddCommand(productRegisterCmd())
	p.AddCommand(productListCmd())
	p.AddCommand(productShowCmd())
	p.AddCommand(productStatusCmd())
	p.AddCommand(productEventsCmd())
	p.AddCommand(productQRCmd())
	return p
}

func productRegisterCmd() *cobra.Command {
	var name, category, variety, unit, district, description, location, farmer string
	var quantity, price float64
	var harvest, expiry int64
	var organic bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a crop batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				p, err := e.RegisterProduct(engine.ProductRegisterOptions{
					Name:             name,
					Category:         domain.CropType(category),
					Variety:          variety,
					Unit:             unit,
					Quantity:         quantity,
					FarmerID:         actorID(e, farmer),
					District:         district,
					HarvestDate:      harvest,
					ExpiryDate:       expiry,
					Description:      description,
					OrganicCertified: organic,
					PricePerUnit:     price,
					Location:         location,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "batch name")
	cmd.Flags().StringVar(&category, "category", "", "crop type (paddy, turmeric, ...)")
	cmd.Flags().StringVar(&variety, "variety", "", "crop variety")
	cmd.Flags().StringVar(&unit, "unit", "kg", "unit (kg, quintal, tonnes)")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity in units")
	cmd.Flags().StringVar(&district, "district", "", "origin district")
	cmd.Flags().Int64Var(&harvest, "harvest", 0, "harvest date (unix ms)")
	cmd.Flags().Int64Var(&expiry, "expiry", 0, "expiry date (unix ms)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().BoolVar(&organic, "organic", false, "organic certified")
	cmd.Flags().Float64Var(&price, "price", 0, "price per unit")
	cmd.Flags().StringVar(&location, "location", "", "registration location")
	cmd.Flags().StringVar(&farmer, "farmer", "", "farmer id (defaults to acting user)")
	return cmd
}

func productListCmd() *cobra.Command {
	var farmer string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List crop batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.State()
				items := s.Products
				if farmer != "" {
					items = store.ProductsByFarmer(s, farmer)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Category", "Qty", "Status", "Farmer", "QR"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Category,
						fmt.Sprintf("%g %s", p.Quantity, p.Unit), p.Status, p.FarmerID, p.QRCodeID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&farmer, "farmer", "", "filter by farmer id")
	return cmd
}

func productShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a crop batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				p := store.ProductByID(e.State(), args[0])
				if p == nil {
					return fmt.Errorf("product %s not found", args[0])
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func productStatusCmd() *cobra.Command {
	var status, location, notes string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Advance a batch through its lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				p, err := e.UpdateProductStatus(args[0], domain.ProductStatus(status), engine.StatusUpdateOptions{
					ActorID:  actorID(e, ""),
					Location: location,
					Notes:    notes,
					Force:    viper.GetBool("force"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&location, "location", "", "event location")
	cmd.Flags().StringVar(&notes, "notes", "", "event notes")
	return cmd
}

func productEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <id>",
		Short: "Show a batch's event timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				events := store.EventsForProduct(e.State(), args[0])
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Type", "Actor", "Location", "Notes"})
				for _, ev := range events {
					tw.AppendRow(table.Row{formatMillis(ev.Timestamp), ev.Type, ev.ActorID, ev.Location, ev.Notes})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func productQRCmd() *cobra.Command {
	var out string
	var size int
	cmd := &cobra.Command{
		Use:   "qr <id>",
		Short: "Write a batch's QR code PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				p := store.ProductByID(e.State(), args[0])
				if p == nil {
					return fmt.Errorf("product %s not found", args[0])
				}
				png, err := qr.PNG(cfg.Platform.BaseURL, p.QRCodeID, size)
				if err != nil {
					return err
				}
				if out == "" {
					out = p.QRCodeID + ".png"
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s (%s)\n", out, qr.VerifyURL(cfg.Platform.BaseURL, p.QRCodeID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default <code>.png)")
	cmd.Flags().IntVar(&size, "size", 256, "image size in pixels")
	return cmd
}

func shipmentCmd() *cobra.Command {
	s := &cobra.Command{Use: "shipment", Short: "Manage transport jobs"}
	s.AddCommand(shipmentCreateCmd())
	s.AddCommand(shipmentListCmd())
	s.AddCommand(shipmentShowCmd())
	s.AddCommand(shipmentAssignCmd())
	s.AddCommand(shipmentStatusCmd())
	s.AddCommand(shipmentTelemetryCmd())
	return s
}

func shipmentCreateCmd() *cobra.Command {
	var products []string
	var origin, dest, transporter string
	var pickup int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a transport job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				sh, err := e.CreateShipment(engine.ShipmentCreateOptions{
					ProductIDs:      products,
					TransporterID:   transporter,
					OriginDistrict:  origin,
					DestDistrict:    dest,
					ScheduledPickup: pickup,
					ActorID:         actorID(e, ""),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(sh)
			})
		},
	}
	cmd.Flags().StringSliceVar(&products, "products", nil, "product ids to carry")
	cmd.Flags().StringVar(&origin, "origin", "", "origin district")
	cmd.Flags().StringVar(&dest, "dest", "", "destination district")
	cmd.Flags().StringVar(&transporter, "transporter", "", "transporter id")
	cmd.Flags().Int64Var(&pickup, "pickup", 0, "scheduled pickup (unix ms)")
	return cmd
}

func shipmentListCmd() *cobra.Command {
	var transporter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transport jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.State()
				items := s.Shipments
				if transporter != "" {
					items = store.ShipmentsByTransporter(s, transporter)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Route", "Status", "Transporter", "Products"})
				for _, sh := range items {
					tw.AppendRow(table.Row{sh.ID,
						fmt.Sprintf("%s -> %s", sh.OriginDistrict, sh.DestDistrict),
						sh.Status, sh.TransporterID, len(sh.ProductIDs)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&transporter, "transporter", "", "filter by transporter id")
	return cmd
}

func shipmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transport job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				sh := store.ShipmentByID(e.State(), args[0])
				if sh == nil {
					return fmt.Errorf("shipment %s not found", args[0])
				}
				return printJSONOrTable(sh)
			})
		},
	}
}

func shipmentAssignCmd() *cobra.Command {
	var transporter string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign a transporter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				sh, err := e.AssignTransporter(args[0], transporter)
				if err != nil {
					return err
				}
				return printJSONOrTable(sh)
			})
		},
	}
	cmd.Flags().StringVar(&transporter, "transporter", "", "transporter id")
	return cmd
}

func shipmentStatusCmd() *cobra.Command {
	var status, location, notes string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Advance a transport job's lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				sh, err := e.UpdateShipmentStatus(args[0], domain.ShipmentStatus(status), engine.StatusUpdateOptions{
					ActorID:  actorID(e, ""),
					Location: location,
					Notes:    notes,
					Force:    viper.GetBool("force"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(sh)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&location, "location", "", "event location")
	cmd.Flags().StringVar(&notes, "notes", "", "event notes")
	return cmd
}

func shipmentTelemetryCmd() *cobra.Command {
	var temp, humidity, lat, lng float64
	var location, notes string
	cmd := &cobra.Command{
		Use:   "telemetry <id>",
		Short: "Record cold-chain readings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				opts := engine.TelemetryOptions{
					Location: location,
					Notes:    notes,
					ActorID:  actorID(e, ""),
				}
				if cmd.Flags().Changed("temp") {
					opts.Temperature = &temp
				}
				if cmd.Flags().Changed("humidity") {
					opts.Humidity = &humidity
				}
				if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
					opts.Coordinates = &domain.Coordinates{Lat: lat, Lng: lng}
				}
				sh, err := e.LogTelemetry(args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(sh)
			})
		},
	}
	cmd.Flags().Float64Var(&temp, "temp", 0, "temperature in celsius")
	cmd.Flags().Float64Var(&humidity, "humidity", 0, "relative humidity percent")
	cmd.Flags().Float64Var(&lat, "lat", 0, "current latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "current longitude")
	cmd.Flags().StringVar(&location, "location", "", "location description")
	cmd.Flags().StringVar(&notes, "notes", "", "reading notes")
	return cmd
}

func rateCmd() *cobra.Command {
	var target, comment, product, shipment string
	var stars int
	var commit bool
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Submit a star review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				r, err := e.AddRating(engine.RatingOptions{
					TargetID:    target,
					FromID:      actorID(e, ""),
					Stars:       stars,
					Comment:     comment,
					ProductID:   product,
					ShipmentID:  shipment,
					CommitTrust: commit,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "rated user id")
	cmd.Flags().IntVar(&stars, "stars", 0, "stars (1-5)")
	cmd.Flags().StringVar(&comment, "comment", "", "review comment")
	cmd.Flags().StringVar(&product, "product", "", "related product id")
	cmd.Flags().StringVar(&shipment, "shipment", "", "related shipment id")
	cmd.Flags().BoolVar(&commit, "commit-trust", false, "write the recomputed trust score back")
	return cmd
}

func payCmd() *cobra.Command {
	p := &cobra.Command{Use: "pay", Short: "Manage escrow payments"}
	p.AddCommand(payCreateCmd())
	p.AddCommand(payListCmd())
	p.AddCommand(payTransitionCmd("release", "Release escrow to the payee",
		func(e engine.Engine, id string, force bool) (domain.Payment, error) { return e.ReleasePayment(id, force) }))
	p.AddCommand(payTransitionCmd("dispute", "Dispute an escrowed payment",
		func(e engine.Engine, id string, force bool) (domain.Payment, error) { return e.DisputePayment(id, force) }))
	p.AddCommand(payTransitionCmd("refund", "Refund escrow to the payer",
		func(e engine.Engine, id string, force bool) (domain.Payment, error) { return e.RefundPayment(id, force) }))
	return p
}

func payCreateCmd() *cobra.Command {
	var payer, payee, product, shipment, amount, condition string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an escrow payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				amt, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid --amount %q", amount)
				}
				p, err := e.OpenEscrow(engine.EscrowOptions{
					PayerID:    actorID(e, payer),
					PayeeID:    payee,
					ProductID:  product,
					ShipmentID: shipment,
					Amount:     amt,
					Condition:  domain.ReleaseCondition(condition),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&payer, "payer", "", "payer id (defaults to acting user)")
	cmd.Flags().StringVar(&payee, "payee", "", "payee id")
	cmd.Flags().StringVar(&product, "product", "", "related product id")
	cmd.Flags().StringVar(&shipment, "shipment", "", "related shipment id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12500.00")
	cmd.Flags().StringVar(&condition, "condition", "", "release condition")
	return cmd
}

func payListCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.State()
				items := s.Payments
				if user != "" {
					items = store.PaymentsForUser(s, user)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Payer", "Payee", "Amount", "State"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.PayerID, p.PayeeID,
						fmt.Sprintf("%s %s", p.Amount.StringFixed(2), p.Currency), p.State})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "filter by payer or payee id")
	return cmd
}

func payTransitionCmd(verb, short string, apply func(engine.Engine, string, bool) (domain.Payment, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				p, err := apply(e, args[0], viper.GetBool("force"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code-or-url>",
		Short: "Resolve a scanned verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				code := args[0]
				if strings.Contains(code, "/verify/") {
					code = qr.CodeFromURL(code)
				}
				res, err := e.VerifyCode(code)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				farmer := "unknown"
				if res.Farmer != nil {
					farmer = fmt.Sprintf("%s (%s, trust %d)", res.Farmer.Name, res.Farmer.District, res.Farmer.TrustScore)
				}
				fmt.Printf("%s — %s %s, %g %s\n", res.Product.Name, res.Product.Category, res.Product.Variety,
					res.Product.Quantity, res.Product.Unit)
				fmt.Println("Farmer:", farmer)
				fmt.Println("Status:", res.Product.Status)
				fmt.Println("Chain receipt valid:", res.ChainOK)
				for _, ev := range res.Timeline {
					fmt.Printf("  %s  %-18s %s\n", formatMillis(ev.Timestamp), ev.Type, ev.Location)
				}
				return nil
			})
		},
	}
}

func districtCmd() *cobra.Command {
	d := &cobra.Command{Use: "district", Short: "Odisha district directory"}
	d.AddCommand(districtListCmd())
	d.AddCommand(districtDistanceCmd())
	return d
}

func districtListCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List districts",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := geo.Districts()
			if region != "" {
				items = geo.DistrictsByRegion(geo.Region(region))
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Region", "Lat", "Lng"})
			for _, d := range items {
				tw.AppendRow(table.Row{d.ID, d.Name, d.Region, d.Centroid.Lat, d.Centroid.Lng})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "filter by region")
	return cmd
}

func districtDistanceCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Distance and delivery estimate between districts",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := geo.DistrictByID(from)
			t := geo.DistrictByID(to)
			if f == nil || t == nil {
				return fmt.Errorf("unknown district (from=%q to=%q)", from, to)
			}
			return printJSONOrTable(map[string]any{
				"from":            f.ID,
				"to":              t.ID,
				"distance_km":     geo.Distance(*f, *t),
				"estimated_hours": geo.EstimateDeliveryHours(f.ID, t.ID),
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "origin district id")
	cmd.Flags().StringVar(&to, "to", "", "destination district id")
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, productID, shipmentID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				events := e.State().Events
				filtered := events[:0:0]
				for _, ev := range events {
					if evtType != "" && string(ev.Type) != evtType {
						continue
					}
					if productID != "" && ev.ProductID != productID {
						continue
					}
					if shipmentID != "" && ev.ShipmentID != shipmentID {
						continue
					}
					filtered = append(filtered, ev)
				}
				if len(filtered) > n {
					filtered = filtered[len(filtered)-n:]
				}
				if viper.GetBool("json") {
					return printJSON(filtered)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Type", "Product", "Actor", "Location"})
				for _, ev := range filtered {
					tw.AppendRow(table.Row{formatMillis(ev.Timestamp), ev.Type, ev.ProductID, ev.ActorID, ev.Location})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&productID, "product", "", "product id filter")
	cmd.Flags().StringVar(&shipmentID, "shipment", "", "shipment id filter")
	return cmd
}

func stateCmd() *cobra.Command {
	s := &cobra.Command{Use: "state", Short: "Inspect or clear persisted state"}
	s.AddCommand(stateInfoCmd())
	s.AddCommand(stateClearCmd())
	return s
}

func stateInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show state summary and the persisted slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				s := e.State()
				out := map[string]any{
					"users":     len(s.Users),
					"products":  len(s.Products),
					"shipments": len(s.Shipments),
					"events":    len(s.Events),
					"ratings":   len(s.Ratings),
					"payments":  len(s.Payments),
					"stored":    false,
				}
				if s.CurrentUser != nil {
					out["current_user"] = s.CurrentUser.ID
				}
				if info := ad.Info(); info != nil {
					out["stored"] = true
					out["slot_version"] = info.Version
					out["slot_saved_at"] = formatMillis(info.Timestamp)
				}
				return printJSONOrTable(out)
			})
		},
	}
}

func stateClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the persisted slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			ad, err := storage.New(conn)
			if err != nil {
				return err
			}
			ad.Clear()
			fmt.Println("Cleared", db.Path(workspace))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(e engine.Engine, ad *storage.Adapter, cfg *config.Config) error {
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				secret := cfg.Server.JWTSecret
				if env := os.Getenv("GREENLEDGER_JWT_SECRET"); env != "" {
					secret = env
				}
				handler, err := server.New(server.Config{
					Engine:   e,
					Storage:  ad,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: secret},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-cmd.Context().Done()
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(ctx)
				}()
				fmt.Printf("Serving GreenLedger API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

// withEngine opens the workspace slot, loads or seeds state, and hands a
// wired engine to fn. Dispatches persist back to the slot automatically.
func withEngine(fn func(engine.Engine, *storage.Adapter, *config.Config) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	ad, err := storage.New(conn)
	if err != nil {
		return err
	}
	initial := ad.Load()
	if initial == nil {
		var fresh domain.AppState
		if cfg.Demo.AutoSeed {
			fresh = store.DemoState(time.Now().UnixMilli())
		}
		initial = &fresh
	}
	st := store.New(*initial, ad)
	e := engine.New(st, cfg)
	return fn(e, ad, cfg)
}

// actorID picks the acting user: explicit value, then --actor-id, then
// the session user, then the configured demo actor.
func actorID(e engine.Engine, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if flag := viper.GetString("actor-id"); flag != "" {
		return flag
	}
	if cu := e.State().CurrentUser; cu != nil {
		return cu.ID
	}
	if e.Config != nil {
		return e.Config.Demo.DefaultActor
	}
	return ""
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
