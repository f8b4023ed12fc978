package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"fleetboard-backend/internal/database"
	"fleetboard-backend/internal/handlers"
	"fleetboard-backend/internal/mapstate"
	"fleetboard-backend/internal/middleware"
	"fleetboard-backend/internal/services"
	"fleetboard-backend/internal/services/telemetry"
	"fleetboard-backend/internal/view"
	"fleetboard-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

// telemetrySink fans one normalized batch out to the map controller and the
// alarm watcher
type telemetrySink struct {
	ctrl    *mapstate.Controller
	watcher *services.GeofenceWatcher
}

func (s telemetrySink) UpdateVehicles(records []mapstate.PositionRecord) {
	s.ctrl.UpdateVehicles(records)
	s.watcher.CheckPositions(records)
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 FLEETBOARD BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Get database URL
	log.Println("🔍 Checking DATABASE_URL environment variable...")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in your deployment variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}
	log.Println("✅ DATABASE_URL found")

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	if err := database.SeedVehicleTypes(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Vehicle type seeding failed: %v", err)
	}

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Geocoding (optional, used for address resolution endpoints)
	geocodingService, err := services.NewGeocodingService()
	if err != nil {
		log.Printf("⚠️  Geocoding disabled: %v", err)
		geocodingService = nil
	} else {
		log.Println("✅ Geocoding service initialized")
	}

	// WebSocket hub, map state controller and overlay publisher. Fresh
	// connections get an immediate overlay sync.
	wsHub := websocket.NewHub()
	ctrl := mapstate.NewController()
	publisher := view.NewPublisher(ctrl, wsHub)
	wsHub.OnConnect(publisher.SyncUser)
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	publisher.Start(5 * time.Second)
	defer publisher.Stop()
	log.Println("✅ Map state controller ready")

	// Alarm watcher
	watcher := services.NewGeofenceWatcher(db, fcmService, wsHub)

	// Load persisted overlays into the controller
	if records, err := handlers.LoadGeofenceRecords(db); err != nil {
		log.Printf("⚠️  Failed to load geofences: %v", err)
	} else {
		ctrl.UpdateGeofences(records)
		watcher.SetGeofences(records)
		log.Printf("✅ Loaded %d geofences", len(records))
	}
	if markers, err := handlers.LoadMarkerDrawables(db); err != nil {
		log.Printf("⚠️  Failed to load markers: %v", err)
	} else {
		ctrl.SetMarkers(markers)
		log.Printf("✅ Loaded %d markers", len(markers))
	}
	if routes, err := handlers.LoadRouteDrawables(db); err != nil {
		log.Printf("⚠️  Failed to load routes: %v", err)
	} else {
		ctrl.SetRoutes(routes)
		log.Printf("✅ Loaded %d routes", len(routes))
	}

	// Restore declared coupling pairs
	var pairs []struct {
		TruckPlate   string `db:"truck_plate"`
		TrailerPlate string `db:"trailer_plate"`
	}
	if err := db.Select(&pairs, "SELECT truck_plate, trailer_plate FROM coupling_pairs"); err != nil {
		log.Printf("⚠️  Failed to load coupling pairs: %v", err)
	} else {
		for _, p := range pairs {
			ctrl.AddCouplingPair(p.TruckPlate, p.TrailerPlate)
		}
		log.Printf("✅ Loaded %d coupling pairs", len(pairs))
	}

	// Telemetry poller (optional: positions can also arrive via POST /api/positions)
	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	defer cancelPoller()
	if telemetryClient, err := telemetry.NewClient(); err != nil {
		log.Printf("⚠️  Telemetry poller disabled: %v", err)
	} else {
		go telemetryClient.Run(pollerCtx, telemetrySink{ctrl: ctrl, watcher: watcher})
	}

	// Create router
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Telemetry ingest (providers push with a bearer token, not a user JWT)
		r.Post("/positions", handlers.IngestPositions(db, ctrl, watcher))

		// Everything else requires a logged-in dashboard user
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/status", handlers.GetAuthStatus(db))
			r.Post("/auth/fcm-token", handlers.RegisterFCMToken(db))

			// Live map state
			r.Get("/map/snapshot", handlers.GetMapSnapshot(ctrl))
			r.Get("/map/vehicles", handlers.GetMapVehicles(ctrl))
			r.Get("/map/clusters", handlers.GetMapClusters(ctrl))
			r.Post("/map/filters", handlers.SetMapFilters(ctrl))
			r.Post("/map/display", handlers.SetMapDisplay(ctrl))
			r.Post("/map/vehicles/{plate}/hide", handlers.HideVehicle(ctrl))
			r.Post("/map/vehicles/{plate}/show", handlers.ShowVehicle(ctrl))
			r.Post("/map/select", handlers.SelectVehicle(ctrl))
			r.Delete("/map/select", handlers.ClearVehicleSelection(ctrl))
			r.Post("/map/follow", handlers.FollowVehicle(ctrl))
			r.Delete("/map/follow", handlers.StopFollowingVehicle(ctrl))
			r.Post("/map/fit-bounds", handlers.FitMapBounds(ctrl))
			r.Get("/map/view", handlers.GetViewState(ctrl))
			r.Post("/map/view/save", handlers.SaveViewState(db, ctrl))
			r.Post("/map/view/restore", handlers.RestoreViewState(db, ctrl))

			// Position history
			r.Get("/positions/{plate}", handlers.GetPositionHistory(db))

			// Vehicle registry
			r.Get("/vehicles", handlers.GetVehicles(db))
			r.Get("/vehicles/{plate}", handlers.GetVehicle(db))

			// Coupling
			r.Get("/coupling", handlers.GetCouplings(db))
			r.Post("/coupling", handlers.CreateCoupling(db, ctrl))
			r.Delete("/coupling/{id}", handlers.DeleteCoupling(db, ctrl))

			// Geofences
			r.Get("/geofences", handlers.GetGeofences(db))
			r.Post("/geofences", handlers.CreateGeofence(db, ctrl, watcher))
			r.Patch("/geofences/{id}", handlers.UpdateGeofence(db, ctrl, watcher))
			r.Delete("/geofences/{id}", handlers.DeleteGeofence(db, ctrl, watcher))
			r.Get("/geofences/{id}/vehicles", handlers.GetGeofenceVehicles(ctrl))

			// Routes and trips
			r.Get("/routes", handlers.GetRoutes(db))
			r.Post("/routes", handlers.CreateRoute(db, ctrl))
			r.Patch("/routes/{id}", handlers.UpdateRoute(db, ctrl))
			r.Delete("/routes/{id}", handlers.DeleteRoute(db, ctrl))
			r.Post("/routes/{id}/highlight", handlers.HighlightRoute(ctrl))
			r.Get("/trips", handlers.GetTrips(db))
			r.Post("/trips", handlers.CreateTrip(db))
			r.Patch("/trips/{id}/status", handlers.UpdateTripStatus(db, ctrl))
			r.Patch("/trips/{id}/stops", handlers.CompleteTripStop(db))

			// Markers
			r.Get("/markers", handlers.GetMarkers(db))
			r.Post("/markers", handlers.CreateMarker(db, ctrl))
			r.Delete("/markers/{id}", handlers.DeleteMarker(db, ctrl))

			// Alarms
			r.Get("/alarms", handlers.GetAlarms(db))
			r.Patch("/alarms/{id}/ack", handlers.AcknowledgeAlarm(db))

			// Preferences
			r.Get("/preferences", handlers.GetPreferences(db))
			r.Put("/preferences/{key}", handlers.SetPreference(db))
			r.Delete("/preferences/{key}", handlers.DeletePreference(db))

			// Geocoding
			r.Post("/geocoding/reverse", handlers.ReverseGeocode(geocodingService))
			r.Post("/geocoding/forward", handlers.Geocode(geocodingService))

			// Gestionale master data
			handlers.MountGestionale(r, db)
		})

		// Admin-only endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("admin"))

			r.Get("/users", handlers.GetUsers(db))
			r.Post("/users", handlers.CreateUser(db))
			r.Delete("/users/{id}", handlers.DeleteUser(db))

			r.Post("/vehicles", handlers.CreateVehicle(db))
			r.Patch("/vehicles/{plate}", handlers.UpdateVehicle(db))
			r.Delete("/vehicles/{plate}", handlers.DeleteVehicle(db))

			r.Post("/map/reset", handlers.ResetMapState(ctrl))

			r.Get("/diagnostics", handlers.GetDiagnostics(db, ctrl, wsHub, geocodingService))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}
