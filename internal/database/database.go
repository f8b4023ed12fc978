package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to Postgres...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ sqlx.Connect() failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Ping() failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Dashboard users (operators and admins)
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('operator', 'admin')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Fleet master data
		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			plate TEXT NOT NULL UNIQUE,
			unit_id TEXT,
			nickname TEXT,
			vehicle_type_id TEXT,
			model TEXT,
			carrier_id TEXT,
			refrigerated BOOLEAN NOT NULL DEFAULT FALSE,
			door_sensor BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Position history, one row per report
		`CREATE TABLE IF NOT EXISTS positions (
			id SERIAL PRIMARY KEY,
			plate TEXT NOT NULL,
			unit_id TEXT,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			heading DOUBLE PRECISION,
			speed DOUBLE PRECISION,
			address TEXT,
			ignition BOOLEAN NOT NULL DEFAULT FALSE,
			door_open BOOLEAN NOT NULL DEFAULT FALSE,
			temp_channel_1 DOUBLE PRECISION,
			temp_channel_2 DOUBLE PRECISION,
			fix_time BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_plate_fix ON positions(plate, fix_time DESC)`,

		// Declared truck/trailer pairs
		`CREATE TABLE IF NOT EXISTS coupling_pairs (
			id TEXT PRIMARY KEY,
			truck_plate TEXT NOT NULL,
			trailer_plate TEXT NOT NULL,
			created_by TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			UNIQUE(truck_plate, trailer_plate)
		)`,

		// Geofences, circle or polygon
		`CREATE TABLE IF NOT EXISTS geofences (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			shape TEXT NOT NULL CHECK(shape IN ('circle', 'polygon')),
			center_lat DOUBLE PRECISION,
			center_lng DOUBLE PRECISION,
			radius_meters DOUBLE PRECISION,
			ring_json TEXT,
			stroke_color TEXT,
			fill_color TEXT,
			alert_on_enter BOOLEAN NOT NULL DEFAULT FALSE,
			alert_on_exit BOOLEAN NOT NULL DEFAULT FALSE,
			created_by TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Route templates (blueprints)
		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			path_json TEXT NOT NULL,
			stops_json TEXT NOT NULL DEFAULT '[]',
			schedule_days TEXT,
			schedule_start TEXT,
			schedule_end TEXT,
			color TEXT,
			created_by_user_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Trips (route instances assigned to a vehicle)
		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL,
			vehicle_plate TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('planned', 'active', 'completed', 'cancelled')),
			stops_json TEXT NOT NULL DEFAULT '[]',
			started_at BIGINT,
			completed_at BIGINT,
			assigned_by TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (route_id) REFERENCES routes(id) ON DELETE CASCADE
		)`,

		// Custom map markers
		`CREATE TABLE IF NOT EXISTS markers (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			icon_name TEXT,
			color TEXT,
			created_by TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Alarms raised by the geofence watcher and sensor checks
		`CREATE TABLE IF NOT EXISTS alarms (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			plate TEXT NOT NULL,
			geofence_id TEXT,
			geofence_name TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			detail TEXT,
			raised_at BIGINT NOT NULL,
			acknowledged_by TEXT,
			acknowledged_at BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alarms_raised ON alarms(raised_at DESC)`,

		// Per-user display preferences (replaces browser local storage)
		`CREATE TABLE IF NOT EXISTS preferences (
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			PRIMARY KEY (user_id, key)
		)`,

		// FCM device tokens for push notifications
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			user_id TEXT NOT NULL,
			token TEXT NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			PRIMARY KEY (user_id, token)
		)`,

		// Gestionale master-data tables
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			vat_number TEXT,
			address TEXT,
			city TEXT,
			phone TEXT,
			email TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS carriers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			vat_number TEXT,
			phone TEXT,
			email TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS warehouses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT,
			city TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS drivers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			license_number TEXT,
			phone TEXT,
			carrier_id TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS vehicle_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			description TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT,
			entity_type TEXT,
			entity_id TEXT,
			expires_at BIGINT,
			file_url TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Printf("✅ Ran %d migrations", len(migrations))
	return nil
}
