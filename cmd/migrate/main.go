package main

import (
	"log"
	"os"

	"fleetboard-backend/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migration runner for deployments that split schema changes from
// app startup. The server runs the same migrations on boot, so this is
// optional in simple setups.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables from system")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Migrations failed: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("❌ User seeding failed: %v", err)
		}
		if err := database.SeedVehicleTypes(db); err != nil {
			log.Fatalf("❌ Vehicle type seeding failed: %v", err)
		}
	}

	log.Println("✅ Done")
}
