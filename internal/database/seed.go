package database

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// SeedUsers creates the initial operator and admin accounts if the
// users table is empty.
func SeedUsers(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}
	if count > 0 {
		log.Println("ℹ️  Users already seeded, skipping")
		return nil
	}

	now := time.Now().Unix()

	seedAccounts := []struct {
		email    string
		password string
		name     string
		role     string
	}{
		{"admin@fleetboard.local", "admin123", "Fleet Admin", "admin"},
		{"operator@fleetboard.local", "operator123", "Fleet Operator", "operator"},
	}

	for _, acc := range seedAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.Exec(`
			INSERT INTO users (id, email, password, name, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), acc.email, string(hash), acc.name, acc.role, now, now)
		if err != nil {
			return err
		}
		log.Printf("✅ Seeded %s user: %s", acc.role, acc.email)
	}

	return nil
}

// SeedVehicleTypes inserts the default master-data vehicle types on
// first boot. Real deployments add more through the gestionale API.
func SeedVehicleTypes(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM vehicle_types"); err != nil {
		return err
	}
	if count > 0 {
		log.Println("ℹ️  Vehicle types already seeded, skipping")
		return nil
	}

	now := time.Now().Unix()

	types := []struct {
		name     string
		category string
	}{
		{"Motrice", "truck"},
		{"Trattore stradale", "truck"},
		{"Semirimorchio", "trailer"},
		{"Rimorchio", "trailer"},
		{"Furgone", "truck"},
	}

	for _, vt := range types {
		_, err := db.Exec(`
			INSERT INTO vehicle_types (id, name, category, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), vt.name, vt.category, now, now)
		if err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d vehicle types", len(types))
	return nil
}
