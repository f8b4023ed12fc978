package models

// Master-data entities served by the generic gestionale CRUD module. The
// handlers work off the resource registry (handlers/gestionale.go); these
// structs document the row shapes and back the seeder.

type Client struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	VatNumber *string `json:"vat_number,omitempty" db:"vat_number"`
	Address   *string `json:"address,omitempty" db:"address"`
	City      *string `json:"city,omitempty" db:"city"`
	Phone     *string `json:"phone,omitempty" db:"phone"`
	Email     *string `json:"email,omitempty" db:"email"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at"`
}

type Carrier struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	VatNumber *string `json:"vat_number,omitempty" db:"vat_number"`
	Phone     *string `json:"phone,omitempty" db:"phone"`
	Email     *string `json:"email,omitempty" db:"email"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	UpdatedAt int64   `json:"updated_at" db:"updated_at"`
}

type Warehouse struct {
	ID        string   `json:"id" db:"id"`
	Name      string   `json:"name" db:"name"`
	Address   *string  `json:"address,omitempty" db:"address"`
	City      *string  `json:"city,omitempty" db:"city"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	CreatedAt int64    `json:"created_at" db:"created_at"`
	UpdatedAt int64    `json:"updated_at" db:"updated_at"`
}

type Driver struct {
	ID            string  `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	LicenseNumber *string `json:"license_number,omitempty" db:"license_number"`
	Phone         *string `json:"phone,omitempty" db:"phone"`
	CarrierID     *string `json:"carrier_id,omitempty" db:"carrier_id"`
	CreatedAt     int64   `json:"created_at" db:"created_at"`
	UpdatedAt     int64   `json:"updated_at" db:"updated_at"`
}

type VehicleType struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Category    *string `json:"category,omitempty" db:"category"` // truck, trailer, van
	Description *string `json:"description,omitempty" db:"description"`
	CreatedAt   int64   `json:"created_at" db:"created_at"`
	UpdatedAt   int64   `json:"updated_at" db:"updated_at"`
}

type Document struct {
	ID         string  `json:"id" db:"id"`
	Name       string  `json:"name" db:"name"`
	Kind       *string `json:"kind,omitempty" db:"kind"` // insurance, inspection, license
	EntityType *string `json:"entity_type,omitempty" db:"entity_type"`
	EntityID   *string `json:"entity_id,omitempty" db:"entity_id"`
	ExpiresAt  *int64  `json:"expires_at,omitempty" db:"expires_at"`
	FileURL    *string `json:"file_url,omitempty" db:"file_url"`
	CreatedAt  int64   `json:"created_at" db:"created_at"`
	UpdatedAt  int64   `json:"updated_at" db:"updated_at"`
}
