package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"fleetboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GestionaleResource describes one master-data table served by the generic
// CRUD machinery. Columns is the editable column whitelist; anything else in
// a request body is dropped. Searchable columns back the ?q= filter.
type GestionaleResource struct {
	Name       string
	Table      string
	Columns    []string
	Required   []string
	Searchable []string
}

// GestionaleResources is the registry of master-data entities. Adding a new
// entity is one more entry here plus its table in the migrations.
var GestionaleResources = []GestionaleResource{
	{
		Name:       "clients",
		Table:      "clients",
		Columns:    []string{"name", "vat_number", "address", "city", "phone", "email"},
		Required:   []string{"name"},
		Searchable: []string{"name", "city", "vat_number"},
	},
	{
		Name:       "carriers",
		Table:      "carriers",
		Columns:    []string{"name", "vat_number", "phone", "email"},
		Required:   []string{"name"},
		Searchable: []string{"name", "vat_number"},
	},
	{
		Name:       "warehouses",
		Table:      "warehouses",
		Columns:    []string{"name", "address", "city", "latitude", "longitude"},
		Required:   []string{"name"},
		Searchable: []string{"name", "city"},
	},
	{
		Name:       "drivers",
		Table:      "drivers",
		Columns:    []string{"name", "license_number", "phone", "carrier_id"},
		Required:   []string{"name"},
		Searchable: []string{"name", "license_number"},
	},
	{
		Name:       "vehicle-types",
		Table:      "vehicle_types",
		Columns:    []string{"name", "category", "description"},
		Required:   []string{"name"},
		Searchable: []string{"name", "category"},
	},
	{
		Name:       "documents",
		Table:      "documents",
		Columns:    []string{"name", "kind", "entity_type", "entity_id", "expires_at", "file_url"},
		Required:   []string{"name"},
		Searchable: []string{"name", "kind"},
	},
}

// MountGestionale registers the CRUD routes for every resource in the
// registry under /gestionale/{resource}
func MountGestionale(r chi.Router, db *sqlx.DB) {
	for _, res := range GestionaleResources {
		res := res
		r.Route("/gestionale/"+res.Name, func(r chi.Router) {
			r.Get("/", gestionaleList(db, res))
			r.Post("/", gestionaleCreate(db, res))
			r.Get("/{id}", gestionaleGet(db, res))
			r.Patch("/{id}", gestionaleUpdate(db, res))
			r.Delete("/{id}", gestionaleDelete(db, res))
		})
	}
}

func gestionaleList(db *sqlx.DB, res GestionaleResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/gestionale/%s", res.Name)

		query := fmt.Sprintf("SELECT * FROM %s", res.Table)
		var args []interface{}

		if q := r.URL.Query().Get("q"); q != "" && len(res.Searchable) > 0 {
			args = append(args, "%"+q+"%")
			clauses := make([]string, len(res.Searchable))
			for i, col := range res.Searchable {
				clauses[i] = fmt.Sprintf("%s ILIKE $1", col)
			}
			query += " WHERE (" + strings.Join(clauses, " OR ") + ")"
		}
		query += " ORDER BY created_at DESC"

		rows, err := db.Queryx(query, args...)
		if err != nil {
			log.Printf("❌ Error listing %s: %v", res.Name, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch "+res.Name)
			return
		}
		defer rows.Close()

		results := []map[string]interface{}{}
		for rows.Next() {
			row := map[string]interface{}{}
			if err := rows.MapScan(row); err != nil {
				continue
			}
			results = append(results, normalizeRow(row))
		}

		utils.RespondJSON(w, http.StatusOK, results)
	}
}

func gestionaleGet(db *sqlx.DB, res GestionaleResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		row := map[string]interface{}{}
		err := db.QueryRowx(fmt.Sprintf("SELECT * FROM %s WHERE id = $1", res.Table), id).MapScan(row)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "Entry not found")
			return
		}

		utils.RespondJSON(w, http.StatusOK, normalizeRow(row))
	}
}

func gestionaleCreate(db *sqlx.DB, res GestionaleResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/gestionale/%s", res.Name)

		body, err := decodeBody(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		values := filterColumns(body, res.Columns)
		for _, required := range res.Required {
			if v, ok := values[required]; !ok || v == nil || v == "" {
				utils.RespondError(w, http.StatusBadRequest, required+" is required")
				return
			}
		}

		now := time.Now().Unix()
		values["id"] = uuid.New().String()
		values["created_at"] = now
		values["updated_at"] = now

		columns := make([]string, 0, len(values))
		placeholders := make([]string, 0, len(values))
		args := make([]interface{}, 0, len(values))
		for col, v := range values {
			columns = append(columns, col)
			args = append(args, v)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			res.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := db.Exec(query, args...); err != nil {
			log.Printf("❌ Error creating %s entry: %v", res.Name, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create "+res.Name+" entry")
			return
		}

		log.Printf("✅ Created %s entry %v", res.Name, values["id"])
		utils.RespondJSON(w, http.StatusCreated, values)
	}
}

func gestionaleUpdate(db *sqlx.DB, res GestionaleResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		log.Printf("📥 REQUEST: PATCH /api/gestionale/%s/%s", res.Name, id)

		body, err := decodeBody(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		values := filterColumns(body, res.Columns)
		if len(values) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "No editable fields in body")
			return
		}

		sets := make([]string, 0, len(values)+1)
		args := make([]interface{}, 0, len(values)+2)
		for col, v := range values {
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		args = append(args, time.Now().Unix())
		sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
		args = append(args, id)

		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
			res.Table, strings.Join(sets, ", "), len(args))
		result, err := db.Exec(query, args...)
		if err != nil {
			log.Printf("❌ Error updating %s entry: %v", res.Name, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update "+res.Name+" entry")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Entry not found")
			return
		}

		row := map[string]interface{}{}
		if err := db.QueryRowx(fmt.Sprintf("SELECT * FROM %s WHERE id = $1", res.Table), id).MapScan(row); err == nil {
			utils.RespondJSON(w, http.StatusOK, normalizeRow(row))
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func gestionaleDelete(db *sqlx.DB, res GestionaleResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		log.Printf("📥 REQUEST: DELETE /api/gestionale/%s/%s", res.Name, id)

		result, err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = $1", res.Table), id)
		if err != nil {
			log.Printf("❌ Error deleting %s entry: %v", res.Name, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete "+res.Name+" entry")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "Entry not found")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// filterColumns keeps only whitelisted keys so request bodies can never
// touch id, timestamps or columns outside the resource definition
func filterColumns(body map[string]interface{}, columns []string) map[string]interface{} {
	values := make(map[string]interface{})
	for _, col := range columns {
		if v, ok := body[col]; ok {
			values[col] = v
		}
	}
	return values
}

// normalizeRow converts []byte columns from MapScan into strings so the JSON
// encoder does not base64 them
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
