package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleetboard-backend/internal/models"
	"fleetboard-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// GetUsers returns all dashboard accounts (admin only)
func GetUsers(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/users")

		var users []models.User
		if err := db.Select(&users, "SELECT * FROM users ORDER BY created_at ASC"); err != nil {
			log.Printf("❌ Error fetching users: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}

		response := make([]models.UserResponse, len(users))
		for i := range users {
			response[i] = users[i].ToUserResponse()
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}

// CreateUser creates a new operator or admin account (admin only)
func CreateUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/users")

		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "email, password and name are required")
			return
		}
		if req.Role != "operator" && req.Role != "admin" {
			utils.RespondError(w, http.StatusBadRequest, "role must be operator or admin")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		now := time.Now().Unix()
		user := models.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Name:      req.Name,
			Role:      req.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = db.Exec(`
			INSERT INTO users (id, email, password, name, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Email, string(hash), user.Name, user.Role, now, now)
		if err != nil {
			log.Printf("❌ Error creating user: %v", err)
			utils.RespondError(w, http.StatusConflict, "Failed to create user (email may already exist)")
			return
		}

		log.Printf("✅ Created %s user: %s", user.Role, user.Email)
		utils.RespondJSON(w, http.StatusCreated, user.ToUserResponse())
	}
}

// DeleteUser removes an account (admin only)
func DeleteUser(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("id")
		log.Printf("📥 REQUEST: DELETE /api/users/%s", userID)

		result, err := db.Exec("DELETE FROM users WHERE id = $1", userID)
		if err != nil {
			log.Printf("❌ Error deleting user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to delete user")
			return
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
