package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"carestock/m/domain"
	"carestock/m/internal/inventory"
)

type ctxKey string

const (
	ctxUserID   ctxKey = "userID"
	ctxClinicID ctxKey = "clinicID"
	ctxRole     ctxKey = "role"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db     *sqlx.DB
	svc    *inventory.Service
	secret string
}

// New constructs a Handler.
func New(db *sqlx.DB, svc *inventory.Service, secret string) *Handler {
	return &Handler{db: db, svc: svc, secret: secret}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/locations", func(r chi.Router) {
			r.Post("/", h.createLocation)
			r.Get("/", h.listLocations)
			r.Put("/{id}", h.updateLocation)
		})

		pr.Route("/lots", func(r chi.Router) {
			r.Post("/", h.createLot)
			r.Get("/", h.listLots)
			r.Put("/{id}", h.updateLot)
			r.Get("/{id}/capacity", h.lotCapacity)
		})

		pr.Route("/drugs", func(r chi.Router) {
			r.Get("/", h.searchDrugs)
			r.Post("/", h.createDrug)
		})

		pr.Route("/units", func(r chi.Router) {
			r.Post("/", h.createUnit)
			r.Get("/", h.listUnits)
			r.Get("/search", h.searchUnits)
			r.Post("/query", h.advancedQuery)
			r.Get("/{id}", h.getUnit)
			r.Put("/{id}", h.updateUnit)
		})

		pr.Route("/checkout", func(r chi.Router) {
			r.Post("/fefo", h.checkOutFEFO)
			r.Post("/unit", h.checkOutUnit)
		})

		pr.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.listTransactions)
			r.Post("/", h.recordTransaction)
			r.Put("/{id}", h.updateTransaction)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.dashboardStats)
			r.Get("/expiring", h.medicationsExpiring)
			r.Get("/expiry", h.expiryReport)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID   int64  `json:"user_id"`
	ClinicID int64  `json:"clinic_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID, clinicID int64, role string) (string, error) {
	claims := authClaims{
		UserID:   userID,
		ClinicID: clinicID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxClinicID, claims.ClinicID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

func actor(r *http.Request) (userID, clinicID int64) {
	return r.Context().Value(ctxUserID).(int64), r.Context().Value(ctxClinicID).(int64)
}

// Auth Handlers

type registerRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	ClinicName    string `json:"clinic_name,omitempty"`
	ClinicAddress string `json:"clinic_address,omitempty"`
	ClinicID      int64  `json:"clinic_id,omitempty"`
}

type authResponse struct {
	Token  string         `json:"token"`
	User   domain.User    `json:"user"`
	Clinic *domain.Clinic `json:"clinic,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "username, email, password and role are required")
		return
	}

	if req.Role != "admin" && req.Role != "staff" {
		respondError(w, http.StatusBadRequest, "role must be admin or staff")
		return
	}

	if req.Role == "admin" && strings.TrimSpace(req.ClinicName) == "" {
		respondError(w, http.StatusBadRequest, "clinic_name is required for admins")
		return
	}
	if req.Role == "staff" && req.ClinicID == 0 {
		respondError(w, http.StatusBadRequest, "clinic_id is required for staff")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start registration")
		return
	}

	var userID int64
	err = tx.QueryRowx(`INSERT INTO users (username, email, password, role, clinic_id) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		req.Username, strings.ToLower(req.Email), hashed, req.Role, nullableID(req.ClinicID)).Scan(&userID)
	if err != nil {
		_ = tx.Rollback()
		respondError(w, http.StatusConflict, "email already exists")
		return
	}

	clinicID := req.ClinicID
	var clinic *domain.Clinic
	if req.Role == "admin" {
		var createdAt string
		err = tx.QueryRowx(`INSERT INTO clinics (name, address, owner_id) VALUES (?, ?, ?) RETURNING id, created_at`,
			req.ClinicName, req.ClinicAddress, userID).Scan(&clinicID, &createdAt)
		if err != nil {
			_ = tx.Rollback()
			respondError(w, http.StatusInternalServerError, "unable to create clinic")
			return
		}
		if _, err := tx.Exec(`UPDATE users SET clinic_id = ? WHERE id = ?`, clinicID, userID); err != nil {
			_ = tx.Rollback()
			respondError(w, http.StatusInternalServerError, "unable to link clinic")
			return
		}
		clinic = &domain.Clinic{
			ID:        clinicID,
			Name:      req.ClinicName,
			Address:   req.ClinicAddress,
			OwnerID:   &userID,
			CreatedAt: createdAt,
		}
	}

	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to complete registration")
		return
	}

	token, err := h.generateToken(userID, clinicID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{
		Token:  token,
		User:   domain.User{ID: userID, Username: req.Username, Email: strings.ToLower(req.Email), Role: req.Role, ClinicID: &clinicID},
		Clinic: clinic,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.Get(&user, `SELECT id, username, email, password, role, clinic_id FROM users WHERE email = ?`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	var clinicID int64
	if user.ClinicID != nil {
		clinicID = *user.ClinicID
	}
	token, err := h.generateToken(user.ID, clinicID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	uid := r.Context().Value(ctxUserID).(int64)
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if _, err := h.db.Exec(`UPDATE users SET password = ? WHERE id = ?`, hashed, uid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Helpers

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the inventory error taxonomy onto status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		validation   *inventory.ValidationError
		notFound     *inventory.NotFoundError
		capacity     *inventory.CapacityExceededError
		insufficient *inventory.InsufficientQuantityError
	)
	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &capacity):
		respondError(w, http.StatusConflict, capacity.Error())
	case errors.As(err, &insufficient):
		respondError(w, http.StatusConflict, insufficient.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}
