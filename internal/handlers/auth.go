package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
	"flarelog/internal/services"
)

type AuthHandler struct {
	store     docstore.Store
	table     *services.RankTable
	jwtSecret []byte
}

func NewAuthHandler(store docstore.Store, table *services.RankTable, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{store: store, table: table, jwtSecret: jwtSecret}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates the user document with a zero score and the lowest rank
// assigned, then issues a token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || c.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	var existing []models.User
	if err := h.store.FindByField(r.Context(), models.CollectionUsers, "email", c.Email, &existing); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if len(existing) > 0 {
		http.Error(w, "email already registered", http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "could not hash password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Email:        c.Email,
		PasswordHash: string(hashed),
		Score:        0,
		RankID:       h.table.Lowest().ID,
		CreatedAt:    time.Now().UTC(),
	}
	id, err := h.store.Create(r.Context(), models.CollectionUsers, "", user)
	if err != nil {
		http.Error(w, "could not create user", http.StatusInternalServerError)
		return
	}
	user.ID = id

	token, err := h.issueJWT(user.ID)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"token": token, "user": ToUserDTO(user)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || c.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	var matches []models.User
	if err := h.store.FindByField(r.Context(), models.CollectionUsers, "email", c.Email, &matches); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if len(matches) == 0 {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	user := matches[0]
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.issueJWT(user.ID)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"token": token, "user": ToUserDTO(user)})
}

func (h *AuthHandler) issueJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}
