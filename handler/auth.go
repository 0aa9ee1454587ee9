package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/middleware"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/service"
	"github.com/jansaakshi/backend/store"
)

const minPasswordLength = 6

type AuthHandler struct {
	config   *config.AuthConfig
	store    *store.Store
	sessions service.SessionStore
}

func NewAuthHandler(cfg *config.AuthConfig, s *store.Store, sessions service.SessionStore) *AuthHandler {
	return &AuthHandler{config: cfg, store: s, sessions: sessions}
}

type SignupRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	WardNo      string `json:"ward_no"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      *model.User `json:"user"`
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// Signup registers an account and signs it in
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if len(req.Username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be at least 3 characters"})
		return
	}
	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters"})
		return
	}

	user := &model.User{
		Username:    req.Username,
		DisplayName: strings.TrimSpace(req.DisplayName),
		WardNo:      strings.TrimSpace(req.WardNo),
		Role:        model.RoleUser,
	}
	if req.City != "" {
		cityID, err := h.store.CityID(c.Request.Context(), req.City)
		if err != nil {
			respondError(c, err, "City")
			return
		}
		user.CityID = cityID
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}
	user.PasswordHash = hash

	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, model.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		respondError(c, err, "Account")
		return
	}
	logger.Info(c.Request.Context(), "account created", "username", user.Username)

	h.signIn(c, user, http.StatusCreated)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		respondError(c, err, "Account")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	h.signIn(c, user, http.StatusOK)
}

// signIn opens a session for user and returns its token, also as a cookie
func (h *AuthHandler) signIn(c *gin.Context, user *model.User, status int) {
	ttl := middleware.TokenTTL(h.config)
	sess := &service.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: time.Now(),
	}
	if err := h.sessions.Put(c.Request.Context(), sess, ttl); err != nil {
		logger.Error(c.Request.Context(), "failed to store session", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user, sess.ID, h.config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.config.CookieName, token, int(ttl.Seconds()), "/", "", false, true)
	c.JSON(status, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      user,
	})
}

// Logout ends the current session. The token stops working immediately.
func (h *AuthHandler) Logout(c *gin.Context) {
	if sess := middleware.GetSession(c); sess != nil {
		if err := h.sessions.Delete(c.Request.Context(), sess.ID); err != nil {
			logger.Warn(c.Request.Context(), "failed to delete session", "error", err)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.config.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetCurrentUser returns the current user info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
