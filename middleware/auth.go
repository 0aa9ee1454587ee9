package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/service"
)

const sessionKey = "session"

// Claims represents the JWT claims. The registered token id (jti) is the
// server-side session id.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the user bound to sessionID
func GenerateToken(user *model.User, sessionID string, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(TokenTTL(cfg))

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// TokenTTL is the lifetime of tokens and sessions
func TokenTTL(cfg *config.AuthConfig) time.Duration {
	hours := cfg.TokenExpireHours
	if hours <= 0 {
		hours = 168
	}
	return time.Duration(hours) * time.Hour
}

// ParseToken verifies an HS256 token and returns its claims
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token has no session id")
	}
	return claims, nil
}

// TokenFromRequest reads "Authorization: Bearer <token>" or, failing that,
// the auth cookie
func TokenFromRequest(c *gin.Context, cookieName string) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", errors.New("invalid authorization header format")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			return cookie, nil
		}
	}
	return "", errors.New("authorization required")
}

// authenticate resolves the request's session. A nil session with a nil
// error means no credentials were sent.
func authenticate(c *gin.Context, cfg *config.AuthConfig, sessions service.SessionStore) (*service.Session, error) {
	tokenString, err := TokenFromRequest(c, cfg.CookieName)
	if err != nil {
		if c.GetHeader("Authorization") == "" {
			return nil, nil
		}
		return nil, err
	}

	claims, err := ParseToken(tokenString, cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %w", err)
	}

	sess, err := sessions.Get(c.Request.Context(), claims.ID)
	if err != nil {
		return nil, fmt.Errorf("session expired or logged out: %w", err)
	}
	if sess.Username != claims.Username {
		return nil, errors.New("session does not match token")
	}
	return sess, nil
}

func setSession(c *gin.Context, sess *service.Session) {
	c.Set(sessionKey, sess)
	ctx := logger.With(c.Request.Context(), logger.UsernameKey, sess.Username)
	c.Request = c.Request.WithContext(ctx)
}

// Auth rejects requests without a valid token bound to a live session
func Auth(cfg *config.AuthConfig, sessions service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := authenticate(c, cfg, sessions)
		if err == nil && sess == nil {
			err = errors.New("authorization required")
		}
		if err != nil {
			logger.Debug(c.Request.Context(), "authentication failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
			return
		}
		setSession(c, sess)
		c.Next()
	}
}

// OptionalAuth attaches the session when valid credentials are sent and
// lets anonymous requests through
func OptionalAuth(cfg *config.AuthConfig, sessions service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, err := authenticate(c, cfg, sessions); err == nil && sess != nil {
			setSession(c, sess)
		}
		c.Next()
	}
}

// RequireRole allows only sessions holding one of roles. It must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
			return
		}
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// GetSession returns the authenticated session, or nil
func GetSession(c *gin.Context) *service.Session {
	if v, exists := c.Get(sessionKey); exists {
		if sess, ok := v.(*service.Session); ok {
			return sess
		}
	}
	return nil
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	if sess := GetSession(c); sess != nil {
		return sess.Username
	}
	return ""
}

// GetUserID returns the authenticated user's id, or 0
func GetUserID(c *gin.Context) int64 {
	if sess := GetSession(c); sess != nil {
		return sess.UserID
	}
	return 0
}
