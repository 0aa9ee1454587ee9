package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
)

// CityLookup resolves a city name to its id
type CityLookup interface {
	CityID(ctx context.Context, name string) (int64, error)
}

// respondError writes the JSON error for err. Store outages are 503, missing
// records 404 and duplicates 409. Handlers reject invalid input with 400
// before reaching the store.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrStoreUnavailable):
		logger.Error(c.Request.Context(), "record store unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database temporarily unavailable"})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": fallback + " not found"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": fallback + " already exists"})
	default:
		logger.Error(c.Request.Context(), "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load " + strings.ToLower(fallback)})
	}
}

// cityResolver scopes requests to a tenant city
type cityResolver struct {
	cities      CityLookup
	defaultCity string
}

// name picks the city from the query string, the X-City header or the
// configured default, in that order
func (r cityResolver) name(c *gin.Context) string {
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		return strings.ToLower(city)
	}
	if city := strings.TrimSpace(c.GetHeader("X-City")); city != "" {
		return strings.ToLower(city)
	}
	return strings.ToLower(r.defaultCity)
}

// resolve returns the city id for the request, or writes a 404 and returns
// false
func (r cityResolver) resolve(c *gin.Context, explicit string) (int64, string, bool) {
	name := strings.ToLower(strings.TrimSpace(explicit))
	if name == "" {
		name = r.name(c)
	}
	id, err := r.cities.CityID(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown city: " + name})
		} else {
			respondError(c, err, "City")
		}
		return 0, "", false
	}
	c.Request = c.Request.WithContext(logger.With(c.Request.Context(), logger.CityKey, name))
	return id, name, true
}

// idParam parses a positive integer path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
