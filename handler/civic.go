package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jansaakshi/backend/middleware"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/store"
)

// CivicHandler serves citizen participation: complaints, project
// follow-ups, contractor reviews, plus their admin counterparts
type CivicHandler struct {
	store *store.Store
	city  cityResolver
}

func NewCivicHandler(s *store.Store, defaultCity string) *CivicHandler {
	return &CivicHandler{
		store: s,
		city:  cityResolver{cities: s, defaultCity: defaultCity},
	}
}

type ComplaintRequest struct {
	City         string `json:"city"`
	WardNo       string `json:"ward_no"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	CitizenName  string `json:"citizen_name"`
	CitizenPhone string `json:"citizen_phone"`
}

// CreateComplaint handles POST /api/complaints. Signing in is optional.
func (h *CivicHandler) CreateComplaint(c *gin.Context) {
	var req ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Description is required"})
		return
	}
	cityID, _, ok := h.city.resolve(c, req.City)
	if !ok {
		return
	}

	complaint := &model.Complaint{
		CityID:       cityID,
		UserID:       middleware.GetUserID(c),
		WardNo:       strings.TrimSpace(req.WardNo),
		Category:     strings.TrimSpace(req.Category),
		Description:  strings.TrimSpace(req.Description),
		Location:     strings.TrimSpace(req.Location),
		CitizenName:  strings.TrimSpace(req.CitizenName),
		CitizenPhone: strings.TrimSpace(req.CitizenPhone),
	}
	if err := h.store.CreateComplaint(c.Request.Context(), complaint); err != nil {
		respondError(c, err, "Complaint")
		return
	}
	logger.Info(c.Request.Context(), "complaint filed", "complaint_id", complaint.ID, "ward_no", complaint.WardNo)

	c.JSON(http.StatusCreated, gin.H{"message": "Complaint submitted", "complaint": complaint})
}

// MyComplaints handles GET /api/complaints
func (h *CivicHandler) MyComplaints(c *gin.Context) {
	complaints, err := h.store.UserComplaints(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "Complaints")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

// ListComplaints handles GET /api/admin/complaints?status
func (h *CivicHandler) ListComplaints(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	complaints, err := h.store.ListComplaints(c.Request.Context(), cityID, c.Query("status"))
	if err != nil {
		respondError(c, err, "Complaints")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

type ComplaintUpdateRequest struct {
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
}

// UpdateComplaint handles PATCH /api/admin/complaints/:id
func (h *CivicHandler) UpdateComplaint(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ComplaintUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	switch req.Status {
	case model.ComplaintSubmitted, model.ComplaintReviewed, model.ComplaintResolved:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be submitted, reviewed or resolved"})
		return
	}

	complaint, err := h.store.UpdateComplaint(c.Request.Context(), id, req.Status, req.AdminNotes)
	if err != nil {
		respondError(c, err, "Complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}

type FollowRequest struct {
	ProjectID int64 `json:"project_id" binding:"required"`
}

func (h *CivicHandler) bindFollow(c *gin.Context) (int64, bool) {
	var req FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return 0, false
	}
	return req.ProjectID, true
}

// Follow handles POST /api/follow
func (h *CivicHandler) Follow(c *gin.Context) {
	projectID, ok := h.bindFollow(c)
	if !ok {
		return
	}
	if err := h.store.Follow(c.Request.Context(), middleware.GetUserID(c), projectID); err != nil {
		respondError(c, err, "Project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Following project", "project_id": projectID})
}

// Unfollow handles POST /api/unfollow
func (h *CivicHandler) Unfollow(c *gin.Context) {
	projectID, ok := h.bindFollow(c)
	if !ok {
		return
	}
	if err := h.store.Unfollow(c.Request.Context(), middleware.GetUserID(c), projectID); err != nil {
		respondError(c, err, "Follow-up")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed project", "project_id": projectID})
}

// Following handles GET /api/following
func (h *CivicHandler) Following(c *gin.Context) {
	projects, err := h.store.Following(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "Projects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Reviews handles GET /api/contractors/reviews?name=
func (h *CivicHandler) Reviews(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contractor name is required"})
		return
	}
	reviews, avg, err := h.store.ContractorReviews(c.Request.Context(), name)
	if err != nil {
		respondError(c, err, "Reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contractor_name": name,
		"reviews":         reviews,
		"avg_rating":      avg,
		"review_count":    len(reviews),
	})
}

type ReviewRequest struct {
	ContractorName string `json:"contractor_name" binding:"required"`
	Rating         int    `json:"rating" binding:"required"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// SubmitReview handles POST /api/contractors/reviews. A second review by
// the same reviewer replaces the first.
func (h *CivicHandler) SubmitReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contractor_name and rating are required"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}

	review := &model.Review{
		ContractorName: strings.TrimSpace(req.ContractorName),
		ReviewerID:     middleware.GetUserID(c),
		ReviewerName:   middleware.GetUsername(c),
		Rating:         req.Rating,
		Title:          strings.TrimSpace(req.Title),
		Body:           strings.TrimSpace(req.Body),
	}
	if err := h.store.UpsertReview(c.Request.Context(), review); err != nil {
		respondError(c, err, "Review")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review saved", "review": review})
}

type PromoteRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role"`
}

// PromoteUser handles POST /api/admin/promote-user. The role defaults to
// authorized_user and applies from the user's next login.
func (h *CivicHandler) PromoteUser(c *gin.Context) {
	var req PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}
	if req.Role == "" {
		req.Role = model.RoleAuthorizedUser
	}
	if !model.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := h.store.SetRole(c.Request.Context(), username, req.Role); err != nil {
		respondError(c, err, "User")
		return
	}
	logger.Info(c.Request.Context(), "role changed", "target", username, "role", req.Role)
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "username": username, "role": req.Role})
}
