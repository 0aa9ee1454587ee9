package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/store"
)

const (
	searchLimit  = 100
	meetingLimit = 50
)

// RecordsHandler serves the read-only project, meeting and statistics
// endpoints. Every endpoint is scoped to the resolved city.
type RecordsHandler struct {
	store *store.Store
	city  cityResolver
}

func NewRecordsHandler(s *store.Store, defaultCity string) *RecordsHandler {
	return &RecordsHandler{
		store: s,
		city:  cityResolver{cities: s, defaultCity: defaultCity},
	}
}

func (h *RecordsHandler) listProjects(c *gin.Context, q model.ProjectQuery) {
	projects, err := h.store.FindProjects(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Projects")
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

// searchWords splits the q parameter into OR search words
func searchWords(q string) []string {
	return strings.Fields(strings.ToLower(q))
}

// Projects handles GET /api/projects?ward&type&status&q
func (h *RecordsHandler) Projects(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	h.listProjects(c, model.ProjectQuery{
		CityID:      cityID,
		WardNo:      c.Query("ward"),
		ProjectType: c.Query("type"),
		Status:      c.Query("status"),
		Words:       searchWords(c.Query("q")),
		Limit:       searchLimit,
	})
}

// Search handles GET /api/search with every structured filter
func (h *RecordsHandler) Search(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	minDelay := 0
	if v := c.Query("min_delay"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_delay must be a non-negative integer"})
			return
		}
		minDelay = n
	}
	h.listProjects(c, model.ProjectQuery{
		CityID:      cityID,
		WardNo:      c.Query("ward"),
		ProjectType: c.Query("type"),
		Status:      c.Query("status"),
		Corporator:  c.Query("corporator"),
		Contractor:  c.Query("contractor"),
		Words:       searchWords(c.Query("q")),
		MinDelay:    minDelay,
		Limit:       searchLimit,
	})
}

// Delayed handles GET /api/projects/delayed
func (h *RecordsHandler) Delayed(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	projects, err := h.store.DelayedProjects(c.Request.Context(), cityID)
	if err != nil {
		respondError(c, err, "Projects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

// Project handles GET /api/projects/:id
func (h *RecordsHandler) Project(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	project, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// WardProjects handles GET /api/projects/ward/:ward_no
func (h *RecordsHandler) WardProjects(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	h.listProjects(c, model.ProjectQuery{
		CityID: cityID,
		WardNo: c.Param("ward_no"),
		Limit:  searchLimit,
	})
}

// Wards handles GET /api/wards
func (h *RecordsHandler) Wards(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	stats, err := h.store.WardStats(c.Request.Context(), cityID)
	if err != nil {
		respondError(c, err, "Wards")
		return
	}
	wards := make([]gin.H, 0, len(stats))
	for _, w := range stats {
		wards = append(wards, gin.H{
			"ward_no":         w.WardNumber,
			"ward_name":       w.WardName,
			"corporator_name": w.CorporatorName,
			"project_count":   w.Total,
		})
	}
	c.JSON(http.StatusOK, gin.H{"wards": wards})
}

// WardStats handles GET /api/wards/stats
func (h *RecordsHandler) WardStats(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	stats, err := h.store.WardStats(c.Request.Context(), cityID)
	if err != nil {
		respondError(c, err, "Ward statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Meetings handles GET /api/meetings?ward
func (h *RecordsHandler) Meetings(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	meetings, err := h.store.RecentMeetings(c.Request.Context(), cityID, c.Query("ward"), meetingLimit)
	if err != nil {
		respondError(c, err, "Meetings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings, "count": len(meetings)})
}

// Meeting handles GET /api/meetings/:id and returns every row of the
// physical meeting
func (h *RecordsHandler) Meeting(c *gin.Context) {
	id := strings.ToUpper(strings.TrimSpace(c.Param("id")))
	if !model.MeetingIDPattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meeting id"})
		return
	}
	rows, err := h.store.MeetingsByBase(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Meeting")
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Meeting not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meeting_id": model.MeetingBaseID(id),
		"meetings":   rows,
	})
}

// Stats handles GET /api/stats
func (h *RecordsHandler) Stats(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	stats, err := h.store.Statistics(c.Request.Context(), cityID)
	if err != nil {
		respondError(c, err, "Statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cities handles GET /api/cities
func (h *RecordsHandler) Cities(c *gin.Context) {
	cities, err := h.store.ListCities(c.Request.Context())
	if err != nil {
		respondError(c, err, "Cities")
		return
	}
	for i := range cities {
		if cities[i].Lat == 0 && cities[i].Lng == 0 {
			cities[i].Lat, cities[i].Lng = 20, 78
		}
		if cities[i].Zoom == 0 {
			cities[i].Zoom = 5
		}
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

// Contractors handles GET /api/contractors
func (h *RecordsHandler) Contractors(c *gin.Context) {
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	stats, err := h.store.ContractorStats(c.Request.Context(), cityID)
	if err != nil {
		respondError(c, err, "Contractors")
		return
	}
	c.JSON(http.StatusOK, gin.H{"contractors": stats})
}

// ContractorProjects handles GET /api/contractor-projects?name=
func (h *RecordsHandler) ContractorProjects(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contractor name is required"})
		return
	}
	cityID, _, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	projects, err := h.store.ContractorProjects(c.Request.Context(), cityID, name)
	if err != nil {
		respondError(c, err, "Projects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"contractor_name": name, "projects": projects, "count": len(projects)})
}
