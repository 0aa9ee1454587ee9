package model

import (
	"strings"
	"time"
)

// DateLayout is the storage format for calendar dates
const DateLayout = "2006-01-02"

// Project type labels
const (
	TypeRoads           = "roads"
	TypeWaterSupply     = "water_supply"
	TypeSchools         = "schools"
	TypeParks           = "parks"
	TypeWasteManagement = "waste_management"
	TypeHealthcare      = "healthcare"
	TypeStreetLighting  = "street_lighting"
	TypeDrainage        = "drainage"
	TypeOther           = "other"
)

// Project status values
const (
	ProjectApproved  = "approved"
	ProjectOngoing   = "ongoing"
	ProjectCompleted = "completed"
	ProjectDelayed   = "delayed"
	ProjectStalled   = "stalled"
	ProjectPending   = "pending"
	ProjectUnknown   = "unknown"
)

// ProjectTypes lists every accepted project type
var ProjectTypes = []string{
	TypeRoads, TypeWaterSupply, TypeSchools, TypeParks, TypeWasteManagement,
	TypeHealthcare, TypeStreetLighting, TypeDrainage, TypeOther,
}

// Project is a municipal infrastructure project
type Project struct {
	ID                 int64     `json:"id"`
	CityID             int64     `json:"city_id"`
	CityName           string    `json:"city_name,omitempty"`
	WardNo             string    `json:"ward_no"`
	WardName           string    `json:"ward_name"`
	WardZone           string    `json:"ward_zone,omitempty"`
	ProjectName        string    `json:"project_name"`
	Summary            string    `json:"summary"`
	LocationDetails    string    `json:"location_details"`
	Description        string    `json:"description,omitempty"`
	ProjectType        string    `json:"project_type"`
	Status             string    `json:"status"`
	StatusNote         string    `json:"status_note,omitempty"`
	Budget             float64   `json:"budget"`
	CorporatorName     string    `json:"corporator_name"`
	ContractorName     string    `json:"contractor_name"`
	ApprovalDate       string    `json:"approval_date,omitempty"`
	StartDate          string    `json:"start_date,omitempty"`
	ExpectedCompletion string    `json:"expected_completion,omitempty"`
	ActualCompletion   string    `json:"actual_completion,omitempty"`
	DelayDays          int       `json:"delay_days"`
	SourcePDF          string    `json:"source_pdf,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NormalizeProjectType maps free-form type text onto a known label
func NormalizeProjectType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	label := strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	for _, known := range ProjectTypes {
		if label == known {
			return known
		}
	}
	for _, h := range typeHints {
		if strings.Contains(t, h.fragment) {
			return h.projectType
		}
	}
	return TypeOther
}

// fragments of free-form type text, checked in order
var typeHints = []struct {
	fragment    string
	projectType string
}{
	{"drain", TypeDrainage},
	{"sewer", TypeDrainage},
	{"nullah", TypeDrainage},
	{"road", TypeRoads},
	{"water", TypeWaterSupply},
	{"school", TypeSchools},
	{"park", TypeParks},
	{"garden", TypeParks},
	{"waste", TypeWasteManagement},
	{"garbage", TypeWasteManagement},
	{"toilet", TypeWasteManagement},
	{"hospital", TypeHealthcare},
	{"health", TypeHealthcare},
	{"light", TypeStreetLighting},
}

// ProjectQuery is a set of predicates for a single structured project search.
// Zero values are ignored; Words is matched with OR semantics across words
// and text columns.
type ProjectQuery struct {
	CityID      int64
	WardNo      string
	WardName    string
	ProjectType string
	Status      string
	Corporator  string
	Contractor  string
	ProjectName string
	BodyText    string
	Words       []string
	MinDelay    int
	Limit       int
}

// Empty reports whether no predicate other than the city scope is set
func (q ProjectQuery) Empty() bool {
	return q.WardNo == "" && q.WardName == "" && q.ProjectType == "" &&
		q.Status == "" && q.Corporator == "" && q.Contractor == "" &&
		q.ProjectName == "" && q.BodyText == "" && len(q.Words) == 0 &&
		q.MinDelay <= 0
}

// WardStats aggregates projects for one ward
type WardStats struct {
	WardNumber     string  `json:"wardNumber"`
	WardName       string  `json:"wardName"`
	CorporatorName string  `json:"corporatorName"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Delayed        int     `json:"delayed"`
	Active         int     `json:"active"`
	Stalled        int     `json:"stalled"`
	TotalBudget    float64 `json:"total_budget"`
	AvgDelayDays   float64 `json:"avg_delay_days"`
}

// ContractorStats aggregates projects for one contractor
type ContractorStats struct {
	ContractorName string   `json:"contractor_name"`
	TotalProjects  int      `json:"total_projects"`
	Completed      int      `json:"completed"`
	Delayed        int      `json:"delayed"`
	Ongoing        int      `json:"ongoing"`
	Stalled        int      `json:"stalled"`
	TotalBudget    float64  `json:"total_budget"`
	AvgDelayDays   float64  `json:"avg_delay_days"`
	MaxDelayDays   int      `json:"max_delay_days"`
	WardsCount     int      `json:"wards_count"`
	ProjectTypes   []string `json:"project_types"`
	DelayPct       float64  `json:"delay_pct"`
	CompletionPct  float64  `json:"completion_pct"`
}

// Statistics is the city-wide dashboard summary
type Statistics struct {
	TotalProjects   int     `json:"total_projects"`
	DelayedProjects int     `json:"delayed_projects"`
	TotalBudget     float64 `json:"total_budget"`
	DelayedBudget   float64 `json:"delayed_budget"`
	TotalWards      int     `json:"total_wards"`
}

// City is a tenant
type City struct {
	ID   int64   `json:"city_id"`
	Name string  `json:"city_name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// BudgetLakhs returns the budget in lakhs of rupees
func (p *Project) BudgetLakhs() float64 {
	return p.Budget / 100000
}

// TextColumn names a group of text columns that can be probed for a phrase
type TextColumn string

// Probe columns, in probe priority order
const (
	ColumnProjectName TextColumn = "project_name"
	ColumnBodyText    TextColumn = "body_text"
	ColumnContractor  TextColumn = "contractor"
	ColumnWard        TextColumn = "ward"
)
