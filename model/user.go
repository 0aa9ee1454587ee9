package model

import "time"

// User roles
const (
	RoleUser           = "user"
	RoleAuthorizedUser = "authorized_user"
	RoleAdmin          = "admin"
)

// ValidRole reports whether r is a known role
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAuthorizedUser || r == RoleAdmin
}

// User is a registered account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	CityID       int64     `json:"city_id"`
	WardNo       string    `json:"ward_no"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Complaint is a citizen-submitted grievance
type Complaint struct {
	ID           int64     `json:"id"`
	CityID       int64     `json:"city_id"`
	UserID       int64     `json:"user_id,omitempty"`
	WardNo       string    `json:"ward_no"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	CitizenName  string    `json:"citizen_name"`
	CitizenPhone string    `json:"citizen_phone"`
	Status       string    `json:"status"`
	AdminNotes   string    `json:"admin_notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// Complaint status values
const (
	ComplaintSubmitted = "submitted"
	ComplaintReviewed  = "reviewed"
	ComplaintResolved  = "resolved"
)

// Review is a contractor review
type Review struct {
	ID             int64     `json:"id"`
	ContractorName string    `json:"contractor_name"`
	ReviewerID     int64     `json:"reviewer_id"`
	ReviewerName   string    `json:"reviewer_name"`
	Rating         int       `json:"rating"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
