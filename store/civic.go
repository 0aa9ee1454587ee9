package store

import (
	"context"
	"fmt"

	"github.com/jansaakshi/backend/model"
)

const complaintColumns = `id, COALESCE(city_id,0), COALESCE(user_id,0), COALESCE(ward_no,''),
	COALESCE(category,''), description, COALESCE(location,''), COALESCE(citizen_name,''),
	COALESCE(citizen_phone,''), status, COALESCE(admin_notes,''), created_at`

func scanComplaint(row rowScanner) (model.Complaint, error) {
	var c model.Complaint
	var created string
	err := row.Scan(&c.ID, &c.CityID, &c.UserID, &c.WardNo, &c.Category, &c.Description,
		&c.Location, &c.CitizenName, &c.CitizenPhone, &c.Status, &c.AdminNotes, &created)
	c.CreatedAt = parseTimestamp(created)
	return c, err
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// CreateComplaint files a complaint in the submitted state
func (s *Store) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	c.Status = model.ComplaintSubmitted
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO complaints (city_id, user_id, ward_no, category, description, location,
			citizen_name, citizen_phone, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(c.CityID), nullID(c.UserID), c.WardNo, c.Category, c.Description, c.Location,
		c.CitizenName, c.CitizenPhone, c.Status, now())
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", wrapErr(err))
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Store) queryComplaints(ctx context.Context, query string, args ...any) ([]model.Complaint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	complaints := []model.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		complaints = append(complaints, c)
	}
	return complaints, wrapErr(rows.Err())
}

// UserComplaints lists complaints filed by one user, newest first
func (s *Store) UserComplaints(ctx context.Context, userID int64) ([]model.Complaint, error) {
	return s.queryComplaints(ctx,
		"SELECT "+complaintColumns+" FROM complaints WHERE user_id = ? ORDER BY id DESC", userID)
}

// ListComplaints lists complaints, optionally filtered by city and status
func (s *Store) ListComplaints(ctx context.Context, cityID int64, status string) ([]model.Complaint, error) {
	query := "SELECT " + complaintColumns + " FROM complaints WHERE 1=1"
	var args []any
	if cityID != 0 {
		query += " AND city_id = ?"
		args = append(args, cityID)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	return s.queryComplaints(ctx, query+" ORDER BY id DESC", args...)
}

// UpdateComplaint sets a complaint's status and admin notes
func (s *Store) UpdateComplaint(ctx context.Context, id int64, status, notes string) (*model.Complaint, error) {
	switch status {
	case model.ComplaintSubmitted, model.ComplaintReviewed, model.ComplaintResolved:
	default:
		return nil, fmt.Errorf("invalid complaint status %q", status)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"UPDATE complaints SET status = ?, admin_notes = ? WHERE id = ?", status, notes, id)
	if err != nil {
		return nil, wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	c, err := scanComplaint(s.db.QueryRowContext(ctx,
		"SELECT "+complaintColumns+" FROM complaints WHERE id = ?", id))
	if err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

// Follow subscribes a user to a project. Following twice is a no-op.
func (s *Store) Follow(ctx context.Context, userID, projectID int64) error {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO follow_ups (user_id, project_id, created_at) VALUES (?, ?, ?) ON CONFLICT(user_id, project_id) DO NOTHING",
		userID, projectID, now())
	return wrapErr(err)
}

// Unfollow removes a subscription
func (s *Store) Unfollow(ctx context.Context, userID, projectID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM follow_ups WHERE user_id = ? AND project_id = ?", userID, projectID)
	return wrapErr(err)
}

// Following lists the projects a user follows
func (s *Store) Following(ctx context.Context, userID int64) ([]model.Project, error) {
	projects, err := s.queryProjects(ctx,
		"SELECT "+projectColumns+projectFrom+
			" JOIN follow_ups f ON f.project_id = p.id WHERE f.user_id = ? ORDER BY f.id DESC", userID)
	if projects == nil && err == nil {
		projects = []model.Project{}
	}
	return projects, err
}

// UpsertReview stores a reviewer's review of a contractor, replacing any
// earlier review by the same reviewer
func (s *Store) UpsertReview(ctx context.Context, r *model.Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contractor_reviews (contractor_name, reviewer_id, rating, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(contractor_name, reviewer_id) DO UPDATE SET
			rating = excluded.rating,
			title = excluded.title,
			body = excluded.body,
			created_at = excluded.created_at
		RETURNING id`,
		r.ContractorName, r.ReviewerID, r.Rating, r.Title, r.Body, now()).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", wrapErr(err))
	}
	return nil
}

// ContractorReviews lists a contractor's reviews with their average rating
func (s *Store) ContractorReviews(ctx context.Context, contractor string) ([]model.Review, float64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.contractor_name, r.reviewer_id, COALESCE(NULLIF(u.display_name,''), u.username, ''),
			r.rating, COALESCE(r.title,''), COALESCE(r.body,''), r.created_at
		FROM contractor_reviews r LEFT JOIN users u ON u.id = r.reviewer_id
		WHERE LOWER(r.contractor_name) = LOWER(?)
		ORDER BY r.created_at DESC, r.id DESC`, contractor)
	if err != nil {
		return nil, 0, wrapErr(err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	total := 0
	for rows.Next() {
		var r model.Review
		var created string
		if err := rows.Scan(&r.ID, &r.ContractorName, &r.ReviewerID, &r.ReviewerName,
			&r.Rating, &r.Title, &r.Body, &created); err != nil {
			return nil, 0, err
		}
		r.CreatedAt = parseTimestamp(created)
		reviews = append(reviews, r)
		total += r.Rating
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr(err)
	}
	if len(reviews) == 0 {
		return reviews, 0, nil
	}
	return reviews, roundTenth(float64(total) / float64(len(reviews))), nil
}
