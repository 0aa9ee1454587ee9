package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jansaakshi/backend/model"
)

const defaultProjectLimit = 100

const projectColumns = `p.id, p.city_id, COALESCE(c.city_name,''), COALESCE(p.ward_no,''),
	COALESCE(p.ward_name,''), COALESCE(p.ward_zone,''), p.project_name,
	COALESCE(p.summary,''), COALESCE(p.location_details,''), COALESCE(p.description,''),
	COALESCE(p.project_type,''), COALESCE(p.status,''), COALESCE(p.status_note,''),
	COALESCE(p.budget,0), COALESCE(p.corporator_name,''), COALESCE(p.contractor_name,''),
	COALESCE(p.approval_date,''), COALESCE(p.start_date,''), COALESCE(p.expected_completion,''),
	COALESCE(p.actual_completion,''), COALESCE(p.delay_days,0), COALESCE(p.source_pdf,''),
	p.created_at, p.updated_at`

const projectFrom = ` FROM projects p LEFT JOIN city c ON c.city_id = p.city_id`

// text columns searched by the keyword predicate
var keywordColumns = []string{
	"p.project_name", "p.summary", "p.location_details",
	"p.ward_name", "p.contractor_name", "p.corporator_name",
}

// probeColumnSets maps a probe column group to its table columns
var probeColumnSets = map[model.TextColumn][]string{
	model.ColumnProjectName: {"project_name"},
	model.ColumnBodyText:    {"summary", "location_details", "description"},
	model.ColumnContractor:  {"contractor_name"},
	model.ColumnWard:        {"ward_name", "ward_no"},
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	var created, updated string
	err := row.Scan(
		&p.ID, &p.CityID, &p.CityName, &p.WardNo,
		&p.WardName, &p.WardZone, &p.ProjectName,
		&p.Summary, &p.LocationDetails, &p.Description,
		&p.ProjectType, &p.Status, &p.StatusNote,
		&p.Budget, &p.CorporatorName, &p.ContractorName,
		&p.ApprovalDate, &p.StartDate, &p.ExpectedCompletion,
		&p.ActualCompletion, &p.DelayDays, &p.SourcePDF,
		&created, &updated,
	)
	if err != nil {
		return p, err
	}
	p.CreatedAt = parseTimestamp(created)
	p.UpdatedAt = parseTimestamp(updated)
	return p, nil
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return projects, nil
}

// buildProjectWhere turns predicates into a WHERE clause. Words are ORed
// together and across the keyword columns.
func buildProjectWhere(q model.ProjectQuery) (string, []any) {
	clauses := []string{"1=1"}
	var args []any

	add := func(clause string, a ...any) {
		clauses = append(clauses, clause)
		args = append(args, a...)
	}
	addLike := func(columns []string, value string) {
		clause, a := anyLike(columns, value)
		add(clause, a...)
	}

	if q.CityID != 0 {
		add("p.city_id = ?", q.CityID)
	}
	if q.WardNo != "" {
		add("(p.ward_no = ? OR LTRIM(p.ward_no,'0') = LTRIM(?,'0'))", q.WardNo, q.WardNo)
	}
	if q.WardName != "" {
		addLike([]string{"p.ward_name"}, q.WardName)
	}
	if q.ProjectType != "" {
		add("p.project_type = ?", q.ProjectType)
	}
	if q.Status != "" {
		add("LOWER(p.status) = LOWER(?)", q.Status)
	}
	if q.Corporator != "" {
		addLike([]string{"p.corporator_name"}, q.Corporator)
	}
	if q.Contractor != "" {
		addLike([]string{"p.contractor_name"}, q.Contractor)
	}
	if q.ProjectName != "" {
		addLike([]string{"p.project_name"}, q.ProjectName)
	}
	if q.BodyText != "" {
		addLike([]string{"p.summary", "p.location_details", "p.description"}, q.BodyText)
	}
	if len(q.Words) > 0 {
		var ors []string
		var wordArgs []any
		for _, w := range q.Words {
			clause, a := anyLike(keywordColumns, w)
			ors = append(ors, clause)
			wordArgs = append(wordArgs, a...)
		}
		add("("+strings.Join(ors, " OR ")+")", wordArgs...)
	}
	if q.MinDelay > 0 {
		add("p.delay_days >= ?", q.MinDelay)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// FindProjects runs one structured query, newest first
func (s *Store) FindProjects(ctx context.Context, q model.ProjectQuery) ([]model.Project, error) {
	where, args := buildProjectWhere(q)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultProjectLimit
	}
	args = append(args, limit)
	return s.queryProjects(ctx,
		"SELECT "+projectColumns+projectFrom+where+" ORDER BY p.created_at DESC, p.id DESC LIMIT ?",
		args...)
}

// TextSearch matches projects where any word occurs in any keyword column.
// cityID 0 searches every city. No words means no results.
func (s *Store) TextSearch(ctx context.Context, cityID int64, words []string) ([]model.Project, error) {
	var cleaned []string
	for _, w := range words {
		if w = strings.TrimSpace(w); len(w) >= 2 {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	return s.FindProjects(ctx, model.ProjectQuery{CityID: cityID, Words: cleaned})
}

// ExistsSubstring reports whether phrase occurs in the given column group
// of any project
func (s *Store) ExistsSubstring(ctx context.Context, column model.TextColumn, phrase string) (bool, error) {
	cols, ok := probeColumnSets[column]
	if !ok {
		return false, fmt.Errorf("unknown probe column %q", column)
	}
	if strings.TrimSpace(phrase) == "" {
		return false, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	clause, args := anyLike(cols, phrase)
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM projects WHERE "+clause+")", args...).Scan(&exists)
	if err != nil {
		return false, wrapErr(err)
	}
	return exists, nil
}

// GetProject returns a project by id
func (s *Store) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := scanProject(s.db.QueryRowContext(ctx, "SELECT "+projectColumns+projectFrom+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

// DelayedProjects lists delayed projects, most delayed first
func (s *Store) DelayedProjects(ctx context.Context, cityID int64) ([]model.Project, error) {
	where, args := buildProjectWhere(model.ProjectQuery{CityID: cityID, Status: model.ProjectDelayed})
	return s.queryProjects(ctx,
		"SELECT "+projectColumns+projectFrom+where+" ORDER BY p.delay_days DESC, p.id",
		args...)
}

// ContractorProjects lists a contractor's projects (exact name, any case)
func (s *Store) ContractorProjects(ctx context.Context, cityID int64, contractor string) ([]model.Project, error) {
	query := "SELECT " + projectColumns + projectFrom + " WHERE LOWER(p.contractor_name) = LOWER(?)"
	args := []any{contractor}
	if cityID != 0 {
		query += " AND p.city_id = ?"
		args = append(args, cityID)
	}
	return s.queryProjects(ctx, query+" ORDER BY p.delay_days DESC, p.created_at DESC", args...)
}

// AllProjects returns every project
func (s *Store) AllProjects(ctx context.Context) ([]model.Project, error) {
	return s.queryProjects(ctx, "SELECT "+projectColumns+projectFrom+" ORDER BY p.id")
}

// UpsertProject inserts a project or, when the city already has a project
// with the same name, updates it. It returns the row id.
func (s *Store) UpsertProject(ctx context.Context, p *model.Project) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ts := now()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (city_id, ward_no, ward_name, ward_zone, project_name, summary,
			location_details, description, project_type, status, status_note, budget,
			corporator_name, contractor_name, approval_date, start_date, expected_completion,
			actual_completion, delay_days, source_pdf, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(city_id, project_name) DO UPDATE SET
			ward_no = excluded.ward_no,
			ward_name = excluded.ward_name,
			ward_zone = excluded.ward_zone,
			summary = COALESCE(NULLIF(excluded.summary,''), projects.summary),
			location_details = COALESCE(NULLIF(excluded.location_details,''), projects.location_details),
			description = COALESCE(NULLIF(excluded.description,''), projects.description),
			project_type = excluded.project_type,
			status = excluded.status,
			status_note = excluded.status_note,
			budget = excluded.budget,
			corporator_name = COALESCE(NULLIF(excluded.corporator_name,''), projects.corporator_name),
			contractor_name = COALESCE(NULLIF(excluded.contractor_name,''), projects.contractor_name),
			approval_date = excluded.approval_date,
			start_date = excluded.start_date,
			expected_completion = excluded.expected_completion,
			actual_completion = excluded.actual_completion,
			delay_days = excluded.delay_days,
			source_pdf = excluded.source_pdf,
			updated_at = excluded.updated_at
		RETURNING id`,
		p.CityID, p.WardNo, p.WardName, p.WardZone, p.ProjectName, p.Summary,
		p.LocationDetails, p.Description, p.ProjectType, p.Status, p.StatusNote, p.Budget,
		p.CorporatorName, p.ContractorName, p.ApprovalDate, p.StartDate, p.ExpectedCompletion,
		p.ActualCompletion, p.DelayDays, p.SourcePDF, ts, ts,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert project %q: %w", p.ProjectName, wrapErr(err))
	}
	p.ID = id
	return id, nil
}

// InsertProjectIfMissing inserts p unless the city already has a project of
// that name. It reports whether a row was inserted.
func (s *Store) InsertProjectIfMissing(ctx context.Context, p *model.Project) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ts := now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (city_id, ward_no, ward_name, ward_zone, project_name, summary,
			location_details, description, project_type, status, status_note, budget,
			corporator_name, contractor_name, approval_date, start_date, expected_completion,
			actual_completion, delay_days, source_pdf, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(city_id, project_name) DO NOTHING`,
		p.CityID, p.WardNo, p.WardName, p.WardZone, p.ProjectName, p.Summary,
		p.LocationDetails, p.Description, p.ProjectType, p.Status, p.StatusNote, p.Budget,
		p.CorporatorName, p.ContractorName, p.ApprovalDate, p.StartDate, p.ExpectedCompletion,
		p.ActualCompletion, p.DelayDays, p.SourcePDF, ts, ts,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert project %q: %w", p.ProjectName, wrapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateProjectStatus stores a recomputed status
func (s *Store) UpdateProjectStatus(ctx context.Context, id int64, status string, delayDays int, note string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET status = ?, delay_days = ?, status_note = ?, updated_at = ? WHERE id = ?",
		status, delayDays, note, now(), id)
	if err != nil {
		return wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
