package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jansaakshi/backend/model"
)

const meetingColumns = `meeting_id, city_id, COALESCE(ward_no,''), COALESCE(ward_name,''),
	COALESCE(meet_date,''), COALESCE(meet_time,''), COALESCE(meet_type,''), COALESCE(venue,''),
	COALESCE(objective,''), COALESCE(attendees,'[]'), COALESCE(projects_discussed,'[]'),
	COALESCE(project_name,''), COALESCE(budget,0), COALESCE(timeline,''),
	COALESCE(completion_date,''), COALESCE(contractor_name,''), COALESCE(source_pdf,''), created_at`

var meetingTextColumns = []string{
	"objective", "venue", "ward_name", "project_name",
	"projects_discussed", "attendees", "contractor_name",
}

func scanMeeting(row rowScanner) (model.Meeting, error) {
	var m model.Meeting
	var attendees, discussed, created string
	err := row.Scan(
		&m.ID, &m.CityID, &m.WardNo, &m.WardName,
		&m.MeetDate, &m.MeetTime, &m.MeetType, &m.Venue,
		&m.Objective, &attendees, &discussed,
		&m.ProjectName, &m.Budget, &m.Timeline,
		&m.CompletionDate, &m.ContractorName, &m.SourcePDF, &created,
	)
	if err != nil {
		return m, err
	}
	m.Attendees = decodeList(attendees)
	m.ProjectsDiscussed = decodeList(discussed)
	m.CreatedAt = parseTimestamp(created)
	return m, nil
}

// decodeList reads a JSON array column; malformed text yields an empty list
func decodeList(s string) []string {
	list := []string{}
	if err := json.Unmarshal([]byte(s), &list); err != nil || list == nil {
		return []string{}
	}
	return list
}

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func (s *Store) queryMeetings(ctx context.Context, query string, args ...any) ([]model.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return meetings, nil
}

// InsertMeeting stores a meeting row, replacing any row with the same id
func (s *Store) InsertMeeting(ctx context.Context, m *model.Meeting) error {
	if m.ID == "" {
		return fmt.Errorf("meeting id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (meeting_id, city_id, ward_no, ward_name, meet_date, meet_time,
			meet_type, venue, objective, attendees, projects_discussed, project_name, budget,
			timeline, completion_date, contractor_name, source_pdf, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(meeting_id) DO UPDATE SET
			ward_no = excluded.ward_no,
			ward_name = excluded.ward_name,
			meet_date = excluded.meet_date,
			meet_time = excluded.meet_time,
			meet_type = excluded.meet_type,
			venue = excluded.venue,
			objective = excluded.objective,
			attendees = excluded.attendees,
			projects_discussed = excluded.projects_discussed,
			project_name = excluded.project_name,
			budget = excluded.budget,
			timeline = excluded.timeline,
			completion_date = excluded.completion_date,
			contractor_name = excluded.contractor_name,
			source_pdf = excluded.source_pdf`,
		strings.ToUpper(m.ID), m.CityID, m.WardNo, m.WardName, m.MeetDate, m.MeetTime,
		m.MeetType, m.Venue, m.Objective, encodeList(m.Attendees), encodeList(m.ProjectsDiscussed),
		m.ProjectName, m.Budget, m.Timeline, m.CompletionDate, m.ContractorName, m.SourcePDF, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert meeting %s: %w", m.ID, wrapErr(err))
	}
	return nil
}

// SearchMeetings matches meetings where any word occurs in the objective,
// venue, ward, project or attendee text. cityID 0 searches every city and
// a non-empty wardNo restricts the match to that ward.
func (s *Store) SearchMeetings(ctx context.Context, cityID int64, wardNo string, words []string, limit int) ([]model.Meeting, error) {
	if len(words) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var ors []string
	var args []any
	for _, w := range words {
		clause, a := anyLike(meetingTextColumns, w)
		ors = append(ors, clause)
		args = append(args, a...)
	}
	query := "SELECT " + meetingColumns + " FROM meetings WHERE (" + strings.Join(ors, " OR ") + ")"
	if cityID != 0 {
		query += " AND city_id = ?"
		args = append(args, cityID)
	}
	query, args = whereWard(query, args, wardNo)
	query += " ORDER BY meet_date DESC, meeting_id LIMIT ?"
	args = append(args, limit)
	return s.queryMeetings(ctx, query, args...)
}

// whereWard appends a ward predicate that ignores leading zeros
func whereWard(query string, args []any, wardNo string) (string, []any) {
	if wardNo == "" {
		return query, args
	}
	return query + " AND (ward_no = ? OR LTRIM(ward_no,'0') = LTRIM(?,'0'))", append(args, wardNo, wardNo)
}

// RecentMeetings lists the latest meetings, optionally for one ward
func (s *Store) RecentMeetings(ctx context.Context, cityID int64, wardNo string, limit int) ([]model.Meeting, error) {
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT " + meetingColumns + " FROM meetings WHERE 1=1"
	var args []any
	if cityID != 0 {
		query += " AND city_id = ?"
		args = append(args, cityID)
	}
	query, args = whereWard(query, args, wardNo)
	query += " ORDER BY meet_date DESC, meeting_id LIMIT ?"
	args = append(args, limit)
	return s.queryMeetings(ctx, query, args...)
}

// MeetingsByBase returns every row of one physical meeting, in part order
func (s *Store) MeetingsByBase(ctx context.Context, baseID string) ([]model.Meeting, error) {
	base := model.MeetingBaseID(baseID)
	if base == "" {
		return nil, nil
	}
	return s.queryMeetings(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE meeting_id = ? OR meeting_id LIKE ? ESCAPE '\\' ORDER BY length(meeting_id), meeting_id",
		base, likeEscaper.Replace(base)+"-P%")
}

// ListMeetings lists a city's meetings, newest first
func (s *Store) ListMeetings(ctx context.Context, cityID int64) ([]model.Meeting, error) {
	return s.RecentMeetings(ctx, cityID, "", 200)
}
