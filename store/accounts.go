package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jansaakshi/backend/model"
)

// CityID resolves a city name (any case) to its id
func (s *Store) CityID(ctx context.Context, name string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT city_id FROM city WHERE LOWER(city_name) = LOWER(?)", strings.TrimSpace(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, wrapErr(err)
	}
	return id, nil
}

// EnsureCity returns the id of the named city, creating it when missing
func (s *Store) EnsureCity(ctx context.Context, c model.City) (int64, error) {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	if name == "" {
		return 0, fmt.Errorf("city name is required")
	}
	id, err := s.CityID(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO city (city_name, lat, lng, zoom) VALUES (?, ?, ?, ?) ON CONFLICT(city_name) DO NOTHING",
		name, c.Lat, c.Lng, c.Zoom)
	if err != nil {
		return 0, wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.CityID(ctx, name)
	}
	return res.LastInsertId()
}

// ListCities returns every city, by name
func (s *Store) ListCities(ctx context.Context) ([]model.City, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT city_id, city_name, COALESCE(lat,0), COALESCE(lng,0), COALESCE(zoom,0) FROM city ORDER BY city_name")
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	cities := []model.City{}
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Lat, &c.Lng, &c.Zoom); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, wrapErr(rows.Err())
}

const userColumns = `id, username, password_hash, COALESCE(display_name,''), COALESCE(city_id,0),
	COALESCE(ward_no,''), role, created_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.CityID,
		&u.WardNo, &u.Role, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTimestamp(created)
	return &u, nil
}

// CreateUser registers an account. A taken username yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var cityID any
	if u.CityID != 0 {
		cityID = u.CityID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, display_name, city_id, ward_no, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.DisplayName, cityID, u.WardNo, u.Role, now())
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q: %w", u.Username, model.ErrConflict)
	}
	if err != nil {
		return wrapErr(err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return u, nil
}

// GetUserByUsername looks up an account by login name
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// GetUser looks up an account by id
func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// SetRole changes an account's role
func (s *Store) SetRole(ctx context.Context, username, role string) error {
	if !model.ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE username = ?", role, username)
	if err != nil {
		return wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
