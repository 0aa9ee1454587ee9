// Package seed loads the embedded demo dataset into the record store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/status"
)

const sourceTag = "seed_data"

//go:embed default.yaml
var defaultDataset []byte

// Default returns the embedded dataset
func Default() []byte {
	return defaultDataset
}

// Dataset is the YAML document layout
type Dataset struct {
	Cities []City `yaml:"cities"`
}

type City struct {
	Name     string    `yaml:"name"`
	Lat      float64   `yaml:"lat"`
	Lng      float64   `yaml:"lng"`
	Zoom     int       `yaml:"zoom"`
	Projects []Project `yaml:"projects"`
	Meetings []Meeting `yaml:"meetings"`
	Users    []User    `yaml:"users"`
}

type Project struct {
	Name               string  `yaml:"name"`
	Summary            string  `yaml:"summary"`
	Description        string  `yaml:"description"`
	Location           string  `yaml:"location"`
	WardNo             string  `yaml:"ward_no"`
	WardName           string  `yaml:"ward_name"`
	WardZone           string  `yaml:"ward_zone"`
	Type               string  `yaml:"type"`
	Budget             float64 `yaml:"budget"`
	Corporator         string  `yaml:"corporator"`
	Contractor         string  `yaml:"contractor"`
	ApprovalDate       string  `yaml:"approval_date"`
	StartDate          string  `yaml:"start_date"`
	ExpectedCompletion string  `yaml:"expected_completion"`
	ActualCompletion   string  `yaml:"actual_completion"`
	Status             string  `yaml:"status"`
	// PinStatus keeps Status instead of deriving it from the dates
	PinStatus bool `yaml:"pin_status"`
}

type Meeting struct {
	ID                string   `yaml:"id"`
	WardNo            string   `yaml:"ward_no"`
	WardName          string   `yaml:"ward_name"`
	Date              string   `yaml:"date"`
	Type              string   `yaml:"type"`
	Venue             string   `yaml:"venue"`
	Objective         string   `yaml:"objective"`
	Attendees         []string `yaml:"attendees"`
	ProjectsDiscussed []string `yaml:"projects_discussed"`
}

type User struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
	WardNo      string `yaml:"ward_no"`
	Role        string `yaml:"role"`
}

// Writer is the part of the record store seeding writes to
type Writer interface {
	EnsureCity(ctx context.Context, c model.City) (int64, error)
	UpsertProject(ctx context.Context, p *model.Project) (int64, error)
	InsertMeeting(ctx context.Context, m *model.Meeting) error
	CreateUser(ctx context.Context, u *model.User) error
}

// Result counts what a load wrote
type Result struct {
	Cities   int
	Projects int
	Meetings int
	Users    int
}

// Parse decodes a dataset, rejecting unknown keys
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	for i, c := range ds.Cities {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("city %d has no name", i)
		}
		for _, p := range c.Projects {
			if strings.TrimSpace(p.Name) == "" {
				return nil, fmt.Errorf("city %s has a project without a name", c.Name)
			}
		}
		for _, m := range c.Meetings {
			if !model.MeetingIDPattern.MatchString(m.ID) {
				return nil, fmt.Errorf("city %s: invalid meeting id %q", c.Name, m.ID)
			}
		}
	}
	return &ds, nil
}

// Load writes the dataset. Projects are keyed by city and name, meetings by
// id and users by username, so loading twice changes nothing.
func Load(ctx context.Context, w Writer, data []byte, today time.Time) (Result, error) {
	var res Result
	ds, err := Parse(data)
	if err != nil {
		return res, err
	}

	for _, c := range ds.Cities {
		cityID, err := w.EnsureCity(ctx, model.City{Name: c.Name, Lat: c.Lat, Lng: c.Lng, Zoom: c.Zoom})
		if err != nil {
			return res, fmt.Errorf("failed to create city %s: %w", c.Name, err)
		}
		res.Cities++

		for _, sp := range c.Projects {
			p := sp.toModel(cityID, today)
			if _, err := w.UpsertProject(ctx, &p); err != nil {
				return res, fmt.Errorf("failed to seed project %q: %w", sp.Name, err)
			}
			res.Projects++
		}

		for _, sm := range c.Meetings {
			m := sm.toModel(cityID)
			if err := w.InsertMeeting(ctx, &m); err != nil {
				return res, fmt.Errorf("failed to seed meeting %s: %w", sm.ID, err)
			}
			res.Meetings++
		}

		for _, su := range c.Users {
			created, err := createUser(ctx, w, su, cityID)
			if err != nil {
				return res, err
			}
			if created {
				res.Users++
			}
		}
	}

	logger.Info(ctx, "seed data loaded",
		"cities", res.Cities,
		"projects", res.Projects,
		"meetings", res.Meetings,
		"users", res.Users,
	)
	return res, nil
}

func (sp Project) toModel(cityID int64, today time.Time) model.Project {
	p := model.Project{
		CityID:             cityID,
		ProjectName:        strings.TrimSpace(sp.Name),
		Summary:            sp.Summary,
		Description:        sp.Description,
		LocationDetails:    sp.Location,
		WardNo:             sp.WardNo,
		WardName:           sp.WardName,
		WardZone:           sp.WardZone,
		ProjectType:        model.NormalizeProjectType(sp.Type),
		Budget:             sp.Budget,
		CorporatorName:     sp.Corporator,
		ContractorName:     sp.Contractor,
		ApprovalDate:       sp.ApprovalDate,
		StartDate:          sp.StartDate,
		ExpectedCompletion: sp.ExpectedCompletion,
		ActualCompletion:   sp.ActualCompletion,
		Status:             strings.ToLower(sp.Status),
		SourcePDF:          sourceTag,
	}
	if sp.PinStatus && p.Status != "" {
		return p
	}
	r := status.ForProject(&p, today)
	if r.Status == model.ProjectUnknown && p.Status != "" {
		return p
	}
	p.Status, p.DelayDays, p.StatusNote = r.Status, r.DelayDays, r.Note
	return p
}

func (sm Meeting) toModel(cityID int64) model.Meeting {
	m := model.Meeting{
		ID:                strings.ToUpper(sm.ID),
		CityID:            cityID,
		WardNo:            sm.WardNo,
		WardName:          sm.WardName,
		MeetDate:          sm.Date,
		MeetType:          sm.Type,
		Venue:             sm.Venue,
		Objective:         sm.Objective,
		Attendees:         sm.Attendees,
		ProjectsDiscussed: sm.ProjectsDiscussed,
		SourcePDF:         sourceTag,
	}
	if len(sm.ProjectsDiscussed) == 1 {
		m.ProjectName = sm.ProjectsDiscussed[0]
	}
	return m
}

// createUser adds a demo account unless the username is taken
func createUser(ctx context.Context, w Writer, su User, cityID int64) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password for %s: %w", su.Username, err)
	}
	role := su.Role
	if role == "" {
		role = model.RoleUser
	}
	err = w.CreateUser(ctx, &model.User{
		Username:     strings.ToLower(su.Username),
		PasswordHash: string(hash),
		DisplayName:  su.DisplayName,
		CityID:       cityID,
		WardNo:       su.WardNo,
		Role:         role,
	})
	if errors.Is(err, model.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to seed user %s: %w", su.Username, err)
	}
	return true, nil
}
