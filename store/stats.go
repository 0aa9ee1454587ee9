package store

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jansaakshi/backend/model"
)

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func cityFilter(column string, cityID int64) (string, []any) {
	if cityID == 0 {
		return "", nil
	}
	return " AND " + column + " = ?", []any{cityID}
}

// WardStats aggregates project counts and budgets per ward. Zero-padded
// ward numbers are merged with their unpadded form.
func (s *Store) WardStats(ctx context.Context, cityID int64) ([]model.WardStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter, args := cityFilter("city_id", cityID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			LTRIM(ward_no,'0') AS ward,
			COALESCE(MAX(ward_name),''),
			COALESCE(MAX(corporator_name),''),
			COUNT(*),
			SUM(CASE WHEN LOWER(status) = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN LOWER(status) = 'delayed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN LOWER(status) IN ('in progress','ongoing') THEN 1 ELSE 0 END),
			SUM(CASE WHEN LOWER(status) = 'stalled' THEN 1 ELSE 0 END),
			COALESCE(SUM(budget),0),
			COALESCE(AVG(CASE WHEN delay_days > 0 THEN delay_days END),0)
		FROM projects
		WHERE ward_no IS NOT NULL AND LTRIM(ward_no,'0') != ''`+filter+`
		GROUP BY ward`, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	stats := []model.WardStats{}
	for rows.Next() {
		var w model.WardStats
		if err := rows.Scan(&w.WardNumber, &w.WardName, &w.CorporatorName, &w.Total,
			&w.Completed, &w.Delayed, &w.Active, &w.Stalled, &w.TotalBudget, &w.AvgDelayDays); err != nil {
			return nil, err
		}
		if w.WardName == "" {
			w.WardName = "Ward " + w.WardNumber
		}
		w.AvgDelayDays = roundTenth(w.AvgDelayDays)
		stats = append(stats, w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, errA := strconv.Atoi(stats[i].WardNumber)
		b, errB := strconv.Atoi(stats[j].WardNumber)
		if errA == nil && errB == nil {
			return a < b
		}
		return stats[i].WardNumber < stats[j].WardNumber
	})
	return stats, nil
}

// ContractorStats aggregates projects per contractor, busiest first
func (s *Store) ContractorStats(ctx context.Context, cityID int64) ([]model.ContractorStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter, args := cityFilter("city_id", cityID)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			contractor_name,
			COUNT(*),
			SUM(CASE WHEN LOWER(status) = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN LOWER(status) = 'delayed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN LOWER(status) IN ('in progress','ongoing') THEN 1 ELSE 0 END),
			SUM(CASE WHEN LOWER(status) = 'stalled' THEN 1 ELSE 0 END),
			COALESCE(SUM(budget),0),
			COALESCE(AVG(CASE WHEN delay_days > 0 THEN delay_days END),0),
			COALESCE(MAX(delay_days),0),
			COUNT(DISTINCT ward_no),
			COALESCE(GROUP_CONCAT(DISTINCT project_type),'')
		FROM projects
		WHERE contractor_name IS NOT NULL AND contractor_name != ''`+filter+`
		GROUP BY contractor_name
		ORDER BY COUNT(*) DESC, contractor_name`, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	stats := []model.ContractorStats{}
	for rows.Next() {
		var c model.ContractorStats
		var types string
		if err := rows.Scan(&c.ContractorName, &c.TotalProjects, &c.Completed, &c.Delayed,
			&c.Ongoing, &c.Stalled, &c.TotalBudget, &c.AvgDelayDays, &c.MaxDelayDays,
			&c.WardsCount, &types); err != nil {
			return nil, err
		}
		c.AvgDelayDays = roundTenth(c.AvgDelayDays)
		c.ProjectTypes = []string{}
		for _, t := range strings.Split(types, ",") {
			if t != "" {
				c.ProjectTypes = append(c.ProjectTypes, t)
			}
		}
		if c.TotalProjects > 0 {
			c.DelayPct = roundTenth(float64(c.Delayed) / float64(c.TotalProjects) * 100)
			c.CompletionPct = roundTenth(float64(c.Completed) / float64(c.TotalProjects) * 100)
		}
		stats = append(stats, c)
	}
	return stats, wrapErr(rows.Err())
}

// Statistics returns the city dashboard totals
func (s *Store) Statistics(ctx context.Context, cityID int64) (*model.Statistics, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter, args := cityFilter("city_id", cityID)
	var st model.Statistics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'delayed' THEN 1 ELSE 0 END),0),
			COALESCE(SUM(budget),0),
			COALESCE(SUM(CASE WHEN status = 'delayed' THEN budget ELSE 0 END),0),
			COUNT(DISTINCT NULLIF(LTRIM(ward_no,'0'),''))
		FROM projects WHERE 1=1`+filter, args...).Scan(
		&st.TotalProjects, &st.DelayedProjects, &st.TotalBudget, &st.DelayedBudget, &st.TotalWards)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &st, nil
}
