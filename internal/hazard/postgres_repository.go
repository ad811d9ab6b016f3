package hazard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL/PostGIS implementation of Repository.
// Hazard locations are stored as SRID-4326 points; distance predicates
// cast to geography so results are meters on the spheroid.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL hazard repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const hazardColumns = `
	h.id, h.hazard_type, h.severity, h.confidence,
	ST_Y(h.geom) AS lat, ST_X(h.geom) AS lon,
	h.ts, h.device_id, d.device_id AS external_device_id
`

// Create persists a new hazard record.
func (r *PostgresRepository) Create(ctx context.Context, hazard *Hazard) error {
	query := `
		INSERT INTO hazards (id, hazard_type, severity, confidence, geom, ts, device_id)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326), $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		hazard.ID,
		hazard.HazardType,
		hazard.Severity,
		hazard.Confidence,
		hazard.Lon,
		hazard.Lat,
		hazard.Ts,
		hazard.DeviceKey,
	)
	return err
}

// Get retrieves a hazard by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Hazard, error) {
	query := `
		SELECT ` + hazardColumns + `
		FROM hazards h
		JOIN devices d ON d.id = h.device_id
		WHERE h.id = $1
	`

	var hazard Hazard
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&hazard.ID,
		&hazard.HazardType,
		&hazard.Severity,
		&hazard.Confidence,
		&hazard.Lat,
		&hazard.Lon,
		&hazard.Ts,
		&hazard.DeviceKey,
		&hazard.DeviceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHazardNotFound
		}
		return nil, err
	}

	return &hazard, nil
}

// Nearby returns all hazards within radiusM meters of the given point,
// newest first.
func (r *PostgresRepository) Nearby(ctx context.Context, lat, lon, radiusM float64) ([]*Hazard, error) {
	query := `
		SELECT ` + hazardColumns + `
		FROM hazards h
		JOIN devices d ON d.id = h.device_id
		WHERE ST_Distance(
			h.geom::geography,
			ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		) <= $3
		ORDER BY h.ts DESC
	`

	rows, err := r.pool.Query(ctx, query, lon, lat, radiusM)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHazards(rows)
}

// List returns hazards matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter, opts ListOptions) ([]*Hazard, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + hazardColumns + `
		FROM hazards h
		JOIN devices d ON d.id = h.device_id
	`)

	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.HazardType != "" {
		addCondition("h.hazard_type = $%d", filter.HazardType)
	}
	if filter.SeverityMin != nil {
		addCondition("h.severity >= $%d", *filter.SeverityMin)
	}
	if filter.SeverityMax != nil {
		addCondition("h.severity <= $%d", *filter.SeverityMax)
	}
	if filter.Start != nil {
		addCondition("h.ts >= $%d", *filter.Start)
	}
	if filter.End != nil {
		addCondition("h.ts <= $%d", *filter.End)
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	args = append(args, opts.Limit)
	limitArg := len(args)
	args = append(args, opts.Skip)
	skipArg := len(args)
	sb.WriteString(fmt.Sprintf(" ORDER BY h.ts DESC LIMIT $%d OFFSET $%d", limitArg, skipArg))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHazards(rows)
}

// Delete removes a hazard; dependent alerts cascade via foreign keys.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM hazards WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// Count returns the total number of hazards.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM hazards`).Scan(&count)
	return count, err
}

// CountByType returns all-time hazard counts keyed by hazard type.
func (r *PostgresRepository) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT hazard_type, count(*)
		FROM hazards
		GROUP BY hazard_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var hazardType string
		var count int
		if err := rows.Scan(&hazardType, &count); err != nil {
			return nil, err
		}
		counts[hazardType] = count
	}

	return counts, rows.Err()
}

// CountByDay returns per-UTC-day hazard counts since the given time.
func (r *PostgresRepository) CountByDay(ctx context.Context, since time.Time) ([]DayCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char((ts AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD'), count(*)
		FROM hazards
		WHERE ts >= $1
		GROUP BY 1
		ORDER BY 1
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []DayCount
	for rows.Next() {
		var day DayCount
		if err := rows.Scan(&day.Date, &day.Count); err != nil {
			return nil, err
		}
		days = append(days, day)
	}

	return days, rows.Err()
}

// Heatmap bins hazards by coordinates rounded to three decimal degrees.
// The round goes through numeric because round(double precision, int) is
// not available on all PostgreSQL versions.
func (r *PostgresRepository) Heatmap(ctx context.Context) ([]Cell, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			round(ST_Y(geom)::numeric, 3)::float8 AS lat,
			round(ST_X(geom)::numeric, 3)::float8 AS lon,
			count(*)
		FROM hazards
		GROUP BY 1, 2
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []Cell
	for rows.Next() {
		var cell Cell
		if err := rows.Scan(&cell.Lat, &cell.Lon, &cell.Count); err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}

	return cells, rows.Err()
}

func scanHazards(rows pgx.Rows) ([]*Hazard, error) {
	var hazards []*Hazard
	for rows.Next() {
		var hazard Hazard
		err := rows.Scan(
			&hazard.ID,
			&hazard.HazardType,
			&hazard.Severity,
			&hazard.Confidence,
			&hazard.Lat,
			&hazard.Lon,
			&hazard.Ts,
			&hazard.DeviceKey,
			&hazard.DeviceID,
		)
		if err != nil {
			return nil, err
		}
		hazards = append(hazards, &hazard)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hazards, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
