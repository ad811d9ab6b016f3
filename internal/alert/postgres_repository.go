package alert

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadsignal/roadsignal/internal/api/models"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	a.id, a.hazard_id, a.sender_device_id, a.receiver_device_id,
	s.device_id AS sender_external_id, r.device_id AS receiver_external_id,
	a.alert_type, a.status, a.created_at, a.acknowledged_at
`

const alertJoins = `
	FROM alerts a
	JOIN devices s ON s.id = a.sender_device_id
	LEFT JOIN devices r ON r.id = a.receiver_device_id
`

// Create persists a new alert.
func (r *PostgresRepository) Create(ctx context.Context, alert *Alert) error {
	query := `
		INSERT INTO alerts (id, hazard_id, sender_device_id, receiver_device_id, alert_type, status, created_at, acknowledged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.HazardID,
		alert.SenderKey,
		alert.ReceiverKey,
		alert.Type,
		alert.Status,
		alert.CreatedAt,
		alert.AcknowledgedAt,
	)
	return err
}

// Get retrieves an alert by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + alertJoins + ` WHERE a.id = $1`

	var alert Alert
	var receiverExternal *string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&alert.ID,
		&alert.HazardID,
		&alert.SenderKey,
		&alert.ReceiverKey,
		&alert.SenderDeviceID,
		&receiverExternal,
		&alert.Type,
		&alert.Status,
		&alert.CreatedAt,
		&alert.AcknowledgedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	alert.ReceiverDeviceID = receiverExternal
	return &alert, nil
}

// ListByDevice returns alerts where the device is sender or receiver,
// newest first.
func (r *PostgresRepository) ListByDevice(ctx context.Context, deviceKey string) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + alertJoins + `
		WHERE a.sender_device_id = $1 OR a.receiver_device_id = $1
		ORDER BY a.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, deviceKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var alert Alert
		var receiverExternal *string
		err := rows.Scan(
			&alert.ID,
			&alert.HazardID,
			&alert.SenderKey,
			&alert.ReceiverKey,
			&alert.SenderDeviceID,
			&receiverExternal,
			&alert.Type,
			&alert.Status,
			&alert.CreatedAt,
			&alert.AcknowledgedAt,
		)
		if err != nil {
			return nil, err
		}
		alert.ReceiverDeviceID = receiverExternal
		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// Acknowledge transitions the alert from sent to acknowledged. The
// conditional update serializes concurrent acknowledgments: only one
// writer flips the row, everyone reads back the same acknowledged_at.
func (r *PostgresRepository) Acknowledge(ctx context.Context, id string, at time.Time) (*Alert, error) {
	query := `
		UPDATE alerts
		SET status = $2, acknowledged_at = $3
		WHERE id = $1 AND status = $4
	`

	_, err := r.pool.Exec(ctx, query, id, models.AlertStatusAcknowledged, at, models.AlertStatusSent)
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Delete removes an alert.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// DeleteByHazard removes all alerts referencing a hazard.
func (r *PostgresRepository) DeleteByHazard(ctx context.Context, hazardID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE hazard_id = $1`, hazardID)
	return err
}

// CountActive returns the number of alerts not yet acknowledged.
func (r *PostgresRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM alerts WHERE status <> $1`,
		models.AlertStatusAcknowledged,
	).Scan(&count)
	return count, err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
