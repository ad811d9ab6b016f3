package device

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByExternalID retrieves a device by its caller-supplied device id.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*Device, error) {
	query := `
		SELECT id, device_id, device_type, model, firmware_version, registered_at, last_seen, last_active
		FROM devices
		WHERE device_id = $1
	`

	var device Device
	err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&device.ID,
		&device.ExternalID,
		&device.DeviceType,
		&device.Model,
		&device.FirmwareVersion,
		&device.RegisteredAt,
		&device.LastSeen,
		&device.LastActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return &device, nil
}

// Create inserts a new device with its runtime config in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, device *Device, config *Config) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deviceQuery := `
		INSERT INTO devices (id, device_id, device_type, model, firmware_version, registered_at, last_seen, last_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, deviceQuery,
		device.ID,
		device.ExternalID,
		device.DeviceType,
		device.Model,
		device.FirmwareVersion,
		device.RegisteredAt,
		device.LastSeen,
		device.LastActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDeviceExists
		}
		return err
	}

	configQuery := `
		INSERT INTO device_configs (device_id, detection_interval, alert_radius, min_confidence_threshold, last_updated)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = tx.Exec(ctx, configQuery,
		config.DeviceID,
		config.DetectionInterval,
		config.AlertRadius,
		config.MinConfidenceThreshold,
		config.LastUpdated,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update updates the mutable fields of an existing device.
func (r *PostgresRepository) Update(ctx context.Context, device *Device) error {
	query := `
		UPDATE devices SET
			device_type = $2,
			model = $3,
			firmware_version = $4,
			last_seen = $5,
			last_active = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		device.ID,
		device.DeviceType,
		device.Model,
		device.FirmwareVersion,
		device.LastSeen,
		device.LastActive,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// GetConfig retrieves the runtime config by internal device key.
func (r *PostgresRepository) GetConfig(ctx context.Context, deviceID string) (*Config, error) {
	query := `
		SELECT device_id, detection_interval, alert_radius, min_confidence_threshold, last_updated
		FROM device_configs
		WHERE device_id = $1
	`

	var config Config
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&config.DeviceID,
		&config.DetectionInterval,
		&config.AlertRadius,
		&config.MinConfidenceThreshold,
		&config.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	return &config, nil
}

// CreateConfig inserts a runtime config unless one already exists.
func (r *PostgresRepository) CreateConfig(ctx context.Context, config *Config) (bool, error) {
	query := `
		INSERT INTO device_configs (device_id, detection_interval, alert_radius, min_confidence_threshold, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		config.DeviceID,
		config.DetectionInterval,
		config.AlertRadius,
		config.MinConfidenceThreshold,
		config.LastUpdated,
	)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
