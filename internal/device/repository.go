package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations of the registry.
type Repository interface {
	// Upsert inserts the device or updates its descriptive fields and last_seen.
	// first_seen is kept from the existing row.
	Upsert(ctx context.Context, d *Device) error

	// GetByIdentifier returns ErrDeviceNotFound if the identifier is unknown.
	GetByIdentifier(ctx context.Context, identifier string) (*Device, error)

	// List returns every device, ordered by bridge then device id.
	List(ctx context.Context) ([]Device, error)

	// ListByBridge returns the devices of one bridge.
	ListByBridge(ctx context.Context, bridgeID string) ([]Device, error)
}

// SQLiteRepository implements Repository on the bridge_devices table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `
	SELECT bridge_id, device_id, identifier, name, manufacturer, model,
		suggested_area, device_type, first_seen, last_seen
	FROM bridge_devices`

// Upsert inserts or updates a device.
func (r *SQLiteRepository) Upsert(ctx context.Context, d *Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO bridge_devices (
			bridge_id, device_id, identifier, name, manufacturer, model,
			suggested_area, device_type, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bridge_id, device_id) DO UPDATE SET
			identifier = excluded.identifier,
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			suggested_area = excluded.suggested_area,
			device_type = excluded.device_type,
			last_seen = excluded.last_seen`

	_, err := r.db.ExecContext(ctx, query,
		d.BridgeID, d.DeviceID, d.Identifier, d.Name, d.Manufacturer, d.Model,
		nullString(d.SuggestedArea), d.DeviceType,
		d.FirstSeen.UTC().Format(time.RFC3339Nano),
		d.LastSeen.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", d.Identifier, err)
	}
	return nil
}

// GetByIdentifier retrieves a device by its registry identifier.
func (r *SQLiteRepository) GetByIdentifier(ctx context.Context, identifier string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE identifier = ?`, identifier)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by identifier: %w", err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, selectColumns+` ORDER BY bridge_id, device_id`)
}

// ListByBridge retrieves the devices of one bridge.
func (r *SQLiteRepository) ListByBridge(ctx context.Context, bridgeID string) ([]Device, error) {
	return r.queryDevices(ctx, selectColumns+` WHERE bridge_id = ? ORDER BY device_id`, bridgeID)
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*Device, error) {
	var d Device
	var area sql.NullString
	var firstSeen, lastSeen string

	if err := row.Scan(
		&d.BridgeID, &d.DeviceID, &d.Identifier, &d.Name, &d.Manufacturer, &d.Model,
		&area, &d.DeviceType, &firstSeen, &lastSeen,
	); err != nil {
		return nil, err
	}

	if area.Valid {
		d.SuggestedArea = &area.String
	}
	d.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen) //nolint:errcheck // Format is controlled
	d.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)   //nolint:errcheck // Format is controlled
	return &d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
