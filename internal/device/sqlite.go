package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLiteStore implements Store on SQLite, proving the contract can be
// carried by a durable backend without changing callers.
//
// The two logical indexes map to two tables: devices (by identity) and
// fire_schedule (by expiry second, one row per scheduled device). Claiming
// deletes schedule rows and returns the matching devices inside one
// transaction, preserving the memory store's one-shot semantics across
// restarts.
//
// Mutations autocommit; the unit of work's snapshot/restore provides the
// all-or-nothing rollback, same as for the memory store. See DESIGN.md for
// the trade-off against native SQL transactions.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed store. The db parameter should be
// an open connection with the vigil migrations applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const deviceColumns = `uuid, name, last_will, ttl, created_at, fire_at, consumer_id, consumed, version_number`

// Get retrieves a device by UUID.
func (s *SQLiteStore) Get(ctx context.Context, uuid string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE uuid = ?`

	d, err := scanDevice(s.db.QueryRowContext(ctx, query, uuid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by uuid: %w", err)
	}
	return d, nil
}

// GetAll returns every device keyed by UUID.
func (s *SQLiteStore) GetAll(ctx context.Context) (map[string]*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	all := make(map[string]*Device)
	for rows.Next() {
		d, scanErr := scanDevice(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning device: %w", scanErr)
		}
		all[d.UUID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return all, nil
}

// Add inserts a new device and its schedule row in one transaction.
func (s *SQLiteStore) Add(ctx context.Context, d *Device) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UUID, d.Name, d.LastWill, d.TTL, d.CreatedAt, d.FireAt,
		nullableString(d.ConsumerID), boolToInt(d.Consumed), d.VersionNumber,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fire_schedule (uuid, fire_at) VALUES (?, ?)`,
		d.UUID, d.FireAt,
	)
	if err != nil {
		return fmt.Errorf("scheduling device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}
	return nil
}

// Update applies a partial update. A FireAt change rewrites the schedule row
// in the same transaction, re-bucketing the device even if it had already
// been claimed. A missing UUID is a no-op.
func (s *SQLiteStore) Update(ctx context.Context, uuid string, upd Update) error { //nolint:gocognit // one branch per optional field
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	var sets []string
	var args []any
	if upd.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *upd.Name)
	}
	if upd.LastWill != nil {
		sets, args = append(sets, "last_will = ?"), append(args, *upd.LastWill)
	}
	if upd.TTL != nil {
		sets, args = append(sets, "ttl = ?"), append(args, *upd.TTL)
	}
	if upd.FireAt != nil {
		sets, args = append(sets, "fire_at = ?"), append(args, *upd.FireAt)
	}
	if upd.Consumed != nil {
		sets, args = append(sets, "consumed = ?"), append(args, boolToInt(*upd.Consumed))
	}
	if upd.ConsumerID != nil {
		sets, args = append(sets, "consumer_id = ?"), append(args, *upd.ConsumerID)
	}
	if upd.VersionNumber != nil {
		sets, args = append(sets, "version_number = ?"), append(args, *upd.VersionNumber)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, uuid)
	result, err := tx.ExecContext(ctx,
		`UPDATE devices SET `+strings.Join(sets, ", ")+` WHERE uuid = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		// Missing UUID is a no-op by contract.
		return nil
	}

	if upd.FireAt != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fire_schedule (uuid, fire_at) VALUES (?, ?)
			ON CONFLICT(uuid) DO UPDATE SET fire_at = excluded.fire_at`,
			uuid, *upd.FireAt,
		)
		if err != nil {
			return fmt.Errorf("rescheduling device: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return nil
}

// Remove deletes a device; the schedule row goes with it via ON DELETE
// CASCADE. A missing UUID is a no-op.
func (s *SQLiteStore) Remove(ctx context.Context, uuid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE uuid = ?`, uuid); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return nil
}

// RemoveAll clears both tables.
func (s *SQLiteStore) RemoveAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		return fmt.Errorf("clearing devices: %w", err)
	}
	return nil
}

// ClaimExpired selects the devices scheduled in [start, end] inclusive and
// deletes their schedule rows in one transaction.
func (s *SQLiteStore) ClaimExpired(ctx context.Context, start, end int64) ([]*Device, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	rows, err := tx.QueryContext(ctx, `
		SELECT d.uuid, d.name, d.last_will, d.ttl, d.created_at, d.fire_at,
			d.consumer_id, d.consumed, d.version_number
		FROM devices d
		JOIN fire_schedule fs ON fs.uuid = d.uuid
		WHERE fs.fire_at BETWEEN ? AND ?
		ORDER BY fs.fire_at, d.uuid`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("querying expired devices: %w", err)
	}

	var claimed []*Device
	for rows.Next() {
		d, scanErr := scanDevice(rows)
		if scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning expired device: %w", scanErr)
		}
		claimed = append(claimed, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating expired devices: %w", err)
	}
	rows.Close()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM fire_schedule WHERE fire_at BETWEEN ? AND ?`, start, end)
	if err != nil {
		return nil, fmt.Errorf("unscheduling expired devices: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}
	return claimed, nil
}

// Snapshot reads the full contents of both tables.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	devices, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT uuid, fire_at FROM fire_schedule`)
	if err != nil {
		return nil, fmt.Errorf("querying fire schedule: %w", err)
	}
	defer rows.Close()

	schedule := make(map[string]int64)
	for rows.Next() {
		var uuid string
		var fireAt int64
		if err := rows.Scan(&uuid, &fireAt); err != nil {
			return nil, fmt.Errorf("scanning fire schedule: %w", err)
		}
		schedule[uuid] = fireAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fire schedule: %w", err)
	}

	return &Snapshot{Devices: devices, Schedule: schedule}, nil
}

// Restore rewrites both tables from the snapshot in one transaction.
func (s *SQLiteStore) Restore(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		return fmt.Errorf("clearing devices: %w", err)
	}

	for _, d := range snap.Devices {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO devices (`+deviceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.UUID, d.Name, d.LastWill, d.TTL, d.CreatedAt, d.FireAt,
			nullableString(d.ConsumerID), boolToInt(d.Consumed), d.VersionNumber,
		)
		if err != nil {
			return fmt.Errorf("restoring device: %w", err)
		}
	}
	for uuid, fireAt := range snap.Schedule {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO fire_schedule (uuid, fire_at) VALUES (?, ?)`, uuid, fireAt)
		if err != nil {
			return fmt.Errorf("restoring fire schedule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing restore: %w", err)
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans one row into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var consumerID sql.NullString
	var consumed int

	err := scanner.Scan(
		&d.UUID, &d.Name, &d.LastWill, &d.TTL, &d.CreatedAt, &d.FireAt,
		&consumerID, &consumed, &d.VersionNumber,
	)
	if err != nil {
		return nil, err
	}

	if consumerID.Valid {
		d.ConsumerID = &consumerID.String
	}
	d.Consumed = consumed != 0
	return &d, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
