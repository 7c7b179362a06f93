package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scalehouse/scalehouse/internal/platform/db"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PGRepository persists ledger records in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs PGRepository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type pgTxRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside one transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepo{tx: tx})
	})
}

// mapError translates storage errors into ledger sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrForeignKey)
		}
	}
	return err
}

const vehicleColumns = `id, unit_id, company_name, registry_id, tare_weight, max_allowed_weight, created_at, updated_at, last_used_at`

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.UnitID, &v.CompanyName, &v.RegistryID, &v.TareWeight,
		&v.MaxAllowedWeight, &v.CreatedAt, &v.UpdatedAt, &v.LastUsedAt)
	return v, mapError(err)
}

func (r *PGRepository) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	return scanVehicle(r.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
}

func (r *PGRepository) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *PGRepository) GetMaterialType(ctx context.Context, id int64) (MaterialType, error) {
	var m MaterialType
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM material_types WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	return m, mapError(err)
}

func (r *PGRepository) ListMaterialTypes(ctx context.Context) ([]MaterialType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM material_types ORDER BY name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var materials []MaterialType
	for rows.Next() {
		var m MaterialType
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *PGRepository) GetDestination(ctx context.Context, id int64) (Destination, error) {
	var d Destination
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, address, created_at, updated_at FROM destinations WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	return d, mapError(err)
}

func (r *PGRepository) ListDestinations(ctx context.Context) ([]Destination, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, address, created_at, updated_at FROM destinations ORDER BY name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var destinations []Destination
	for rows.Next() {
		var d Destination
		if err := rows.Scan(&d.ID, &d.Name, &d.Address, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		destinations = append(destinations, d)
	}
	return destinations, rows.Err()
}

func (r *PGRepository) ListTickets(ctx context.Context, limit int) ([]WeighingTicket, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, vehicle_id, material_type_id, destination_id, gross_weight,
		       tare_weight, net_weight, weighed_at, operator_name, printed
		FROM weighing_tickets ORDER BY weighed_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tickets []WeighingTicket
	for rows.Next() {
		var t WeighingTicket
		if err := rows.Scan(&t.ID, &t.VehicleID, &t.MaterialTypeID, &t.DestinationID,
			&t.GrossWeight, &t.TareWeight, &t.NetWeight, &t.WeighedAt, &t.OperatorName, &t.Printed); err != nil {
			return nil, mapError(err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *PGRepository) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, table_name, record_id, action, actor, recorded_at, old_values, new_values
		FROM audit_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var oldRaw, newRaw []byte
		if err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.Action, &e.Actor,
			&e.RecordedAt, &oldRaw, &newRaw); err != nil {
			return nil, mapError(err)
		}
		if len(oldRaw) > 0 {
			if err := json.Unmarshal(oldRaw, &e.OldValues); err != nil {
				return nil, fmt.Errorf("ledger: decode old values: %w", err)
			}
		}
		if len(newRaw) > 0 {
			if err := json.Unmarshal(newRaw, &e.NewValues); err != nil {
				return nil, fmt.Errorf("ledger: decode new values: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *pgTxRepo) InsertVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	now := time.Now()
	return scanVehicle(t.tx.QueryRow(ctx, `
		INSERT INTO vehicles (unit_id, company_name, registry_id, tare_weight, max_allowed_weight, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+vehicleColumns,
		v.UnitID, v.CompanyName, v.RegistryID, v.TareWeight, v.MaxAllowedWeight, now))
}

func (t *pgTxRepo) UpdateVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	return scanVehicle(t.tx.QueryRow(ctx, `
		UPDATE vehicles
		SET unit_id = $2, company_name = $3, registry_id = $4, tare_weight = $5,
		    max_allowed_weight = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+vehicleColumns,
		v.ID, v.UnitID, v.CompanyName, v.RegistryID, v.TareWeight, v.MaxAllowedWeight, time.Now()))
}

func (t *pgTxRepo) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	return scanVehicle(t.tx.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
}

func (t *pgTxRepo) TouchVehicle(ctx context.Context, id int64, usedAt time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE vehicles SET last_used_at = $2, updated_at = $2 WHERE id = $1`, id, usedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTxRepo) InsertMaterialType(ctx context.Context, m MaterialType) (MaterialType, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO material_types (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id, name, description, created_at, updated_at`,
		m.Name, m.Description, time.Now()).
		Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	return m, mapError(err)
}

func (t *pgTxRepo) UpdateMaterialType(ctx context.Context, m MaterialType) (MaterialType, error) {
	err := t.tx.QueryRow(ctx, `
		UPDATE material_types SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at`,
		m.ID, m.Name, m.Description, time.Now()).
		Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	return m, mapError(err)
}

func (t *pgTxRepo) GetMaterialType(ctx context.Context, id int64) (MaterialType, error) {
	var m MaterialType
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM material_types WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	return m, mapError(err)
}

func (t *pgTxRepo) InsertDestination(ctx context.Context, d Destination) (Destination, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO destinations (name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id, name, address, created_at, updated_at`,
		d.Name, d.Address, time.Now()).
		Scan(&d.ID, &d.Name, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	return d, mapError(err)
}

func (t *pgTxRepo) UpdateDestination(ctx context.Context, d Destination) (Destination, error) {
	err := t.tx.QueryRow(ctx, `
		UPDATE destinations SET name = $2, address = $3, updated_at = $4
		WHERE id = $1
		RETURNING id, name, address, created_at, updated_at`,
		d.ID, d.Name, d.Address, time.Now()).
		Scan(&d.ID, &d.Name, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	return d, mapError(err)
}

func (t *pgTxRepo) GetDestination(ctx context.Context, id int64) (Destination, error) {
	var d Destination
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, address, created_at, updated_at FROM destinations WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	return d, mapError(err)
}

func (t *pgTxRepo) InsertTicket(ctx context.Context, tk WeighingTicket) (WeighingTicket, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO weighing_tickets (vehicle_id, material_type_id, destination_id,
			gross_weight, tare_weight, net_weight, weighed_at, operator_name, printed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		tk.VehicleID, tk.MaterialTypeID, tk.DestinationID, tk.GrossWeight, tk.TareWeight,
		tk.NetWeight, tk.WeighedAt, tk.OperatorName, tk.Printed).
		Scan(&tk.ID)
	return tk, mapError(err)
}

func (t *pgTxRepo) InsertAuditEntry(ctx context.Context, e AuditEntry) (AuditEntry, error) {
	var oldJSON []byte
	if e.OldValues != nil {
		b, err := json.Marshal(e.OldValues)
		if err != nil {
			return AuditEntry{}, fmt.Errorf("ledger: encode old values: %w", err)
		}
		oldJSON = b
	}
	newJSON, err := json.Marshal(e.NewValues)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("ledger: encode new values: %w", err)
	}

	err = t.tx.QueryRow(ctx, `
		INSERT INTO audit_entries (table_name, record_id, action, actor, recorded_at, old_values, new_values)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, recorded_at`,
		e.TableName, e.RecordID, e.Action, e.Actor, time.Now(), oldJSON, newJSON).
		Scan(&e.ID, &e.RecordedAt)
	return e, mapError(err)
}
