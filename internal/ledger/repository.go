package ledger

import (
	"context"
	"time"
)

// Repository reads ledger records. All mutations run through WithTx so that
// a record and its audit entry become durable together or not at all.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetVehicle(ctx context.Context, id int64) (Vehicle, error)
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	GetMaterialType(ctx context.Context, id int64) (MaterialType, error)
	ListMaterialTypes(ctx context.Context) ([]MaterialType, error)
	GetDestination(ctx context.Context, id int64) (Destination, error)
	ListDestinations(ctx context.Context) ([]Destination, error)
	ListTickets(ctx context.Context, limit int) ([]WeighingTicket, error)
	ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error)
}

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	InsertVehicle(ctx context.Context, v Vehicle) (Vehicle, error)
	UpdateVehicle(ctx context.Context, v Vehicle) (Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (Vehicle, error)
	// TouchVehicle advances the vehicle's last-used marker.
	TouchVehicle(ctx context.Context, id int64, usedAt time.Time) error

	InsertMaterialType(ctx context.Context, m MaterialType) (MaterialType, error)
	UpdateMaterialType(ctx context.Context, m MaterialType) (MaterialType, error)
	GetMaterialType(ctx context.Context, id int64) (MaterialType, error)

	InsertDestination(ctx context.Context, d Destination) (Destination, error)
	UpdateDestination(ctx context.Context, d Destination) (Destination, error)
	GetDestination(ctx context.Context, id int64) (Destination, error)

	InsertTicket(ctx context.Context, t WeighingTicket) (WeighingTicket, error)
	InsertAuditEntry(ctx context.Context, e AuditEntry) (AuditEntry, error)
}
