// Package ledger owns the durable weighbridge records: vehicles, material
// types, destinations, weighing tickets and the audit trail.
package ledger

import "time"

// Vehicle is a truck known to the weighbridge. UnitID is the operator-facing
// identifier painted on the truck; RegistryID is the optional external
// registry number. Tare and maximum gross weights are kilograms.
type Vehicle struct {
	ID               int64      `json:"id"`
	UnitID           string     `json:"unit_id"`
	CompanyName      string     `json:"company_name"`
	RegistryID       *string    `json:"registry_id"`
	TareWeight       float64    `json:"tare_weight"`
	MaxAllowedWeight float64    `json:"max_allowed_weight"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastUsedAt       *time.Time `json:"last_used_at"`
}

// MaterialType is a kind of weighed material (sand, gravel, asphalt).
type MaterialType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Destination is a delivery target for weighed loads.
type Destination struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeighingTicket is one completed weighing transaction. TareWeight is the
// vehicle's tare as recorded at the moment of weighing; later edits to the
// vehicle never change it.
type WeighingTicket struct {
	ID             int64     `json:"id"`
	VehicleID      int64     `json:"vehicle_id"`
	MaterialTypeID int64     `json:"material_type_id"`
	DestinationID  int64     `json:"destination_id"`
	GrossWeight    float64   `json:"gross_weight"`
	TareWeight     float64   `json:"tare_weight"`
	NetWeight      float64   `json:"net_weight"`
	WeighedAt      time.Time `json:"weighed_at"`
	OperatorName   *string   `json:"operator_name"`
	Printed        bool      `json:"printed"`
}

// Audit actions.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
)

// AuditEntry records one mutation against a ledger table. OldValues is nil
// for inserts. Entries are append-only.
type AuditEntry struct {
	ID         int64          `json:"id"`
	TableName  string         `json:"table_name"`
	RecordID   int64          `json:"record_id"`
	Action     string         `json:"action"`
	Actor      *string        `json:"actor"`
	RecordedAt time.Time      `json:"recorded_at"`
	OldValues  map[string]any `json:"old_values"`
	NewValues  map[string]any `json:"new_values"`
}
