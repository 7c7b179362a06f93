package ledger

import "time"

// Table names as recorded in audit entries.
const (
	TableVehicles      = "vehicles"
	TableMaterialTypes = "material_types"
	TableDestinations  = "destinations"
	TableTickets       = "weighing_tickets"
)

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func vehicleSnapshot(v Vehicle) map[string]any {
	return map[string]any{
		"id":                 v.ID,
		"unit_id":            v.UnitID,
		"company_name":       v.CompanyName,
		"registry_id":        strPtr(v.RegistryID),
		"tare_weight":        v.TareWeight,
		"max_allowed_weight": v.MaxAllowedWeight,
		"last_used_at":       timePtr(v.LastUsedAt),
	}
}

func materialTypeSnapshot(m MaterialType) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"description": strPtr(m.Description),
	}
}

func destinationSnapshot(d Destination) map[string]any {
	return map[string]any{
		"id":      d.ID,
		"name":    d.Name,
		"address": strPtr(d.Address),
	}
}

func ticketSnapshot(t WeighingTicket) map[string]any {
	return map[string]any{
		"id":               t.ID,
		"vehicle_id":       t.VehicleID,
		"material_type_id": t.MaterialTypeID,
		"destination_id":   t.DestinationID,
		"gross_weight":     t.GrossWeight,
		"tare_weight":      t.TareWeight,
		"net_weight":       t.NetWeight,
		"weighed_at":       t.WeighedAt.Format(time.RFC3339Nano),
		"operator_name":    strPtr(t.OperatorName),
		"printed":          t.Printed,
	}
}
