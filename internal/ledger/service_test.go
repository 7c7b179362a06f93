package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	vehicles     map[int64]Vehicle
	materials    map[int64]MaterialType
	destinations map[int64]Destination
	tickets      []WeighingTicket
	audits       []AuditEntry
	nextID       int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		vehicles:     make(map[int64]Vehicle),
		materials:    make(map[int64]MaterialType),
		destinations: make(map[int64]Destination),
	}
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (r *memoryRepo) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	out := make([]Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (r *memoryRepo) GetMaterialType(ctx context.Context, id int64) (MaterialType, error) {
	m, ok := r.materials[id]
	if !ok {
		return MaterialType{}, ErrNotFound
	}
	return m, nil
}

func (r *memoryRepo) ListMaterialTypes(ctx context.Context) ([]MaterialType, error) {
	out := make([]MaterialType, 0, len(r.materials))
	for _, m := range r.materials {
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) GetDestination(ctx context.Context, id int64) (Destination, error) {
	d, ok := r.destinations[id]
	if !ok {
		return Destination{}, ErrNotFound
	}
	return d, nil
}

func (r *memoryRepo) ListDestinations(ctx context.Context) ([]Destination, error) {
	out := make([]Destination, 0, len(r.destinations))
	for _, d := range r.destinations {
		out = append(out, d)
	}
	return out, nil
}

func (r *memoryRepo) ListTickets(ctx context.Context, limit int) ([]WeighingTicket, error) {
	out := make([]WeighingTicket, 0, len(r.tickets))
	for i := len(r.tickets) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.tickets[i])
	}
	return out, nil
}

func (r *memoryRepo) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	out := make([]AuditEntry, 0, len(r.audits))
	for i := len(r.audits) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.audits[i])
	}
	return out, nil
}

func (tx *memoryTx) InsertVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	for _, existing := range tx.repo.vehicles {
		if existing.UnitID == v.UnitID {
			return Vehicle{}, fmt.Errorf("vehicles_unit_id_key: %w", ErrConflict)
		}
	}
	v.ID = tx.repo.id()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	tx.repo.vehicles[v.ID] = v
	return v, nil
}

func (tx *memoryTx) UpdateVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	old, ok := tx.repo.vehicles[v.ID]
	if !ok {
		return Vehicle{}, ErrNotFound
	}
	v.CreatedAt = old.CreatedAt
	v.LastUsedAt = old.LastUsedAt
	v.UpdatedAt = time.Now()
	tx.repo.vehicles[v.ID] = v
	return v, nil
}

func (tx *memoryTx) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	return tx.repo.GetVehicle(ctx, id)
}

func (tx *memoryTx) TouchVehicle(ctx context.Context, id int64, usedAt time.Time) error {
	v, ok := tx.repo.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	v.LastUsedAt = &usedAt
	tx.repo.vehicles[id] = v
	return nil
}

func (tx *memoryTx) InsertMaterialType(ctx context.Context, m MaterialType) (MaterialType, error) {
	for _, existing := range tx.repo.materials {
		if existing.Name == m.Name {
			return MaterialType{}, fmt.Errorf("material_types_name_key: %w", ErrConflict)
		}
	}
	m.ID = tx.repo.id()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	tx.repo.materials[m.ID] = m
	return m, nil
}

func (tx *memoryTx) UpdateMaterialType(ctx context.Context, m MaterialType) (MaterialType, error) {
	old, ok := tx.repo.materials[m.ID]
	if !ok {
		return MaterialType{}, ErrNotFound
	}
	m.CreatedAt = old.CreatedAt
	m.UpdatedAt = time.Now()
	tx.repo.materials[m.ID] = m
	return m, nil
}

func (tx *memoryTx) GetMaterialType(ctx context.Context, id int64) (MaterialType, error) {
	return tx.repo.GetMaterialType(ctx, id)
}

func (tx *memoryTx) InsertDestination(ctx context.Context, d Destination) (Destination, error) {
	d.ID = tx.repo.id()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	tx.repo.destinations[d.ID] = d
	return d, nil
}

func (tx *memoryTx) UpdateDestination(ctx context.Context, d Destination) (Destination, error) {
	old, ok := tx.repo.destinations[d.ID]
	if !ok {
		return Destination{}, ErrNotFound
	}
	d.CreatedAt = old.CreatedAt
	d.UpdatedAt = time.Now()
	tx.repo.destinations[d.ID] = d
	return d, nil
}

func (tx *memoryTx) GetDestination(ctx context.Context, id int64) (Destination, error) {
	return tx.repo.GetDestination(ctx, id)
}

func (tx *memoryTx) InsertTicket(ctx context.Context, t WeighingTicket) (WeighingTicket, error) {
	t.ID = tx.repo.id()
	tx.repo.tickets = append(tx.repo.tickets, t)
	return t, nil
}

func (tx *memoryTx) InsertAuditEntry(ctx context.Context, e AuditEntry) (AuditEntry, error) {
	e.ID = tx.repo.id()
	e.RecordedAt = time.Now()
	tx.repo.audits = append(tx.repo.audits, e)
	return e, nil
}

func seedCatalog(t *testing.T, svc *Service) (Vehicle, MaterialType, Destination) {
	t.Helper()
	ctx := context.Background()

	vehicle, err := svc.CreateVehicle(ctx, VehicleInput{
		UnitID:           "TRK-01",
		CompanyName:      "Granite Hauling",
		RegistryID:       "B 9021 XY",
		TareWeight:       8000,
		MaxAllowedWeight: 24000,
	})
	require.NoError(t, err)

	material, err := svc.CreateMaterialType(ctx, MaterialTypeInput{Name: "Sand"})
	require.NoError(t, err)

	destination, err := svc.CreateDestination(ctx, DestinationInput{Name: "North Plant"})
	require.NoError(t, err)

	return vehicle, material, destination
}

func TestCreateVehicleWritesAudit(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	vehicle, err := svc.CreateVehicle(ctx, VehicleInput{
		UnitID:           "TRK-01",
		CompanyName:      "Granite Hauling",
		TareWeight:       8000,
		MaxAllowedWeight: 24000,
	})
	require.NoError(t, err)
	require.NotZero(t, vehicle.ID)
	require.Nil(t, vehicle.RegistryID)

	require.Len(t, repo.audits, 1)
	entry := repo.audits[0]
	require.Equal(t, TableVehicles, entry.TableName)
	require.Equal(t, ActionInsert, entry.Action)
	require.Equal(t, vehicle.ID, entry.RecordID)
	require.Nil(t, entry.OldValues)
	require.Equal(t, "TRK-01", entry.NewValues["unit_id"])
}

func TestCreateVehicleTrimsAndNormalizes(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	vehicle, err := svc.CreateVehicle(context.Background(), VehicleInput{
		UnitID:           "  TRK-02 ",
		CompanyName:      " Basalt Freight ",
		RegistryID:       "   ",
		TareWeight:       7500,
		MaxAllowedWeight: 20000,
	})
	require.NoError(t, err)
	require.Equal(t, "TRK-02", vehicle.UnitID)
	require.Equal(t, "Basalt Freight", vehicle.CompanyName)
	require.Nil(t, vehicle.RegistryID)
}

func TestCreateVehicleValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input VehicleInput
	}{
		{"missing unit id", VehicleInput{CompanyName: "X", TareWeight: 1, MaxAllowedWeight: 2}},
		{"missing company", VehicleInput{UnitID: "T", TareWeight: 1, MaxAllowedWeight: 2}},
		{"zero tare", VehicleInput{UnitID: "T", CompanyName: "X", TareWeight: 0, MaxAllowedWeight: 2}},
		{"max not above tare", VehicleInput{UnitID: "T", CompanyName: "X", TareWeight: 9000, MaxAllowedWeight: 9000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateVehicle(ctx, tc.input)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
	require.Empty(t, repo.vehicles)
	require.Empty(t, repo.audits)
}

func TestCreateVehicleDuplicateUnitID(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateVehicle(ctx, VehicleInput{
		UnitID: "TRK-01", CompanyName: "Granite Hauling", TareWeight: 8000, MaxAllowedWeight: 24000,
	})
	require.NoError(t, err)

	_, err = svc.CreateVehicle(ctx, VehicleInput{
		UnitID: "TRK-01", CompanyName: "Other Co", TareWeight: 7000, MaxAllowedWeight: 21000,
	})
	require.ErrorIs(t, err, ErrConflict)
	require.Len(t, repo.vehicles, 1)
	require.Len(t, repo.audits, 1)
}

func TestUpdateVehicleAuditsOldAndNew(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	vehicle, err := svc.CreateVehicle(ctx, VehicleInput{
		UnitID: "TRK-01", CompanyName: "Granite Hauling", TareWeight: 8000, MaxAllowedWeight: 24000,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateVehicle(ctx, vehicle.ID, VehicleInput{
		UnitID: "TRK-01", CompanyName: "Granite Hauling", TareWeight: 8200, MaxAllowedWeight: 24000,
	})
	require.NoError(t, err)
	require.InDelta(t, 8200, updated.TareWeight, 0.001)

	require.Len(t, repo.audits, 2)
	entry := repo.audits[1]
	require.Equal(t, ActionUpdate, entry.Action)
	require.Equal(t, float64(8000), entry.OldValues["tare_weight"])
	require.Equal(t, float64(8200), entry.NewValues["tare_weight"])
}

func TestUpdateVehicleUnknownID(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.UpdateVehicle(context.Background(), 999, VehicleInput{
		UnitID: "TRK-01", CompanyName: "Granite Hauling", TareWeight: 8000, MaxAllowedWeight: 24000,
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.audits)
}

func TestRecordTicket(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	weighedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return weighedAt }

	vehicle, material, destination := seedCatalog(t, svc)

	ticket, err := svc.RecordTicket(ctx, TicketInput{
		VehicleID:      vehicle.ID,
		MaterialTypeID: material.ID,
		DestinationID:  destination.ID,
		GrossWeight:    12000,
		TareWeight:     8000,
		NetWeight:      4000,
		OperatorName:   "budi",
	})
	require.NoError(t, err)
	require.NotZero(t, ticket.ID)
	require.InDelta(t, 4000, ticket.NetWeight, 0.001)
	require.Equal(t, weighedAt, ticket.WeighedAt)
	require.NotNil(t, ticket.OperatorName)
	require.Equal(t, "budi", *ticket.OperatorName)

	// Vehicle recency advances with the commit.
	stored, err := repo.GetVehicle(ctx, vehicle.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	require.Equal(t, weighedAt, *stored.LastUsedAt)

	// Exactly one ticket audit entry, attributed to the operator.
	var ticketAudits []AuditEntry
	for _, e := range repo.audits {
		if e.TableName == TableTickets {
			ticketAudits = append(ticketAudits, e)
		}
	}
	require.Len(t, ticketAudits, 1)
	require.Equal(t, ticket.ID, ticketAudits[0].RecordID)
	require.NotNil(t, ticketAudits[0].Actor)
	require.Equal(t, "budi", *ticketAudits[0].Actor)
}

func TestRecordTicketLastUsedAdvances(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	current := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	vehicle, material, destination := seedCatalog(t, svc)
	input := TicketInput{
		VehicleID:      vehicle.ID,
		MaterialTypeID: material.ID,
		DestinationID:  destination.ID,
		GrossWeight:    12000,
		TareWeight:     8000,
		NetWeight:      4000,
	}

	_, err := svc.RecordTicket(ctx, input)
	require.NoError(t, err)
	first, err := repo.GetVehicle(ctx, vehicle.ID)
	require.NoError(t, err)

	current = current.Add(45 * time.Minute)
	_, err = svc.RecordTicket(ctx, input)
	require.NoError(t, err)
	second, err := repo.GetVehicle(ctx, vehicle.ID)
	require.NoError(t, err)

	require.True(t, second.LastUsedAt.After(*first.LastUsedAt))
}

func TestRecordTicketRejectsBadWeights(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	vehicle, material, destination := seedCatalog(t, svc)

	cases := []struct {
		name  string
		input TicketInput
	}{
		{"zero gross", TicketInput{VehicleID: vehicle.ID, MaterialTypeID: material.ID, DestinationID: destination.ID, GrossWeight: 0, TareWeight: 8000, NetWeight: -8000}},
		{"negative net", TicketInput{VehicleID: vehicle.ID, MaterialTypeID: material.ID, DestinationID: destination.ID, GrossWeight: 5000, TareWeight: 8000, NetWeight: -3000}},
		{"inconsistent net", TicketInput{VehicleID: vehicle.ID, MaterialTypeID: material.ID, DestinationID: destination.ID, GrossWeight: 12000, TareWeight: 8000, NetWeight: 3999}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordTicket(ctx, tc.input)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
	require.Empty(t, repo.tickets)
}

func TestRecordTicketUnknownReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	vehicle, material, destination := seedCatalog(t, svc)

	cases := []struct {
		name  string
		input TicketInput
	}{
		{"unknown vehicle", TicketInput{VehicleID: 999, MaterialTypeID: material.ID, DestinationID: destination.ID, GrossWeight: 12000, TareWeight: 8000, NetWeight: 4000}},
		{"unknown material", TicketInput{VehicleID: vehicle.ID, MaterialTypeID: 999, DestinationID: destination.ID, GrossWeight: 12000, TareWeight: 8000, NetWeight: 4000}},
		{"unknown destination", TicketInput{VehicleID: vehicle.ID, MaterialTypeID: material.ID, DestinationID: 999, GrossWeight: 12000, TareWeight: 8000, NetWeight: 4000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordTicket(ctx, tc.input)
			require.ErrorIs(t, err, ErrForeignKey)
		})
	}
	require.Empty(t, repo.tickets)
}

func TestMaterialTypeLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateMaterialType(ctx, MaterialTypeInput{Name: " Gravel ", Description: ""})
	require.NoError(t, err)
	require.Equal(t, "Gravel", created.Name)
	require.Nil(t, created.Description)

	updated, err := svc.UpdateMaterialType(ctx, created.ID, MaterialTypeInput{Name: "Gravel", Description: "crushed 20mm"})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	require.Equal(t, "crushed 20mm", *updated.Description)

	require.Len(t, repo.audits, 2)
	require.Equal(t, ActionUpdate, repo.audits[1].Action)
	require.Nil(t, repo.audits[1].OldValues["description"])
	require.Equal(t, "crushed 20mm", repo.audits[1].NewValues["description"])

	_, err = svc.CreateMaterialType(ctx, MaterialTypeInput{Name: ""})
	require.ErrorIs(t, err, ErrValidation)
}
