package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Service implements the ledger operations. Every mutation commits together
// with exactly one audit entry.
type Service struct {
	repo      Repository
	directory *Directory
	now       func() time.Time
}

// NewService constructs Service. directory may be nil when MRU invalidation
// is not needed (tests).
func NewService(repo Repository, directory *Directory) *Service {
	return &Service{repo: repo, directory: directory, now: time.Now}
}

// VehicleInput carries operator-entered vehicle fields.
type VehicleInput struct {
	UnitID           string
	CompanyName      string
	RegistryID       string
	TareWeight       float64
	MaxAllowedWeight float64
}

// MaterialTypeInput carries operator-entered material type fields.
type MaterialTypeInput struct {
	Name        string
	Description string
}

// DestinationInput carries operator-entered destination fields.
type DestinationInput struct {
	Name    string
	Address string
}

// TicketInput carries a validated weighing transaction.
type TicketInput struct {
	VehicleID      int64
	MaterialTypeID int64
	DestinationID  int64
	GrossWeight    float64
	TareWeight     float64
	NetWeight      float64
	OperatorName   string
	Printed        bool
}

// normalizeOptional maps empty or whitespace-only text to absent.
func normalizeOptional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validateVehicleInput(in VehicleInput) error {
	if strings.TrimSpace(in.UnitID) == "" {
		return fmt.Errorf("unit id is required: %w", ErrValidation)
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return fmt.Errorf("company name is required: %w", ErrValidation)
	}
	if in.TareWeight <= 0 {
		return fmt.Errorf("tare weight must be positive: %w", ErrValidation)
	}
	if in.MaxAllowedWeight <= in.TareWeight {
		return fmt.Errorf("max allowed weight must exceed tare weight: %w", ErrValidation)
	}
	return nil
}

func (s *Service) invalidateDirectory() {
	if s.directory != nil {
		s.directory.Invalidate()
	}
}

// CreateVehicle inserts a vehicle and its audit entry in one transaction.
func (s *Service) CreateVehicle(ctx context.Context, in VehicleInput) (Vehicle, error) {
	if err := validateVehicleInput(in); err != nil {
		return Vehicle{}, err
	}

	var created Vehicle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		v, err := tx.InsertVehicle(ctx, Vehicle{
			UnitID:           strings.TrimSpace(in.UnitID),
			CompanyName:      strings.TrimSpace(in.CompanyName),
			RegistryID:       normalizeOptional(in.RegistryID),
			TareWeight:       in.TareWeight,
			MaxAllowedWeight: in.MaxAllowedWeight,
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableVehicles,
			RecordID:  v.ID,
			Action:    ActionInsert,
			NewValues: vehicleSnapshot(v),
		}); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return Vehicle{}, err
	}
	s.invalidateDirectory()
	return created, nil
}

// UpdateVehicle edits a vehicle, auditing old and new field values.
func (s *Service) UpdateVehicle(ctx context.Context, id int64, in VehicleInput) (Vehicle, error) {
	if err := validateVehicleInput(in); err != nil {
		return Vehicle{}, err
	}

	var updated Vehicle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetVehicle(ctx, id)
		if err != nil {
			return err
		}
		v, err := tx.UpdateVehicle(ctx, Vehicle{
			ID:               id,
			UnitID:           strings.TrimSpace(in.UnitID),
			CompanyName:      strings.TrimSpace(in.CompanyName),
			RegistryID:       normalizeOptional(in.RegistryID),
			TareWeight:       in.TareWeight,
			MaxAllowedWeight: in.MaxAllowedWeight,
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableVehicles,
			RecordID:  v.ID,
			Action:    ActionUpdate,
			OldValues: vehicleSnapshot(old),
			NewValues: vehicleSnapshot(v),
		}); err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return Vehicle{}, err
	}
	s.invalidateDirectory()
	return updated, nil
}

// GetVehicle returns one vehicle by id.
func (s *Service) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

// CreateMaterialType inserts a material type with its audit entry.
func (s *Service) CreateMaterialType(ctx context.Context, in MaterialTypeInput) (MaterialType, error) {
	if strings.TrimSpace(in.Name) == "" {
		return MaterialType{}, fmt.Errorf("material type name is required: %w", ErrValidation)
	}

	var created MaterialType
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.InsertMaterialType(ctx, MaterialType{
			Name:        strings.TrimSpace(in.Name),
			Description: normalizeOptional(in.Description),
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableMaterialTypes,
			RecordID:  m.ID,
			Action:    ActionInsert,
			NewValues: materialTypeSnapshot(m),
		}); err != nil {
			return err
		}
		created = m
		return nil
	})
	return created, err
}

// UpdateMaterialType edits a material type, auditing old and new values.
func (s *Service) UpdateMaterialType(ctx context.Context, id int64, in MaterialTypeInput) (MaterialType, error) {
	if strings.TrimSpace(in.Name) == "" {
		return MaterialType{}, fmt.Errorf("material type name is required: %w", ErrValidation)
	}

	var updated MaterialType
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetMaterialType(ctx, id)
		if err != nil {
			return err
		}
		m, err := tx.UpdateMaterialType(ctx, MaterialType{
			ID:          id,
			Name:        strings.TrimSpace(in.Name),
			Description: normalizeOptional(in.Description),
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableMaterialTypes,
			RecordID:  m.ID,
			Action:    ActionUpdate,
			OldValues: materialTypeSnapshot(old),
			NewValues: materialTypeSnapshot(m),
		}); err != nil {
			return err
		}
		updated = m
		return nil
	})
	return updated, err
}

// GetMaterialType returns one material type by id.
func (s *Service) GetMaterialType(ctx context.Context, id int64) (MaterialType, error) {
	return s.repo.GetMaterialType(ctx, id)
}

// ListMaterialTypes returns all material types alphabetically.
func (s *Service) ListMaterialTypes(ctx context.Context) ([]MaterialType, error) {
	return s.repo.ListMaterialTypes(ctx)
}

// CreateDestination inserts a destination with its audit entry.
func (s *Service) CreateDestination(ctx context.Context, in DestinationInput) (Destination, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Destination{}, fmt.Errorf("destination name is required: %w", ErrValidation)
	}

	var created Destination
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.InsertDestination(ctx, Destination{
			Name:    strings.TrimSpace(in.Name),
			Address: normalizeOptional(in.Address),
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableDestinations,
			RecordID:  d.ID,
			Action:    ActionInsert,
			NewValues: destinationSnapshot(d),
		}); err != nil {
			return err
		}
		created = d
		return nil
	})
	return created, err
}

// UpdateDestination edits a destination, auditing old and new values.
func (s *Service) UpdateDestination(ctx context.Context, id int64, in DestinationInput) (Destination, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Destination{}, fmt.Errorf("destination name is required: %w", ErrValidation)
	}

	var updated Destination
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetDestination(ctx, id)
		if err != nil {
			return err
		}
		d, err := tx.UpdateDestination(ctx, Destination{
			ID:      id,
			Name:    strings.TrimSpace(in.Name),
			Address: normalizeOptional(in.Address),
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableDestinations,
			RecordID:  d.ID,
			Action:    ActionUpdate,
			OldValues: destinationSnapshot(old),
			NewValues: destinationSnapshot(d),
		}); err != nil {
			return err
		}
		updated = d
		return nil
	})
	return updated, err
}

// GetDestination returns one destination by id.
func (s *Service) GetDestination(ctx context.Context, id int64) (Destination, error) {
	return s.repo.GetDestination(ctx, id)
}

// ListDestinations returns all destinations alphabetically.
func (s *Service) ListDestinations(ctx context.Context) ([]Destination, error) {
	return s.repo.ListDestinations(ctx)
}

// RecordTicket persists a weighing ticket, advances the vehicle's last-used
// marker and writes the ticket's audit entry, all in one transaction. This
// is the only audit call site for tickets.
func (s *Service) RecordTicket(ctx context.Context, in TicketInput) (WeighingTicket, error) {
	if in.GrossWeight <= 0 {
		return WeighingTicket{}, fmt.Errorf("gross weight must be positive: %w", ErrValidation)
	}
	if in.NetWeight < 0 {
		return WeighingTicket{}, fmt.Errorf("net weight must not be negative: %w", ErrValidation)
	}
	if math.Abs(in.NetWeight-(in.GrossWeight-in.TareWeight)) > 1e-6 {
		return WeighingTicket{}, fmt.Errorf("net weight must equal gross minus tare: %w", ErrValidation)
	}

	var recorded WeighingTicket
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Resolve references up front so a dangling id fails as an
		// integrity conflict before any row is written.
		if _, err := tx.GetVehicle(ctx, in.VehicleID); err != nil {
			return asForeignKey(err)
		}
		if _, err := tx.GetMaterialType(ctx, in.MaterialTypeID); err != nil {
			return asForeignKey(err)
		}
		if _, err := tx.GetDestination(ctx, in.DestinationID); err != nil {
			return asForeignKey(err)
		}

		now := s.now()
		t, err := tx.InsertTicket(ctx, WeighingTicket{
			VehicleID:      in.VehicleID,
			MaterialTypeID: in.MaterialTypeID,
			DestinationID:  in.DestinationID,
			GrossWeight:    in.GrossWeight,
			TareWeight:     in.TareWeight,
			NetWeight:      in.NetWeight,
			WeighedAt:      now,
			OperatorName:   normalizeOptional(in.OperatorName),
			Printed:        in.Printed,
		})
		if err != nil {
			return err
		}
		if err := tx.TouchVehicle(ctx, in.VehicleID, now); err != nil {
			return err
		}
		if _, err := tx.InsertAuditEntry(ctx, AuditEntry{
			TableName: TableTickets,
			RecordID:  t.ID,
			Action:    ActionInsert,
			Actor:     normalizeOptional(in.OperatorName),
			NewValues: ticketSnapshot(t),
		}); err != nil {
			return err
		}
		recorded = t
		return nil
	})
	if err != nil {
		return WeighingTicket{}, err
	}
	s.invalidateDirectory()
	return recorded, nil
}

// ListTickets returns the most recent tickets.
func (s *Service) ListTickets(ctx context.Context, limit int) ([]WeighingTicket, error) {
	return s.repo.ListTickets(ctx, limit)
}

// ListAuditEntries returns the most recent audit entries.
func (s *Service) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	return s.repo.ListAuditEntries(ctx, limit)
}

func asForeignKey(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrForeignKey
	}
	return err
}
