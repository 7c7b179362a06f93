package weighing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/scalehouse/scalehouse/internal/ledger"
	"github.com/scalehouse/scalehouse/internal/scale"
)

// Telemetry is the monitor surface the orchestrator reads from.
type Telemetry interface {
	Current() scale.Reading
}

// Service drives the single active weighing session. All ledger writes go
// through the ledger service; the telemetry monitor is read-only here.
type Service struct {
	logger    *slog.Logger
	ledger    *ledger.Service
	directory *ledger.Directory
	telemetry Telemetry

	mu      sync.Mutex
	session *Session
}

// NewService constructs the orchestrator.
func NewService(logger *slog.Logger, ledgerSvc *ledger.Service, directory *ledger.Directory, telemetry Telemetry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, ledger: ledgerSvc, directory: directory, telemetry: telemetry}
}

// Begin starts a fresh session, discarding any ticket in progress.
func (s *Service) Begin() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := ""
	if s.session != nil {
		term = s.session.SearchTerm
	}
	s.session = newSession(term)
	return *s.session
}

// Current returns the active session, if any.
func (s *Service) Current() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}
	return *s.session, nil
}

// Cancel discards the ticket in progress. Nothing is persisted.
func (s *Service) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoSession
	}
	s.session = nil
	return nil
}

// SetSearchTerm records the operator's vehicle filter so it survives a
// post-commit reset.
func (s *Service) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.SearchTerm = term
	}
}

// SelectVehicle loads the vehicle's tare snapshot into the session and
// recomputes net weight. An unknown id clears the selection and reverts
// net weight to unknown.
func (s *Service) SelectVehicle(ctx context.Context, id int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}

	vehicle, err := s.ledger.GetVehicle(ctx, id)
	if err != nil {
		s.session.clearVehicle()
		if errors.Is(err, ledger.ErrNotFound) {
			return *s.session, fmt.Errorf("vehicle %d: %w", id, ledger.ErrNotFound)
		}
		return *s.session, err
	}

	s.session.VehicleID = &vehicle.ID
	s.session.TareWeight = &vehicle.TareWeight
	s.session.MaxAllowedWeight = vehicle.MaxAllowedWeight
	s.session.recompute()
	return *s.session, nil
}

// SelectMaterial records the material type selection.
func (s *Service) SelectMaterial(ctx context.Context, id int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}

	material, err := s.ledger.GetMaterialType(ctx, id)
	if err != nil {
		s.session.MaterialTypeID = nil
		s.session.recompute()
		return *s.session, err
	}
	s.session.MaterialTypeID = &material.ID
	s.session.recompute()
	return *s.session, nil
}

// SelectDestination records the destination selection.
func (s *Service) SelectDestination(ctx context.Context, id int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}

	destination, err := s.ledger.GetDestination(ctx, id)
	if err != nil {
		s.session.DestinationID = nil
		s.session.recompute()
		return *s.session, err
	}
	s.session.DestinationID = &destination.ID
	s.session.recompute()
	return *s.session, nil
}

// CaptureGross takes the latest telemetry reading as the gross weight. An
// unavailable reading rejects the capture and leaves the session unchanged.
func (s *Service) CaptureGross() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}

	reading := s.telemetry.Current()
	if !reading.OK {
		return *s.session, ErrReadingUnavailable
	}
	weight := reading.Weight
	s.session.GrossWeight = &weight
	s.session.recompute()
	return *s.session, nil
}

// SetGross records a manually entered gross weight.
func (s *Service) SetGross(value float64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}
	if value <= 0 {
		return *s.session, ErrGrossNotPositive
	}
	s.session.GrossWeight = &value
	s.session.recompute()
	return *s.session, nil
}

// Commit validates the session and records the ticket. A gross weight above
// the vehicle's maximum is committable only with override set; without it
// the commit is refused with ErrOverweight so the collaborator can ask the
// operator. After a successful commit the session resets to idle, keeping
// the active search term, and the vehicle directory is refreshed.
func (s *Service) Commit(ctx context.Context, operatorName string, override bool) (ledger.WeighingTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ledger.WeighingTicket{}, ErrNoSession
	}
	sess := s.session

	switch {
	case sess.VehicleID == nil:
		return ledger.WeighingTicket{}, ErrVehicleNotSelected
	case sess.MaterialTypeID == nil:
		return ledger.WeighingTicket{}, ErrMaterialNotSelected
	case sess.DestinationID == nil:
		return ledger.WeighingTicket{}, ErrDestinationNotSelected
	case sess.GrossWeight == nil:
		return ledger.WeighingTicket{}, ErrGrossMissing
	}
	gross := *sess.GrossWeight
	if gross <= 0 {
		return ledger.WeighingTicket{}, ErrGrossNotPositive
	}
	tare := *sess.TareWeight
	net := gross - tare
	if net < 0 {
		return ledger.WeighingTicket{}, ErrNegativeNet
	}
	if gross > sess.MaxAllowedWeight && !override {
		return ledger.WeighingTicket{}, ErrOverweight
	}

	ticket, err := s.ledger.RecordTicket(ctx, ledger.TicketInput{
		VehicleID:      *sess.VehicleID,
		MaterialTypeID: *sess.MaterialTypeID,
		DestinationID:  *sess.DestinationID,
		GrossWeight:    gross,
		TareWeight:     tare,
		NetWeight:      net,
		OperatorName:   operatorName,
	})
	if err != nil {
		return ledger.WeighingTicket{}, err
	}

	s.logger.Info("ticket committed",
		slog.Int64("ticket_id", ticket.ID),
		slog.Int64("vehicle_id", ticket.VehicleID),
		slog.Float64("net_weight", ticket.NetWeight))

	// Reset for the next truck; the operator's filter survives.
	term := sess.SearchTerm
	s.session = newSession(term)
	if _, err := s.directory.Search(ctx, term); err != nil {
		s.logger.Warn("refresh vehicle directory", slog.Any("error", err))
	}
	return ticket, nil
}
