// Package weighing orchestrates one ticket-in-progress: vehicle, material
// and destination selection, gross-weight capture and the final commit.
package weighing

import (
	"errors"

	"github.com/google/uuid"
)

// State of the ticket-in-progress.
type State string

const (
	StateIdle            State = "idle"
	StateVehicleSelected State = "vehicle_selected"
	StateReadyToCapture  State = "ready_to_capture"
	StateGrossCaptured   State = "gross_captured"
	StateCommitted       State = "committed"
)

// Reason codes reported to the collaborator. None of these touch the store.
var (
	ErrNoSession              = errors.New("no active weighing session")
	ErrVehicleNotSelected     = errors.New("vehicle not selected")
	ErrMaterialNotSelected    = errors.New("material type not selected")
	ErrDestinationNotSelected = errors.New("destination not selected")
	ErrGrossMissing           = errors.New("gross weight not captured")
	ErrGrossNotPositive       = errors.New("gross weight must be positive")
	ErrNegativeNet            = errors.New("net weight must not be negative")
	ErrReadingUnavailable     = errors.New("no weight reading available")
	// ErrOverweight is a soft warning: the commit succeeds when retried
	// with the override flag.
	ErrOverweight = errors.New("gross weight exceeds vehicle maximum, confirmation required")
)

// Session is the single ticket-in-progress. The tare is snapshotted from
// the vehicle at selection time; net is recomputed whenever gross or tare
// changes.
type Session struct {
	ID               uuid.UUID `json:"id"`
	State            State     `json:"state"`
	VehicleID        *int64    `json:"vehicle_id"`
	TareWeight       *float64  `json:"tare_weight"`
	MaxAllowedWeight float64   `json:"max_allowed_weight"`
	MaterialTypeID   *int64    `json:"material_type_id"`
	DestinationID    *int64    `json:"destination_id"`
	GrossWeight      *float64  `json:"gross_weight"`
	NetWeight        *float64  `json:"net_weight"`
	SearchTerm       string    `json:"search_term"`
}

func newSession(searchTerm string) *Session {
	s := &Session{ID: uuid.New(), SearchTerm: searchTerm}
	s.recompute()
	return s
}

// recompute refreshes net weight and the derived state.
func (s *Session) recompute() {
	if s.GrossWeight != nil && s.TareWeight != nil {
		net := *s.GrossWeight - *s.TareWeight
		s.NetWeight = &net
	} else {
		s.NetWeight = nil
	}

	switch {
	case s.VehicleID == nil:
		s.State = StateIdle
	case s.GrossWeight != nil:
		s.State = StateGrossCaptured
	case s.MaterialTypeID != nil && s.DestinationID != nil:
		s.State = StateReadyToCapture
	default:
		s.State = StateVehicleSelected
	}
}

func (s *Session) clearVehicle() {
	s.VehicleID = nil
	s.TareWeight = nil
	s.MaxAllowedWeight = 0
	s.recompute()
}
