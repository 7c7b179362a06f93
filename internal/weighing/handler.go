package weighing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scalehouse/scalehouse/internal/ledger"
	"github.com/scalehouse/scalehouse/internal/platform/httpx"
	"github.com/scalehouse/scalehouse/internal/scale"
)

// Handler exposes the weighing session and the scale lifecycle over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	monitor  *scale.Monitor
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, monitor *scale.Monitor) *Handler {
	return &Handler{logger: logger, service: service, monitor: monitor, validate: validator.New()}
}

// MountRoutes registers weighing and scale routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/weighing/session", func(r chi.Router) {
		r.Post("/", h.begin)
		r.Get("/", h.current)
		r.Delete("/", h.cancel)
		r.Post("/vehicle", h.selectVehicle)
		r.Post("/material", h.selectMaterial)
		r.Post("/destination", h.selectDestination)
		r.Post("/capture", h.captureGross)
		r.Post("/gross", h.setGross)
		r.Post("/search", h.setSearchTerm)
		r.Post("/commit", h.commit)
	})
	r.Route("/scale", func(r chi.Router) {
		r.Post("/connect", h.connectScale)
		r.Post("/disconnect", h.disconnectScale)
		r.Get("/reading", h.reading)
	})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNoSession):
		httpx.Problem(w, http.StatusNotFound, "No Session", err.Error())
	case errors.Is(err, ErrOverweight):
		httpx.Problem(w, http.StatusConflict, "Overweight Confirmation Required", err.Error())
	case errors.Is(err, ErrReadingUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Reading Unavailable", err.Error())
	case errors.Is(err, ErrVehicleNotSelected),
		errors.Is(err, ErrMaterialNotSelected),
		errors.Is(err, ErrDestinationNotSelected),
		errors.Is(err, ErrGrossMissing),
		errors.Is(err, ErrGrossNotPositive),
		errors.Is(err, ErrNegativeNet),
		errors.Is(err, ledger.ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrForeignKey):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusCreated, h.service.Begin())
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Current()
	if err != nil {
		h.respondError(w, "current session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(); err != nil {
		h.respondError(w, "cancel session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

func (h *Handler) decodeSelect(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req selectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return 0, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return 0, false
	}
	return req.ID, true
}

func (h *Handler) selectVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeSelect(w, r)
	if !ok {
		return
	}
	session, err := h.service.SelectVehicle(r.Context(), id)
	if err != nil {
		h.respondError(w, "select vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) selectMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeSelect(w, r)
	if !ok {
		return
	}
	session, err := h.service.SelectMaterial(r.Context(), id)
	if err != nil {
		h.respondError(w, "select material", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) selectDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeSelect(w, r)
	if !ok {
		return
	}
	session, err := h.service.SelectDestination(r.Context(), id)
	if err != nil {
		h.respondError(w, "select destination", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) captureGross(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.CaptureGross()
	if err != nil {
		h.respondError(w, "capture gross", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

type grossRequest struct {
	Value float64 `json:"value" validate:"required,gt=0"`
}

func (h *Handler) setGross(w http.ResponseWriter, r *http.Request) {
	var req grossRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	session, err := h.service.SetGross(req.Value)
	if err != nil {
		h.respondError(w, "set gross", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

type searchRequest struct {
	Term string `json:"term"`
}

func (h *Handler) setSearchTerm(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	h.service.SetSearchTerm(req.Term)
	w.WriteHeader(http.StatusNoContent)
}

type commitRequest struct {
	OperatorName      string `json:"operator_name"`
	OverrideMaxWeight bool   `json:"override_max_weight"`
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	ticket, err := h.service.Commit(r.Context(), req.OperatorName, req.OverrideMaxWeight)
	if err != nil {
		h.respondError(w, "commit ticket", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ticket)
}

func (h *Handler) connectScale(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Connect(); err != nil {
		h.logger.Error("scale connect", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Scale Unreachable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"connected": true})
}

func (h *Handler) disconnectScale(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Disconnect(); err != nil {
		h.logger.Warn("scale disconnect", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"connected": false})
}

func (h *Handler) reading(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.monitor.Current())
}
