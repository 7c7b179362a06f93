package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scalehouse/scalehouse/internal/platform/httpx"
)

// Handler exposes the ledger over JSON HTTP for the front-end collaborator.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	directory *Directory
	validate  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, directory *Directory) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		directory: directory,
		validate:  validator.New(),
	}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", h.listVehicles)
		r.Post("/", h.createVehicle)
		r.Get("/{id}", h.getVehicle)
		r.Put("/{id}", h.updateVehicle)
	})
	r.Route("/materials", func(r chi.Router) {
		r.Get("/", h.listMaterials)
		r.Post("/", h.createMaterial)
		r.Put("/{id}", h.updateMaterial)
	})
	r.Route("/destinations", func(r chi.Router) {
		r.Get("/", h.listDestinations)
		r.Post("/", h.createDestination)
		r.Put("/{id}", h.updateDestination)
	})
	r.Get("/tickets", h.listTickets)
	r.Get("/audit", h.listAudit)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrForeignKey):
		httpx.Problem(w, http.StatusConflict, "Unknown Reference", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type vehicleRequest struct {
	UnitID           string  `json:"unit_id" validate:"required"`
	CompanyName      string  `json:"company_name" validate:"required"`
	RegistryID       string  `json:"registry_id"`
	TareWeight       float64 `json:"tare_weight" validate:"gt=0"`
	MaxAllowedWeight float64 `json:"max_allowed_weight" validate:"gt=0"`
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondError(w, "list vehicles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicles)
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vehicle id")
		return
	}
	vehicle, err := h.service.GetVehicle(r.Context(), id)
	if err != nil {
		h.respondError(w, "get vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

func (h *Handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	vehicle, err := h.service.CreateVehicle(r.Context(), VehicleInput{
		UnitID:           req.UnitID,
		CompanyName:      req.CompanyName,
		RegistryID:       req.RegistryID,
		TareWeight:       req.TareWeight,
		MaxAllowedWeight: req.MaxAllowedWeight,
	})
	if err != nil {
		h.respondError(w, "create vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vehicle)
}

func (h *Handler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vehicle id")
		return
	}
	var req vehicleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	vehicle, err := h.service.UpdateVehicle(r.Context(), id, VehicleInput{
		UnitID:           req.UnitID,
		CompanyName:      req.CompanyName,
		RegistryID:       req.RegistryID,
		TareWeight:       req.TareWeight,
		MaxAllowedWeight: req.MaxAllowedWeight,
	})
	if err != nil {
		h.respondError(w, "update vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

type materialRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.service.ListMaterialTypes(r.Context())
	if err != nil {
		h.respondError(w, "list materials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, materials)
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	material, err := h.service.CreateMaterialType(r.Context(), MaterialTypeInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, "create material", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, material)
}

func (h *Handler) updateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid material id")
		return
	}
	var req materialRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	material, err := h.service.UpdateMaterialType(r.Context(), id, MaterialTypeInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, "update material", err)
		return
	}
	httpx.JSON(w, http.StatusOK, material)
}

type destinationRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

func (h *Handler) listDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := h.service.ListDestinations(r.Context())
	if err != nil {
		h.respondError(w, "list destinations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, destinations)
}

func (h *Handler) createDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	destination, err := h.service.CreateDestination(r.Context(), DestinationInput{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		h.respondError(w, "create destination", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, destination)
}

func (h *Handler) updateDestination(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid destination id")
		return
	}
	var req destinationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	destination, err := h.service.UpdateDestination(r.Context(), id, DestinationInput{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		h.respondError(w, "update destination", err)
		return
	}
	httpx.JSON(w, http.StatusOK, destination)
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.ListTickets(r.Context(), queryLimit(r))
	if err != nil {
		h.respondError(w, "list tickets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tickets)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListAuditEntries(r.Context(), queryLimit(r))
	if err != nil {
		h.respondError(w, "list audit entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
