package leads

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// Handler handles direct HTTP lead submissions, bypassing the chat flow.
// The website contact form posts here.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// CreateLead handles POST /leads requests
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The server computes the score; a client-supplied value is ignored.
	scored := Lead{
		Name:        req.Name,
		Company:     req.Company,
		Email:       req.Email,
		Phone:       req.Phone,
		ProjectType: req.ProjectType,
		Timeline:    req.Timeline,
		Budget:      req.Budget,
	}
	req.Score = Score(&scored)
	req.Qualified = Qualified(req.Score)

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrMissingSession) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		http.Error(w, "failed to create lead", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead created", "id", lead.ID, "reference", lead.ReferenceNumber, "score", lead.Score)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(lead)
}

// GetLead handles GET /leads/{reference} requests
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		http.Error(w, "missing reference", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.GetByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch lead", "error", err, "reference", reference)
		http.Error(w, "failed to fetch lead", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lead)
}
