// Package handler serves the program views.
package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	householddomain "mis-dashboard/backend/internal/household/domain"
	"mis-dashboard/backend/internal/platform/httpx"
	"mis-dashboard/backend/internal/program/domain"
	"mis-dashboard/backend/internal/upstream"
	"mis-dashboard/backend/internal/validation"
)

const (
	LoadFailedMessage          = "Failed to load programs"
	CreateFailedMessage        = "Failed to create program"
	HouseholdsFailedMessage    = "Failed to load program members"
	nameRequiredMessage        = "Name is required"
	descriptionRequiredMessage = "Description is required"
)

// Server implements the program endpoints.
type Server struct {
	client *upstream.Client
	logger *zap.Logger
}

// NewServer returns the program endpoints.
func NewServer(client *upstream.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, logger: logger}
}

// Register adds the program routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard/programs", s.List)
	mux.HandleFunc("POST /dashboard/programs", s.Create)
	mux.HandleFunc("GET /dashboard/programs/{id}/households", s.Households)
}

// List returns every program.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	programs, err := httpx.Client(r, s.client).ListPrograms(r.Context())
	if err != nil {
		s.logger.Warn("programs: list failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, LoadFailedMessage)
		return
	}
	if programs == nil {
		programs = []domain.Program{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"programs": programs})
}

// Create validates and creates a program. Invalid input is never sent upstream.
func (s *Server) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateProgram
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	errs := validation.Errors{}
	errs.Required("name", in.Name, nameRequiredMessage)
	errs.Required("description", in.Description, descriptionRequiredMessage)
	if len(errs) > 0 {
		httpx.WriteValidation(w, errs)
		return
	}

	p, err := httpx.Client(r, s.client).CreateProgram(r.Context(), in)
	if err != nil {
		s.logger.Warn("programs: create failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, CreateFailedMessage)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

// Households lists the households enrolled in one program.
func (s *Server) Households(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid program id")
		return
	}
	households, err := httpx.Client(r, s.client).ListProgramHouseholds(r.Context(), id)
	if err != nil {
		s.logger.Warn("programs: households failed", zap.Int64("program_id", id), zap.Error(err))
		httpx.UpstreamFailed(w, r, err, HouseholdsFailedMessage)
		return
	}
	if households == nil {
		households = []householddomain.Household{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"program_id": id, "households": households})
}
