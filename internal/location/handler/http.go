// Package handler serves the location views: the flattened hierarchy and the cascading
// selection options.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/location"
	"mis-dashboard/backend/internal/location/domain"
	"mis-dashboard/backend/internal/platform/httpx"
	"mis-dashboard/backend/internal/upstream"
	"mis-dashboard/backend/internal/validation"
)

const (
	LoadFailedMessage    = "Failed to load locations"
	OptionsFailedMessage = "Failed to load location options"
)

// ViewAdmin selects the authenticated listing with household counts instead of the flattened tree.
const ViewAdmin = "admin"

// Server implements the location endpoints.
type Server struct {
	client *upstream.Client
	logger *zap.Logger
}

// NewServer returns the location endpoints.
func NewServer(client *upstream.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, logger: logger}
}

// Register adds the location routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard/locations", s.List)
	mux.HandleFunc("GET /dashboard/locations/options", s.Options)
}

// List returns every node of the hierarchy as a flat row, parents before children.
// With ?view=admin it returns the upstream admin listing with household counts.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	client := httpx.Client(r, s.client)
	if r.URL.Query().Get("view") == ViewAdmin {
		rows, err := client.ListAdminLocations(r.Context())
		if err != nil {
			s.logger.Warn("locations: admin listing failed", zap.Error(err))
			httpx.UpstreamFailed(w, r, err, LoadFailedMessage)
			return
		}
		if rows == nil {
			rows = []domain.AdminLocation{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"locations": rows})
		return
	}

	rows, err := location.NewResolver(client).Flatten(r.Context())
	if err != nil {
		s.logger.Warn("locations: flatten failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, LoadFailedMessage)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"locations": rows})
}

// Options returns the cascade state for the query selections. Each selected level costs one
// upstream call for the level below it.
func (s *Server) Options(w http.ResponseWriter, r *http.Request) {
	sel, errs := selectionFromQuery(r)
	if len(errs) > 0 {
		httpx.WriteValidation(w, errs)
		return
	}
	selector := location.NewSelector(location.NewFetchSource(location.NewResolver(httpx.Client(r, s.client))))
	if err := selector.Apply(r.Context(), sel); err != nil {
		if ve, ok := validation.As(err); ok {
			httpx.WriteValidation(w, ve)
			return
		}
		s.logger.Warn("locations: options failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, OptionsFailedMessage)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, selector.State())
}

func selectionFromQuery(r *http.Request) (location.Selection, validation.Errors) {
	var sel location.Selection
	dst := [...]*int64{&sel.CountyID, &sel.SubcountyID, &sel.LocationID, &sel.SublocationID}
	errs := validation.Errors{}
	for i, level := range domain.Levels {
		field := location.FieldName(level)
		id, ok := httpx.QueryID(r, field)
		if !ok {
			errs.Add(field, "Invalid "+string(level)+" selection")
			continue
		}
		*dst[i] = id
	}
	return sel, errs
}
