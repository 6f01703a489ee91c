// Package handler serves the household and member views, including household registration
// with its cascading location selection.
package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/household/domain"
	"mis-dashboard/backend/internal/location"
	locationdomain "mis-dashboard/backend/internal/location/domain"
	"mis-dashboard/backend/internal/platform/httpx"
	programdomain "mis-dashboard/backend/internal/program/domain"
	"mis-dashboard/backend/internal/upstream"
	"mis-dashboard/backend/internal/validation"
)

const (
	LoadFailedMessage      = "Failed to load households. Please try again later."
	MembersFailedMessage   = "Failed to load household members"
	AddMemberFailedMessage = "Failed to add member"
	CreateFailedMessage    = "Failed to create household. Please try again."
	DuplicateIDMessage     = "A household with this ID number already exists"
	CheckFieldsMessage     = "Please check all required fields"
	FormFailedMessage      = "Failed to load form data"
	firstNameRequired      = "First name is required"
	lastNameRequired       = "Last name is required"
	idNumberRequired       = "ID number is required"
	phoneRequired          = "Phone number is required"
	programRequired        = "Program selection is required"
	dateOfBirthRequired    = "Date of birth is required"
	dateOfBirthFormat      = "Date of birth must be in YYYY-MM-DD format"
	relationshipRequired   = "Relationship is required"
	relationshipInvalid    = "Relationship must be one of Spouse, Son, Daughter, Parent, Sibling, Other"
)

// Server implements the household endpoints.
type Server struct {
	client *upstream.Client
	logger *zap.Logger
}

// NewServer returns the household endpoints.
func NewServer(client *upstream.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, logger: logger}
}

// Register adds the household routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard/households", s.List)
	mux.HandleFunc("POST /dashboard/households", s.Create)
	mux.HandleFunc("GET /dashboard/households/form", s.Form)
	mux.HandleFunc("GET /dashboard/households/{id}/members", s.Members)
	mux.HandleFunc("POST /dashboard/households/{id}/members", s.AddMember)
}

// List returns every household.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	households, err := httpx.Client(r, s.client).ListHouseholds(r.Context())
	if err != nil {
		s.logger.Warn("households: list failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, LoadFailedMessage)
		return
	}
	if households == nil {
		households = []domain.Household{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"households": households})
}

// createRequest is the registration form: head of household, program and the four cascade levels.
type createRequest struct {
	HeadFirstName string `json:"head_first_name"`
	HeadLastName  string `json:"head_last_name"`
	HeadIDNumber  string `json:"head_id_number"`
	Phone         string `json:"phone"`
	ProgramID     int64  `json:"program_id"`
	CountyID      int64  `json:"county_id"`
	SubcountyID   int64  `json:"subcounty_id"`
	LocationID    int64  `json:"location_id"`
	SublocationID int64  `json:"sublocation_id"`
}

func (c createRequest) selection() location.Selection {
	return location.Selection{
		CountyID:      c.CountyID,
		SubcountyID:   c.SubcountyID,
		LocationID:    c.LocationID,
		SublocationID: c.SublocationID,
	}
}

// Create validates the form, resolves the sublocation through the location cascade and registers
// the household. Field errors are reported before the county tree is fetched; nothing is sent
// upstream while any field is invalid.
func (s *Server) Create(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.HeadFirstName = strings.TrimSpace(in.HeadFirstName)
	in.HeadLastName = strings.TrimSpace(in.HeadLastName)
	in.HeadIDNumber = strings.TrimSpace(in.HeadIDNumber)
	in.Phone = strings.TrimSpace(in.Phone)

	errs := validation.Errors{}
	errs.Required("head_first_name", in.HeadFirstName, firstNameRequired)
	errs.Required("head_last_name", in.HeadLastName, lastNameRequired)
	errs.Required("head_id_number", in.HeadIDNumber, idNumberRequired)
	errs.Required("phone", in.Phone, phoneRequired)
	errs.Phone("phone", in.Phone)
	errs.RequiredID("program_id", in.ProgramID, programRequired)
	errs.RequiredID(location.FieldName(locationdomain.LevelSublocation), in.SublocationID, location.LocationRequiredMessage)
	if len(errs) > 0 {
		httpx.WriteValidation(w, errs)
		return
	}

	client := httpx.Client(r, s.client)
	sublocationID, err := s.resolveLocation(r.Context(), client, in.selection(), errs)
	if err != nil {
		s.logger.Warn("households: location tree failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, CreateFailedMessage)
		return
	}
	if len(errs) > 0 {
		httpx.WriteValidation(w, errs)
		return
	}

	h, err := client.CreateHousehold(r.Context(), domain.CreateHousehold{
		HeadFirstName: in.HeadFirstName,
		HeadLastName:  in.HeadLastName,
		HeadIDNumber:  in.HeadIDNumber,
		Phone:         in.Phone,
		ProgramID:     in.ProgramID,
		SublocationID: sublocationID,
	})
	if err != nil {
		s.logger.Warn("households: create failed", zap.Error(err))
		httpx.UpstreamFailed(w, r, err, CreateErrorMessage(err))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h)
}

// resolveLocation runs sel through a cascade over the nested county tree. Invalid selections are
// added to errs; only a failure to fetch the tree is returned.
func (s *Server) resolveLocation(ctx context.Context, client *upstream.Client, sel location.Selection, errs validation.Errors) (int64, error) {
	counties, err := location.NewResolver(client).FetchCounties(ctx)
	if err != nil {
		return 0, err
	}
	selector := location.NewSelector(location.NewTreeSource(counties))
	if err := selector.Apply(ctx, sel); err != nil {
		ve, ok := validation.As(err)
		if !ok {
			return 0, err
		}
		for field, msg := range ve {
			errs.Add(field, msg)
		}
		errs.Add(location.FieldName(locationdomain.LevelSublocation), location.LocationRequiredMessage)
		return 0, nil
	}
	id, err := selector.Resolve()
	if ve, ok := validation.As(err); ok {
		for field, msg := range ve {
			errs.Add(field, msg)
		}
	}
	return id, nil
}

// CreateErrorMessage maps an upstream registration failure to what the user is shown.
func CreateErrorMessage(err error) string {
	msg := strings.ToLower(upstream.Message(err))
	switch {
	case strings.Contains(msg, "already exists"):
		return DuplicateIDMessage
	case strings.Contains(msg, "validation"):
		return CheckFieldsMessage
	default:
		return CreateFailedMessage
	}
}

type formResponse struct {
	Programs []programdomain.Program `json:"programs"`
	Location location.State          `json:"location"`
}

// Form returns what the registration form needs: the programs and the cascade state for the
// selections given in the query (county_id, subcounty_id, location_id, sublocation_id).
func (s *Server) Form(w http.ResponseWriter, r *http.Request) {
	var sel location.Selection
	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"county_id", &sel.CountyID},
		{"subcounty_id", &sel.SubcountyID},
		{"location_id", &sel.LocationID},
		{"sublocation_id", &sel.SublocationID},
	} {
		id, ok := httpx.QueryID(r, f.name)
		if !ok {
			httpx.WriteValidation(w, validation.Errors{f.name: "Invalid " + strings.TrimSuffix(f.name, "_id") + " selection"})
			return
		}
		*f.dst = id
	}

	client := httpx.Client(r, s.client)
	programs, err := client.ListPrograms(r.Context())
	if err != nil {
		httpx.UpstreamFailed(w, r, err, FormFailedMessage)
		return
	}
	counties, err := location.NewResolver(client).FetchCounties(r.Context())
	if err != nil {
		httpx.UpstreamFailed(w, r, err, FormFailedMessage)
		return
	}
	selector := location.NewSelector(location.NewTreeSource(counties))
	if err := selector.Apply(r.Context(), sel); err != nil {
		if ve, ok := validation.As(err); ok {
			httpx.WriteValidation(w, ve)
			return
		}
		httpx.UpstreamFailed(w, r, err, FormFailedMessage)
		return
	}
	if programs == nil {
		programs = []programdomain.Program{}
	}
	httpx.WriteJSON(w, http.StatusOK, formResponse{Programs: programs, Location: selector.State()})
}

// Members lists the members of one household.
func (s *Server) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid household id")
		return
	}
	members, err := httpx.Client(r, s.client).ListHouseholdMembers(r.Context(), id)
	if err != nil {
		s.logger.Warn("households: members failed", zap.Int64("household_id", id), zap.Error(err))
		httpx.UpstreamFailed(w, r, err, MembersFailedMessage)
		return
	}
	if members == nil {
		members = []domain.Member{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"household_id":  id,
		"members":       members,
		"relationships": domain.Relationships,
	})
}

// AddMember validates and adds a member to a household.
func (s *Server) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid household id")
		return
	}
	var in domain.CreateMember
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)

	errs := validation.Errors{}
	errs.Required("first_name", in.FirstName, firstNameRequired)
	errs.Required("last_name", in.LastName, lastNameRequired)
	errs.Required("date_of_birth", in.DateOfBirth, dateOfBirthRequired)
	errs.Date("date_of_birth", in.DateOfBirth, dateOfBirthFormat)
	errs.Required("relationship", in.Relationship, relationshipRequired)
	errs.OneOf("relationship", in.Relationship, domain.Relationships, relationshipInvalid)
	if len(errs) > 0 {
		httpx.WriteValidation(w, errs)
		return
	}

	m, err := httpx.Client(r, s.client).CreateHouseholdMember(r.Context(), id, in)
	if err != nil {
		s.logger.Warn("households: add member failed", zap.Int64("household_id", id), zap.Error(err))
		httpx.UpstreamFailed(w, r, err, AddMemberFailedMessage)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}
