// Package devupstream is an in-memory stand-in for the beneficiary management API. It speaks the
// same envelope and endpoints as the real service so the BFF can be run and tested end to end
// without network access.
package devupstream

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	householddomain "mis-dashboard/backend/internal/household/domain"
	programdomain "mis-dashboard/backend/internal/program/domain"
	"mis-dashboard/backend/internal/security"
	"mis-dashboard/backend/internal/validation"
)

// BasePath is where the API is mounted, matching the real service's /api/v1.
const BasePath = "/api/v1"

// Options configures a Server.
type Options struct {
	Credentials *security.Credentials
	Issuer      *security.TokenIssuer
	// Fixture is the YAML seed; nil uses the embedded one.
	Fixture []byte
	Logger  *zap.Logger
}

// Server serves the upstream API from memory.
type Server struct {
	store  *store
	creds  *security.Credentials
	issuer *security.TokenIssuer
	logger *zap.Logger
}

// New seeds a Server from opts.Fixture.
func New(opts Options) (*Server, error) {
	if opts.Credentials == nil || opts.Issuer == nil {
		return nil, errors.New("devupstream: credentials and issuer are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	f, err := parseFixture(opts.Fixture)
	if err != nil {
		return nil, err
	}
	st, err := newStore(f)
	if err != nil {
		return nil, err
	}
	return &Server{store: st, creds: opts.Credentials, issuer: opts.Issuer, logger: opts.Logger}, nil
}

// Handler returns the routes under BasePath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+BasePath+"/auth/login", s.login)

	mux.HandleFunc("GET "+BasePath+"/programs", s.authed(s.listPrograms))
	mux.HandleFunc("POST "+BasePath+"/programs", s.authed(s.createProgram))
	mux.HandleFunc("GET "+BasePath+"/programs/{id}/households", s.programHouseholds)

	mux.HandleFunc("GET "+BasePath+"/households", s.authed(s.listHouseholds))
	mux.HandleFunc("POST "+BasePath+"/households", s.authed(s.createHousehold))
	mux.HandleFunc("GET "+BasePath+"/households/{id}/members", s.authed(s.listMembers))
	mux.HandleFunc("POST "+BasePath+"/households/{id}/members", s.authed(s.createMember))
	mux.HandleFunc("GET "+BasePath+"/members/all", s.authed(s.allMembers))

	mux.HandleFunc("GET "+BasePath+"/locations", s.authed(s.adminLocations))
	mux.HandleFunc("GET "+BasePath+"/locations/counties", s.counties)
	mux.HandleFunc("GET "+BasePath+"/locations/counties/{id}/subcounties", s.levelOptions(1))
	mux.HandleFunc("GET "+BasePath+"/locations/subcounties/{id}/locations", s.levelOptions(2))
	mux.HandleFunc("GET "+BasePath+"/locations/locations/{id}/sublocations", s.levelOptions(3))
	return mux
}

// authed rejects requests without a valid bearer token with 401.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}
		if _, err := s.issuer.Validate(token); err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !s.creds.Verify(in.Email, in.Password) {
		s.logger.Info("devupstream: login rejected", zap.String("email", in.Email))
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, expiresAt, err := s.issuer.Issue("admin", s.creds.Email())
	if err != nil {
		s.logger.Error("devupstream: issue token", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Login failed")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
		"user":       map[string]string{"email": s.creds.Email()},
	}, "Login successful")
}

func (s *Server) listPrograms(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.store.listPrograms(), "")
}

func (s *Server) createProgram(w http.ResponseWriter, r *http.Request) {
	var in programdomain.CreateProgram
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	errs := validation.Errors{}
	errs.Required("name", in.Name, "name is required")
	errs.Required("description", in.Description, "description is required")
	if err := errs.Err(); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeData(w, http.StatusCreated, s.store.createProgram(in), "Program created")
}

func (s *Server) programHouseholds(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.store.hasProgram(id) {
		writeMessage(w, http.StatusNotFound, "Program not found")
		return
	}
	writeData(w, http.StatusOK, s.store.listHouseholds(id), "")
}

func (s *Server) listHouseholds(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.store.listHouseholds(0), "")
}

func (s *Server) createHousehold(w http.ResponseWriter, r *http.Request) {
	var in householddomain.CreateHousehold
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	errs := validation.Errors{}
	errs.Required("head_first_name", in.HeadFirstName, "head_first_name is required")
	errs.Required("head_last_name", in.HeadLastName, "head_last_name is required")
	errs.Required("head_id_number", in.HeadIDNumber, "head_id_number is required")
	errs.Required("phone", in.Phone, "phone is required")
	errs.Phone("phone", in.Phone)
	if !s.store.hasProgram(in.ProgramID) {
		errs.Add("program_id", "program_id is invalid")
	}
	if !s.store.hasSublocation(in.SublocationID) {
		errs.Add("sublocation_id", "sublocation_id is invalid")
	}
	if err := errs.Err(); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h, err := s.store.createHousehold(in)
	if errors.Is(err, errDuplicate) {
		writeMessage(w, http.StatusConflict, "Household with this ID number already exists")
		return
	}
	writeData(w, http.StatusCreated, h, "Household created")
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	members, err := s.store.listMembers(id)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Household not found")
		return
	}
	writeData(w, http.StatusOK, members, "")
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in householddomain.CreateMember
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	errs := validation.Errors{}
	errs.Required("first_name", in.FirstName, "first_name is required")
	errs.Required("last_name", in.LastName, "last_name is required")
	errs.Required("date_of_birth", in.DateOfBirth, "date_of_birth is required")
	errs.Date("date_of_birth", in.DateOfBirth, "date_of_birth must be YYYY-MM-DD")
	errs.OneOf("relationship", in.Relationship, householddomain.Relationships, "relationship is invalid")
	if err := errs.Err(); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	m, err := s.store.createMember(id, in)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Household not found")
		return
	}
	writeData(w, http.StatusCreated, m, "Member added")
}

func (s *Server) allMembers(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.store.allMembers(), "")
}

func (s *Server) counties(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.store.listCounties(), "")
}

func (s *Server) levelOptions(depth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		writeData(w, http.StatusOK, s.store.children(depth, id), "")
	}
}

func (s *Server) adminLocations(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.store.adminLocations(), "")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func writeData(w http.ResponseWriter, status int, data interface{}, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data, "message": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
