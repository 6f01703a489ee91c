package devupstream

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	householddomain "mis-dashboard/backend/internal/household/domain"
	locationdomain "mis-dashboard/backend/internal/location/domain"
	programdomain "mis-dashboard/backend/internal/program/domain"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate head id number")
)

// placement is where a sublocation sits in the hierarchy.
type placement struct {
	countyID, subcountyID, locationID int64
	names                             householddomain.LocationNames
}

type household struct {
	id            int64
	headFirstName string
	headLastName  string
	headIDNumber  string
	phone         string
	programID     int64
	sublocationID int64
	members       []householddomain.Member
}

// store holds the dev upstream's data in memory.
type store struct {
	mu         sync.RWMutex
	programs   []programdomain.Program
	counties   []locationdomain.County
	households []*household
	placements map[int64]placement

	nextProgramID   int64
	nextHouseholdID int64
	nextMemberID    int64
}

func newStore(f *fixture) (*store, error) {
	s := &store{placements: make(map[int64]placement)}
	for _, p := range f.Programs {
		s.programs = append(s.programs, programdomain.Program{ID: p.ID, Name: p.Name, Description: p.Description})
		s.nextProgramID = max(s.nextProgramID, p.ID)
	}
	for _, c := range f.Counties {
		s.counties = append(s.counties, s.county(c))
	}
	for _, fh := range f.Households {
		if _, ok := s.placements[fh.SublocationID]; !ok {
			return nil, fmt.Errorf("devupstream: household %d: unknown sublocation %d", fh.ID, fh.SublocationID)
		}
		if _, err := s.program(fh.ProgramID); err != nil {
			return nil, fmt.Errorf("devupstream: household %d: unknown program %d", fh.ID, fh.ProgramID)
		}
		h := &household{
			id:            fh.ID,
			headFirstName: fh.HeadFirstName,
			headLastName:  fh.HeadLastName,
			headIDNumber:  fh.HeadIDNumber,
			phone:         fh.Phone,
			programID:     fh.ProgramID,
			sublocationID: fh.SublocationID,
		}
		for _, m := range fh.Members {
			h.members = append(h.members, householddomain.Member{
				ID:           m.ID,
				FirstName:    m.FirstName,
				LastName:     m.LastName,
				DateOfBirth:  m.DateOfBirth,
				Relationship: m.Relationship,
			})
			s.nextMemberID = max(s.nextMemberID, m.ID)
		}
		s.households = append(s.households, h)
		s.nextHouseholdID = max(s.nextHouseholdID, fh.ID)
	}
	return s, nil
}

// county converts a fixture county and indexes its sublocations.
func (s *store) county(c fixtureNode) locationdomain.County {
	county := locationdomain.County{ID: c.ID, Name: c.Name, Code: c.Code}
	for _, sc := range c.Children {
		subcounty := locationdomain.Subcounty{ID: sc.ID, CountyID: c.ID, Name: sc.Name, Code: sc.Code}
		for _, l := range sc.Children {
			loc := locationdomain.Location{ID: l.ID, SubcountyID: sc.ID, Name: l.Name, Code: l.Code}
			for _, sl := range l.Children {
				loc.Sublocations = append(loc.Sublocations, locationdomain.Sublocation{ID: sl.ID, LocationID: l.ID, Name: sl.Name, Code: sl.Code})
				s.placements[sl.ID] = placement{
					countyID:    c.ID,
					subcountyID: sc.ID,
					locationID:  l.ID,
					names:       householddomain.LocationNames{County: c.Name, Subcounty: sc.Name, Location: l.Name, Sublocation: sl.Name},
				}
			}
			subcounty.Locations = append(subcounty.Locations, loc)
		}
		county.Subcounties = append(county.Subcounties, subcounty)
	}
	return county
}

func (s *store) program(id int64) (programdomain.Program, error) {
	for _, p := range s.programs {
		if p.ID == id {
			return p, nil
		}
	}
	return programdomain.Program{}, errNotFound
}

func (s *store) listPrograms() []programdomain.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]programdomain.Program{}, s.programs...)
}

func (s *store) createProgram(in programdomain.CreateProgram) programdomain.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProgramID++
	p := programdomain.Program{ID: s.nextProgramID, Name: in.Name, Description: in.Description}
	s.programs = append(s.programs, p)
	return p
}

// view renders h. Callers hold the lock.
func (s *store) view(h *household) householddomain.Household {
	p, _ := s.program(h.programID)
	return householddomain.Household{
		ID:            h.id,
		HeadFirstName: h.headFirstName,
		HeadLastName:  h.headLastName,
		HeadIDNumber:  h.headIDNumber,
		Phone:         h.phone,
		Program:       p,
		Location:      s.placements[h.sublocationID].names,
	}
}

func (s *store) listHouseholds(programID int64) []householddomain.Household {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []householddomain.Household{}
	for _, h := range s.households {
		if programID != 0 && h.programID != programID {
			continue
		}
		out = append(out, s.view(h))
	}
	return out
}

func (s *store) hasProgram(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.program(id)
	return err == nil
}

func (s *store) hasSublocation(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.placements[id]
	return ok
}

func (s *store) createHousehold(in householddomain.CreateHousehold) (householddomain.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.households {
		if h.headIDNumber == in.HeadIDNumber {
			return householddomain.Household{}, errDuplicate
		}
	}
	s.nextHouseholdID++
	h := &household{
		id:            s.nextHouseholdID,
		headFirstName: in.HeadFirstName,
		headLastName:  in.HeadLastName,
		headIDNumber:  in.HeadIDNumber,
		phone:         in.Phone,
		programID:     in.ProgramID,
		sublocationID: in.SublocationID,
	}
	s.households = append(s.households, h)
	return s.view(h), nil
}

func (s *store) find(id int64) *household {
	for _, h := range s.households {
		if h.id == id {
			return h
		}
	}
	return nil
}

func (s *store) listMembers(householdID int64) ([]householddomain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.find(householdID)
	if h == nil {
		return nil, errNotFound
	}
	return append([]householddomain.Member{}, h.members...), nil
}

func (s *store) createMember(householdID int64, in householddomain.CreateMember) (householddomain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.find(householdID)
	if h == nil {
		return householddomain.Member{}, errNotFound
	}
	s.nextMemberID++
	m := householddomain.Member{
		ID:           s.nextMemberID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DateOfBirth:  in.DateOfBirth,
		Relationship: in.Relationship,
	}
	h.members = append(h.members, m)
	return m, nil
}

// allMembers lists every member with its household, ordered by member id.
func (s *store) allMembers() []householddomain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []householddomain.Member{}
	for _, h := range s.households {
		p, _ := s.program(h.programID)
		ref := &householddomain.HouseholdRef{ID: h.id, HeadFirstName: h.headFirstName, HeadLastName: h.headLastName, Program: p}
		for _, m := range h.members {
			m.Phone = h.phone
			m.Location = s.placements[h.sublocationID].names.Sublocation
			m.ProgramID = h.programID
			m.Household = ref
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) listCounties() []locationdomain.County {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counties
}

// children returns the options one level below parentID at the given depth
// (1 subcounties, 2 locations, 3 sublocations). An unknown parent yields an empty list.
func (s *store) children(depth int, parentID int64) []locationdomain.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []locationdomain.Option{}
	for _, c := range s.counties {
		if depth == 1 && c.ID == parentID {
			for _, sc := range c.Subcounties {
				out = append(out, locationdomain.Option{ID: sc.ID, Name: sc.Name, Code: sc.Code})
			}
			return out
		}
		for _, sc := range c.Subcounties {
			if depth == 2 && sc.ID == parentID {
				for _, l := range sc.Locations {
					out = append(out, locationdomain.Option{ID: l.ID, Name: l.Name, Code: l.Code})
				}
				return out
			}
			for _, l := range sc.Locations {
				if depth == 3 && l.ID == parentID {
					for _, sl := range l.Sublocations {
						out = append(out, locationdomain.Option{ID: sl.ID, Name: sl.Name, Code: sl.Code})
					}
					return out
				}
			}
		}
	}
	return out
}

// adminLocations lists every node with its parent and the number of households registered beneath it.
func (s *store) adminLocations() []locationdomain.AdminLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type node struct {
		level locationdomain.Level
		id    int64
	}
	counts := make(map[node]int64)
	for _, h := range s.households {
		p := s.placements[h.sublocationID]
		counts[node{locationdomain.LevelCounty, p.countyID}]++
		counts[node{locationdomain.LevelSubcounty, p.subcountyID}]++
		counts[node{locationdomain.LevelLocation, p.locationID}]++
		counts[node{locationdomain.LevelSublocation, h.sublocationID}]++
	}
	parent := func(id int64, name string, level locationdomain.Level) *locationdomain.AdminParentRef {
		return &locationdomain.AdminParentRef{ID: id, Name: name, Type: string(level)}
	}
	row := func(id int64, name, code string, level locationdomain.Level, p *locationdomain.AdminParentRef) locationdomain.AdminLocation {
		return locationdomain.AdminLocation{
			ID:              id,
			Name:            name,
			Code:            code,
			Type:            string(level),
			Parent:          p,
			HouseholdsCount: counts[node{level, id}],
		}
	}
	out := []locationdomain.AdminLocation{}
	for _, c := range s.counties {
		out = append(out, row(c.ID, c.Name, c.Code, locationdomain.LevelCounty, nil))
		for _, sc := range c.Subcounties {
			out = append(out, row(sc.ID, sc.Name, sc.Code, locationdomain.LevelSubcounty, parent(c.ID, c.Name, locationdomain.LevelCounty)))
			for _, l := range sc.Locations {
				out = append(out, row(l.ID, l.Name, l.Code, locationdomain.LevelLocation, parent(sc.ID, sc.Name, locationdomain.LevelSubcounty)))
				for _, sl := range l.Sublocations {
					out = append(out, row(sl.ID, sl.Name, sl.Code, locationdomain.LevelSublocation, parent(l.ID, l.Name, locationdomain.LevelLocation)))
				}
			}
		}
	}
	return out
}
