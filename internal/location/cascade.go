package location

import (
	"context"
	"errors"
	"fmt"

	"mis-dashboard/backend/internal/location/domain"
	"mis-dashboard/backend/internal/validation"
)

// LocationRequiredMessage is reported when a selection is resolved without a sublocation.
const LocationRequiredMessage = "Location selection is required"

var (
	// ErrParentNotSelected is returned when a level is selected before its parent.
	ErrParentNotSelected = errors.New("location: parent level not selected")
	// ErrUnknownOption is returned when the id is not among the level's options.
	ErrUnknownOption = errors.New("location: unknown option")
)

// Source supplies the options of each level given the selected parent.
type Source interface {
	Counties(ctx context.Context) ([]domain.Option, error)
	Subcounties(ctx context.Context, countyID int64) ([]domain.Option, error)
	Locations(ctx context.Context, subcountyID int64) ([]domain.Option, error)
	Sublocations(ctx context.Context, locationID int64) ([]domain.Option, error)
}

// TreeSource narrows an already fetched nested tree. It never calls the upstream.
type TreeSource struct {
	counties []domain.County
}

// NewTreeSource returns a Source over counties.
func NewTreeSource(counties []domain.County) *TreeSource {
	return &TreeSource{counties: counties}
}

func (t *TreeSource) Counties(context.Context) ([]domain.Option, error) {
	out := make([]domain.Option, 0, len(t.counties))
	for _, c := range t.counties {
		out = append(out, domain.Option{ID: c.ID, Name: c.Name, Code: c.Code})
	}
	return out, nil
}

func (t *TreeSource) Subcounties(_ context.Context, countyID int64) ([]domain.Option, error) {
	for _, c := range t.counties {
		if c.ID != countyID {
			continue
		}
		out := make([]domain.Option, 0, len(c.Subcounties))
		for _, sc := range c.Subcounties {
			out = append(out, domain.Option{ID: sc.ID, Name: sc.Name, Code: sc.Code})
		}
		return out, nil
	}
	return []domain.Option{}, nil
}

func (t *TreeSource) Locations(_ context.Context, subcountyID int64) ([]domain.Option, error) {
	for _, c := range t.counties {
		for _, sc := range c.Subcounties {
			if sc.ID != subcountyID {
				continue
			}
			out := make([]domain.Option, 0, len(sc.Locations))
			for _, l := range sc.Locations {
				out = append(out, domain.Option{ID: l.ID, Name: l.Name, Code: l.Code})
			}
			return out, nil
		}
	}
	return []domain.Option{}, nil
}

func (t *TreeSource) Sublocations(_ context.Context, locationID int64) ([]domain.Option, error) {
	for _, c := range t.counties {
		for _, sc := range c.Subcounties {
			for _, l := range sc.Locations {
				if l.ID != locationID {
					continue
				}
				out := make([]domain.Option, 0, len(l.Sublocations))
				for _, sl := range l.Sublocations {
					out = append(out, domain.Option{ID: sl.ID, Name: sl.Name, Code: sl.Code})
				}
				return out, nil
			}
		}
	}
	return []domain.Option{}, nil
}

// FetchSource asks the upstream for each level on demand.
type FetchSource struct {
	r *Resolver
}

// NewFetchSource returns a Source backed by r.
func NewFetchSource(r *Resolver) *FetchSource {
	return &FetchSource{r: r}
}

func (f *FetchSource) Counties(ctx context.Context) ([]domain.Option, error) {
	counties, err := f.r.FetchCounties(ctx)
	if err != nil {
		return nil, err
	}
	return NewTreeSource(counties).Counties(ctx)
}

func (f *FetchSource) Subcounties(ctx context.Context, countyID int64) ([]domain.Option, error) {
	return f.r.FetchSubcounties(ctx, countyID)
}

func (f *FetchSource) Locations(ctx context.Context, subcountyID int64) ([]domain.Option, error) {
	return f.r.FetchLocations(ctx, subcountyID)
}

func (f *FetchSource) Sublocations(ctx context.Context, locationID int64) ([]domain.Option, error) {
	return f.r.FetchSublocations(ctx, locationID)
}

// Selection is a set of chosen ids, zero meaning not chosen.
type Selection struct {
	CountyID      int64
	SubcountyID   int64
	LocationID    int64
	SublocationID int64
}

func (s Selection) ids() [4]int64 {
	return [4]int64{s.CountyID, s.SubcountyID, s.LocationID, s.SublocationID}
}

// LevelState is the view of one level of the cascade.
type LevelState struct {
	Level      domain.Level    `json:"level"`
	Field      string          `json:"field"`
	Options    []domain.Option `json:"options"`
	SelectedID int64           `json:"selected_id,omitempty"`
	Disabled   bool            `json:"disabled"`
}

// State is the whole cascade, root level first.
type State struct {
	Levels []LevelState `json:"levels"`
}

// Selector is a four-level cascading selection. Changing a level clears every level below it
// and loads the options of the next one; a level stays empty and disabled until its parent is
// selected. A Selector belongs to one request and is not safe for concurrent use.
type Selector struct {
	src      Source
	loaded   bool
	options  [4][]domain.Option
	selected [4]int64
}

// NewSelector returns a Selector reading options from src.
func NewSelector(src Source) *Selector {
	return &Selector{src: src}
}

// FieldName is the form field carrying the selection of level.
func FieldName(level domain.Level) string {
	return string(level) + "_id"
}

// Load fetches the county options. It is called implicitly by the first selection.
func (s *Selector) Load(ctx context.Context) error {
	opts, err := s.src.Counties(ctx)
	if err != nil {
		return err
	}
	s.options[0] = opts
	s.loaded = true
	return nil
}

// SelectCounty selects a county, clearing subcounty, location and sublocation.
func (s *Selector) SelectCounty(ctx context.Context, id int64) error {
	return s.selectAt(ctx, 0, id)
}

// SelectSubcounty selects a subcounty, clearing location and sublocation, and loads its locations.
func (s *Selector) SelectSubcounty(ctx context.Context, id int64) error {
	return s.selectAt(ctx, 1, id)
}

// SelectLocation selects a location, clearing the sublocation, and loads its sublocations.
func (s *Selector) SelectLocation(ctx context.Context, id int64) error {
	return s.selectAt(ctx, 2, id)
}

// SelectSublocation selects the leaf.
func (s *Selector) SelectSublocation(ctx context.Context, id int64) error {
	return s.selectAt(ctx, 3, id)
}

// selectAt sets level i to id (zero deselects) and resets everything below it.
func (s *Selector) selectAt(ctx context.Context, i int, id int64) error {
	if !s.loaded {
		if err := s.Load(ctx); err != nil {
			return err
		}
	}
	level := domain.Levels[i]
	if i > 0 && s.selected[i-1] == 0 {
		return fmt.Errorf("%w: %s", ErrParentNotSelected, level)
	}
	if id != 0 && !containsOption(s.options[i], id) {
		return fmt.Errorf("%w: %s %d", ErrUnknownOption, level, id)
	}
	s.selected[i] = id
	for j := i + 1; j < len(s.selected); j++ {
		s.selected[j] = 0
		s.options[j] = nil
	}
	if id == 0 || i == len(s.selected)-1 {
		return nil
	}
	opts, err := s.children(ctx, i+1, id)
	if err != nil {
		return err
	}
	s.options[i+1] = opts
	return nil
}

func (s *Selector) children(ctx context.Context, i int, parentID int64) ([]domain.Option, error) {
	switch i {
	case 1:
		return s.src.Subcounties(ctx, parentID)
	case 2:
		return s.src.Locations(ctx, parentID)
	default:
		return s.src.Sublocations(ctx, parentID)
	}
}

// Apply selects sel root first, stopping at the first unset level. Unknown ids are reported as
// validation errors on the offending field; source failures are returned as they are.
func (s *Selector) Apply(ctx context.Context, sel Selection) error {
	for i, id := range sel.ids() {
		if id == 0 {
			if !s.loaded {
				return s.Load(ctx)
			}
			return nil
		}
		if err := s.selectAt(ctx, i, id); err != nil {
			if errors.Is(err, ErrUnknownOption) || errors.Is(err, ErrParentNotSelected) {
				level := domain.Levels[i]
				return validation.Errors{FieldName(level): "Invalid " + string(level) + " selection"}
			}
			return err
		}
	}
	return nil
}

// Selected returns the current selection.
func (s *Selector) Selected() Selection {
	return Selection{
		CountyID:      s.selected[0],
		SubcountyID:   s.selected[1],
		LocationID:    s.selected[2],
		SublocationID: s.selected[3],
	}
}

// State reports the options, selection and enabled state of every level.
func (s *Selector) State() State {
	st := State{Levels: make([]LevelState, len(domain.Levels))}
	for i, level := range domain.Levels {
		disabled := i > 0 && s.selected[i-1] == 0
		opts := s.options[i]
		if disabled || opts == nil {
			opts = []domain.Option{}
		}
		st.Levels[i] = LevelState{
			Level:      level,
			Field:      FieldName(level),
			Options:    opts,
			SelectedID: s.selected[i],
			Disabled:   disabled,
		}
	}
	return st
}

// Resolve returns the selected sublocation id, or a validation error when none is selected.
func (s *Selector) Resolve() (int64, error) {
	if id := s.selected[3]; id != 0 {
		return id, nil
	}
	return 0, validation.Errors{FieldName(domain.LevelSublocation): LocationRequiredMessage}
}

func containsOption(opts []domain.Option, id int64) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}
