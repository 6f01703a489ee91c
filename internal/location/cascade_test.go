package location

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mis-dashboard/backend/internal/location/domain"
	"mis-dashboard/backend/internal/validation"
)

// fakeUpstream serves testTree through the per-level endpoints and records calls.
type fakeUpstream struct {
	calls []string
	err   error
}

func (f *fakeUpstream) ListCounties(ctx context.Context) ([]domain.County, error) {
	f.calls = append(f.calls, "counties")
	if f.err != nil {
		return nil, f.err
	}
	return testTree(), nil
}

func (f *fakeUpstream) ListSubcounties(ctx context.Context, id int64) ([]domain.Option, error) {
	f.calls = append(f.calls, "subcounties")
	if f.err != nil {
		return nil, f.err
	}
	return NewTreeSource(testTree()).Subcounties(ctx, id)
}

func (f *fakeUpstream) ListLocations(ctx context.Context, id int64) ([]domain.Option, error) {
	f.calls = append(f.calls, "locations")
	if f.err != nil {
		return nil, f.err
	}
	return NewTreeSource(testTree()).Locations(ctx, id)
}

func (f *fakeUpstream) ListSublocations(ctx context.Context, id int64) ([]domain.Option, error) {
	f.calls = append(f.calls, "sublocations")
	if f.err != nil {
		return nil, f.err
	}
	return NewTreeSource(testTree()).Sublocations(ctx, id)
}

func sources(t *testing.T) map[string]func() (Source, *fakeUpstream) {
	t.Helper()
	return map[string]func() (Source, *fakeUpstream){
		"tree": func() (Source, *fakeUpstream) { return NewTreeSource(testTree()), nil },
		"fetch": func() (Source, *fakeUpstream) {
			f := &fakeUpstream{}
			return NewFetchSource(NewResolver(f)), f
		},
	}
}

func TestSelector_InitialState(t *testing.T) {
	for name, mk := range sources(t) {
		t.Run(name, func(t *testing.T) {
			src, _ := mk()
			s := NewSelector(src)
			if err := s.Load(context.Background()); err != nil {
				t.Fatalf("Load: %v", err)
			}
			st := s.State()
			if len(st.Levels) != 4 {
				t.Fatalf("levels = %d", len(st.Levels))
			}
			if st.Levels[0].Disabled || len(st.Levels[0].Options) != 2 {
				t.Errorf("county level = %+v", st.Levels[0])
			}
			for _, ls := range st.Levels[1:] {
				if !ls.Disabled || len(ls.Options) != 0 || ls.SelectedID != 0 {
					t.Errorf("level %s = %+v, want empty and disabled", ls.Level, ls)
				}
			}
		})
	}
}

func TestSelector_FullCascade(t *testing.T) {
	for name, mk := range sources(t) {
		t.Run(name, func(t *testing.T) {
			src, _ := mk()
			ctx := context.Background()
			s := NewSelector(src)
			if err := s.SelectCounty(ctx, 1); err != nil {
				t.Fatalf("SelectCounty: %v", err)
			}
			if err := s.SelectSubcounty(ctx, 10); err != nil {
				t.Fatalf("SelectSubcounty: %v", err)
			}
			if err := s.SelectLocation(ctx, 100); err != nil {
				t.Fatalf("SelectLocation: %v", err)
			}
			if err := s.SelectSublocation(ctx, 1001); err != nil {
				t.Fatalf("SelectSublocation: %v", err)
			}
			id, err := s.Resolve()
			if err != nil || id != 1001 {
				t.Fatalf("Resolve = %d, %v", id, err)
			}
			want := []domain.Option{
				{ID: 1000, Name: "Highridge", Code: "047-1-1-1"},
				{ID: 1001, Name: "Kitisuru", Code: "047-1-1-2"},
			}
			if diff := cmp.Diff(want, s.State().Levels[3].Options); diff != "" {
				t.Errorf("sublocation options (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelector_CountyChangeResetsLowerLevels(t *testing.T) {
	for name, mk := range sources(t) {
		t.Run(name, func(t *testing.T) {
			src, _ := mk()
			ctx := context.Background()
			s := NewSelector(src)
			for _, step := range []func() error{
				func() error { return s.SelectCounty(ctx, 1) },
				func() error { return s.SelectSubcounty(ctx, 10) },
				func() error { return s.SelectLocation(ctx, 100) },
				func() error { return s.SelectCounty(ctx, 2) },
			} {
				if err := step(); err != nil {
					t.Fatal(err)
				}
			}
			want := Selection{CountyID: 2}
			if got := s.Selected(); got != want {
				t.Errorf("Selected = %+v, want %+v", got, want)
			}
			st := s.State()
			if st.Levels[1].Disabled {
				t.Error("subcounty level should be enabled after county selection")
			}
			if len(st.Levels[1].Options) != 0 {
				t.Errorf("Mombasa has no subcounties, got %v", st.Levels[1].Options)
			}
			if !st.Levels[2].Disabled || !st.Levels[3].Disabled {
				t.Error("location and sublocation levels should be disabled")
			}
		})
	}
}

func TestSelector_SubcountyChangeClearsLocation(t *testing.T) {
	ctx := context.Background()
	s := NewSelector(NewTreeSource(testTree()))
	if err := s.Apply(ctx, Selection{CountyID: 1, SubcountyID: 10, LocationID: 100, SublocationID: 1000}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.SelectSubcounty(ctx, 11); err != nil {
		t.Fatalf("SelectSubcounty: %v", err)
	}
	if got, want := s.Selected(), (Selection{CountyID: 1, SubcountyID: 11}); got != want {
		t.Errorf("Selected = %+v, want %+v", got, want)
	}
	if _, err := s.Resolve(); err == nil {
		t.Error("Resolve should fail without sublocation")
	}
}

func TestSelector_FetchOnlyOneLevelPerChange(t *testing.T) {
	f := &fakeUpstream{}
	ctx := context.Background()
	s := NewSelector(NewFetchSource(NewResolver(f)))
	if err := s.SelectCounty(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectSubcounty(ctx, 10); err != nil {
		t.Fatal(err)
	}
	want := []string{"counties", "subcounties", "locations"}
	if diff := cmp.Diff(want, f.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestSelector_ParentRequired(t *testing.T) {
	s := NewSelector(NewTreeSource(testTree()))
	err := s.SelectLocation(context.Background(), 100)
	if !errors.Is(err, ErrParentNotSelected) {
		t.Errorf("err = %v, want ErrParentNotSelected", err)
	}
}

func TestSelector_UnknownOption(t *testing.T) {
	s := NewSelector(NewTreeSource(testTree()))
	if err := s.SelectCounty(context.Background(), 99); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("err = %v, want ErrUnknownOption", err)
	}
	err := s.Apply(context.Background(), Selection{CountyID: 1, SubcountyID: 99})
	ve, ok := validation.As(err)
	if !ok || ve["subcounty_id"] != "Invalid subcounty selection" {
		t.Errorf("Apply err = %v", err)
	}
}

func TestSelector_ResolveWithoutSublocation(t *testing.T) {
	s := NewSelector(NewTreeSource(testTree()))
	_, err := s.Resolve()
	ve, ok := validation.As(err)
	if !ok {
		t.Fatalf("err = %v, want validation.Errors", err)
	}
	if ve["sublocation_id"] != LocationRequiredMessage {
		t.Errorf("sublocation_id = %q", ve["sublocation_id"])
	}
}

func TestSelector_SourceError(t *testing.T) {
	boom := errors.New("boom")
	s := NewSelector(NewFetchSource(NewResolver(&fakeUpstream{err: boom})))
	if err := s.Apply(context.Background(), Selection{CountyID: 1}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}
