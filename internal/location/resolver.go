// Package location fetches the administrative hierarchy and derives the flattened listing
// and the cascading selection from it.
package location

import (
	"context"
	"fmt"

	"mis-dashboard/backend/internal/location/domain"
)

// Upstream is the part of the upstream API the resolver needs.
type Upstream interface {
	ListCounties(ctx context.Context) ([]domain.County, error)
	ListSubcounties(ctx context.Context, countyID int64) ([]domain.Option, error)
	ListLocations(ctx context.Context, subcountyID int64) ([]domain.Option, error)
	ListSublocations(ctx context.Context, locationID int64) ([]domain.Option, error)
}

// Resolver reads the hierarchy. Each per-level call fetches exactly one level below its parent.
// Upstream errors are returned wrapped so callers can still match them with errors.Is/As.
type Resolver struct {
	upstream Upstream
}

// NewResolver returns a Resolver over u.
func NewResolver(u Upstream) *Resolver {
	return &Resolver{upstream: u}
}

// FetchCounties returns the nested tree in the order the upstream returned it.
func (r *Resolver) FetchCounties(ctx context.Context) ([]domain.County, error) {
	counties, err := r.upstream.ListCounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch counties: %w", err)
	}
	return counties, nil
}

// FetchSubcounties returns the subcounties of countyID.
func (r *Resolver) FetchSubcounties(ctx context.Context, countyID int64) ([]domain.Option, error) {
	opts, err := r.upstream.ListSubcounties(ctx, countyID)
	if err != nil {
		return nil, fmt.Errorf("fetch subcounties of county %d: %w", countyID, err)
	}
	return opts, nil
}

// FetchLocations returns the locations of subcountyID.
func (r *Resolver) FetchLocations(ctx context.Context, subcountyID int64) ([]domain.Option, error) {
	opts, err := r.upstream.ListLocations(ctx, subcountyID)
	if err != nil {
		return nil, fmt.Errorf("fetch locations of subcounty %d: %w", subcountyID, err)
	}
	return opts, nil
}

// FetchSublocations returns the sublocations of locationID.
func (r *Resolver) FetchSublocations(ctx context.Context, locationID int64) ([]domain.Option, error) {
	opts, err := r.upstream.ListSublocations(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("fetch sublocations of location %d: %w", locationID, err)
	}
	return opts, nil
}

// Flatten fetches the tree and flattens it.
func (r *Resolver) Flatten(ctx context.Context) ([]domain.Row, error) {
	counties, err := r.FetchCounties(ctx)
	if err != nil {
		return nil, err
	}
	return Flatten(counties), nil
}
