package location

import (
	"strings"

	"mis-dashboard/backend/internal/location/domain"
)

// PathSeparator joins ancestor names in Row.FullPath.
const PathSeparator = " > "

// Flatten lists every node of the tree as a Row, depth-first pre-order: a county, then each of
// its subcounties followed by that subcounty's locations and their sublocations, all in input order.
// It is pure and deterministic.
func Flatten(counties []domain.County) []domain.Row {
	rows := make([]domain.Row, 0, countNodes(counties))
	for _, c := range counties {
		rows = append(rows, row(c.ID, c.Name, c.Code, domain.LevelCounty, nil))
		countyPath := []string{c.Name}
		for _, sc := range c.Subcounties {
			rows = append(rows, row(sc.ID, sc.Name, sc.Code, domain.LevelSubcounty, countyPath))
			scPath := appendPath(countyPath, sc.Name)
			for _, l := range sc.Locations {
				rows = append(rows, row(l.ID, l.Name, l.Code, domain.LevelLocation, scPath))
				lPath := appendPath(scPath, l.Name)
				for _, sl := range l.Sublocations {
					rows = append(rows, row(sl.ID, sl.Name, sl.Code, domain.LevelSublocation, lPath))
				}
			}
		}
	}
	return rows
}

// row builds a Row whose ancestors (root first) are ancestors.
func row(id int64, name, code string, level domain.Level, ancestors []string) domain.Row {
	r := domain.Row{ID: id, Name: name, Code: code, Type: level}
	if len(ancestors) > 0 {
		parent := ancestors[len(ancestors)-1]
		r.ParentName = &parent
	}
	r.FullPath = strings.Join(appendPath(ancestors, name), PathSeparator)
	return r
}

// appendPath returns a fresh slice so sibling branches never share a backing array.
func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}

func countNodes(counties []domain.County) int {
	n := len(counties)
	for _, c := range counties {
		n += len(c.Subcounties)
		for _, sc := range c.Subcounties {
			n += len(sc.Locations)
			for _, l := range sc.Locations {
				n += len(l.Sublocations)
			}
		}
	}
	return n
}
