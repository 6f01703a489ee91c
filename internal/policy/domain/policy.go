package domain

import "time"

// Policy is one Rego module of the route guard.
type Policy struct {
	ID        string // module name, e.g. the file name
	Rules     string // Rego source
	Enabled   bool
	UpdatedAt time.Time
}
