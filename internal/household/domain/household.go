package domain

import programdomain "mis-dashboard/backend/internal/program/domain"

// Relationships lists the accepted household member relationships, in display order.
var Relationships = []string{"Spouse", "Son", "Daughter", "Parent", "Sibling", "Other"}

// LocationNames is the resolved administrative location of a household, names only.
type LocationNames struct {
	County      string `json:"county"`
	Subcounty   string `json:"subcounty"`
	Location    string `json:"location"`
	Sublocation string `json:"sublocation"`
}

// Household is a beneficiary household headed by one registered person.
type Household struct {
	ID            int64                 `json:"id"`
	HeadFirstName string                `json:"head_first_name"`
	HeadLastName  string                `json:"head_last_name"`
	HeadIDNumber  string                `json:"head_id_number,omitempty"`
	Phone         string                `json:"phone"`
	Program       programdomain.Program `json:"program"`
	Location      LocationNames         `json:"location"`
}

// HouseholdRef is the household summary embedded in a member row.
type HouseholdRef struct {
	ID            int64                 `json:"id"`
	HeadFirstName string                `json:"head_first_name"`
	HeadLastName  string                `json:"head_last_name"`
	Program       programdomain.Program `json:"program"`
}

// Member is a household member. Household is nil on per-household listings.
type Member struct {
	ID           int64         `json:"id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	DateOfBirth  string        `json:"date_of_birth,omitempty"`
	Relationship string        `json:"relationship,omitempty"`
	IDNumber     string        `json:"id_number,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Location     string        `json:"location,omitempty"`
	ProgramID    int64         `json:"program_id,omitempty"`
	Household    *HouseholdRef `json:"household,omitempty"`
}

// CreateHousehold is the payload for POST /households.
type CreateHousehold struct {
	HeadFirstName string `json:"head_first_name"`
	HeadLastName  string `json:"head_last_name"`
	HeadIDNumber  string `json:"head_id_number"`
	Phone         string `json:"phone"`
	ProgramID     int64  `json:"program_id"`
	SublocationID int64  `json:"sublocation_id"`
}

// CreateMember is the payload for POST /households/{id}/members.
type CreateMember struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DateOfBirth  string `json:"date_of_birth"`
	Relationship string `json:"relationship"`
}
