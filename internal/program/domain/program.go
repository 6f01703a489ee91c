package domain

// Program is a social-protection program as returned by the upstream API.
type Program struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateProgram is the payload for POST /programs.
type CreateProgram struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
