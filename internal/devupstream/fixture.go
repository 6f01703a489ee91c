package devupstream

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fixture.yaml
var defaultFixture []byte

// fixture is the YAML seed. The hierarchy is one recursive node type: counties hold
// subcounties, which hold locations, which hold sublocations.
type fixture struct {
	Programs   []fixtureProgram   `yaml:"programs"`
	Counties   []fixtureNode      `yaml:"counties"`
	Households []fixtureHousehold `yaml:"households"`
}

type fixtureProgram struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type fixtureNode struct {
	ID       int64         `yaml:"id"`
	Name     string        `yaml:"name"`
	Code     string        `yaml:"code"`
	Children []fixtureNode `yaml:"children"`
}

type fixtureHousehold struct {
	ID            int64           `yaml:"id"`
	HeadFirstName string          `yaml:"head_first_name"`
	HeadLastName  string          `yaml:"head_last_name"`
	HeadIDNumber  string          `yaml:"head_id_number"`
	Phone         string          `yaml:"phone"`
	ProgramID     int64           `yaml:"program_id"`
	SublocationID int64           `yaml:"sublocation_id"`
	Members       []fixtureMember `yaml:"members"`
}

type fixtureMember struct {
	ID           int64  `yaml:"id"`
	FirstName    string `yaml:"first_name"`
	LastName     string `yaml:"last_name"`
	DateOfBirth  string `yaml:"date_of_birth"`
	Relationship string `yaml:"relationship"`
}

// parseFixture decodes raw, or the embedded seed when raw is empty.
func parseFixture(raw []byte) (*fixture, error) {
	if len(raw) == 0 {
		raw = defaultFixture
	}
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("devupstream: parse fixture: %w", err)
	}
	return &f, nil
}
