package navigation

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/cachekey"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

var ErrInvalidPolicy = errors.New("invalid navigation policy")

// Candidate is a screen worth preloading from the current one.
type Candidate struct {
	Screen   string `yaml:"screen" json:"screen" validate:"required"`
	Priority int    `yaml:"priority" json:"priority" validate:"min=1,max=100"`
}

// ScreenRule describes one screen for one role.
type ScreenRule struct {
	Requires []cachekey.Facet `yaml:"requires" json:"requires" validate:"dive,oneof=user volunteer_events volunteer_registrations admin_events admin_registrations events"`
	Next     []Candidate      `yaml:"next" json:"next" validate:"dive"`
}

type ScreenPolicy struct {
	Volunteer *ScreenRule `yaml:"volunteer" json:"volunteer,omitempty"`
	Admin     *ScreenRule `yaml:"admin" json:"admin,omitempty"`
}

// Policy maps screens to their data requirements and likely successors. It is
// data, so prefetch behavior can change without touching the optimizer.
type Policy struct {
	Screens map[string]ScreenPolicy `yaml:"screens" json:"screens" validate:"required,min=1,dive"`
}

// Rule returns the rule for screen under role.
func (p *Policy) Rule(screen string, role volunteer.Role) (*ScreenRule, bool) {
	if p == nil {
		return nil, false
	}
	sp, ok := p.Screens[screen]
	if !ok {
		return nil, false
	}
	var r *ScreenRule
	if role == volunteer.RoleAdmin {
		r = sp.Admin
	} else {
		r = sp.Volunteer
	}
	return r, r != nil
}

// Candidates returns the successors of screen under role, highest priority first.
func (p *Policy) Candidates(screen string, role volunteer.Role) []Candidate {
	r, ok := p.Rule(screen, role)
	if !ok {
		return nil
	}
	out := make([]Candidate, len(r.Next))
	copy(out, r.Next)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// Requires returns the facets screen needs under role.
func (p *Policy) Requires(screen string, role volunteer.Role) []cachekey.Facet {
	r, ok := p.Rule(screen, role)
	if !ok {
		return nil
	}
	return r.Requires
}

// Parse decodes and validates a YAML policy.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads a policy file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read navigation policy: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in policy.
func Default() *Policy {
	p, err := Parse(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded navigation policy is invalid: %v", err))
	}
	return p
}

var validate = validator.New()

// Validate checks struct constraints and that every candidate refers to a
// declared screen for the same role.
func (p *Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	for name, sp := range p.Screens {
		for role, r := range map[volunteer.Role]*ScreenRule{volunteer.RoleVolunteer: sp.Volunteer, volunteer.RoleAdmin: sp.Admin} {
			if r == nil {
				continue
			}
			for _, c := range r.Next {
				if _, ok := p.Rule(c.Screen, role); !ok {
					return fmt.Errorf("%w: screen %q (%s) points to undeclared screen %q", ErrInvalidPolicy, name, role, c.Screen)
				}
			}
		}
	}
	return nil
}
