package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/soocke/gamewatch-go/domain/geometry"
	"github.com/soocke/gamewatch-go/domain/trigger"
	"github.com/soocke/gamewatch-go/domain/vision"
)

// Profile is the authored description of one observed game: where to
// find it, what to watch and which events that produces.
type Profile struct {
	// TargetWindow is a regular expression matched against window titles.
	TargetWindow string `json:"target_window"`
	// ProcessName selects the process for memory reads.
	ProcessName string `json:"process_name"`

	CV        CVProfile                    `json:"cv"`
	Events    []EventDef                   `json:"events"`
	Variables map[string]VariableDef       `json:"variables"`
	Pointers  map[string]PointerDef        `json:"pointers"`
	Values    map[string]float64           `json:"values"`
	Triggers  map[string][]trigger.Command `json:"triggers"`
	HTTPPaths map[string]string            `json:"http_paths"`
}

// CVProfile describes the capture geometry: reference resolution, the
// scaling policy and the authored regions, templates and filters.
type CVProfile struct {
	Scaling         string                   `json:"scaling"`
	ReferenceWidth  int                      `json:"reference_width"`
	ReferenceHeight int                      `json:"reference_height"`
	Regions         map[string]geometry.Rect `json:"regions"`
	Templates       map[string]TemplateDef   `json:"templates"`
	Filters         map[string]FilterDef     `json:"filters"`
}

// TemplateDef references a template image on disk.
type TemplateDef struct {
	File      string    `json:"file"`
	Threshold float64   `json:"threshold"`
	MaskColor *[3]uint8 `json:"mask_color,omitempty"`
}

type FilterDef struct {
	Kind  string   `json:"kind"`
	Lower [3]uint8 `json:"lower,omitempty"`
	Upper [3]uint8 `json:"upper,omitempty"`
}

// VariableDef configures one smoothing variable.
type VariableDef struct {
	// BufferLength is the debounce window in seconds.
	BufferLength float64 `json:"buffer_length"`
	Tolerance    float64 `json:"tolerance"`
}

// PointerDef is one named pointer chain into the observed process,
// optionally bound to a smoothing variable.
type PointerDef struct {
	Module   string   `json:"module"`
	Base     uint64   `json:"base"`
	Offsets  []uint64 `json:"offsets"`
	Type     string   `json:"type"` // bool, int, float
	Variable string   `json:"variable,omitempty"`
}

// EventDef mirrors score.EventType in authored form.
type EventDef struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Additive       bool     `json:"additive,omitempty"`
	ProportionalTo *float64 `json:"proportional_to,omitempty"`
	Duration       *float64 `json:"duration,omitempty"`
	Points         float64  `json:"points"`
}

// LoadProfile reads and validates an authored profile.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var p Profile
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks cross-references inside the profile. These are
// authoring errors and refuse to start the run.
func (p *Profile) Validate() error {
	seen := map[string]bool{}
	for _, e := range p.Events {
		if e.Name == "" {
			return fmt.Errorf("event with empty name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate event %q", e.Name)
		}
		seen[e.Name] = true
		if e.ProportionalTo != nil && *e.ProportionalTo == 0 {
			return fmt.Errorf("event %q: proportional_to is zero", e.Name)
		}
		if e.Duration != nil && *e.Duration <= 0 {
			return fmt.Errorf("event %q: duration must be positive", e.Name)
		}
	}

	for name, def := range p.Variables {
		if def.BufferLength < 0 {
			return fmt.Errorf("variable %q: negative buffer_length", name)
		}
	}

	for name, def := range p.Pointers {
		switch def.Type {
		case "", "float", "int", "bool":
		default:
			return fmt.Errorf("pointer %q: unknown type %q", name, def.Type)
		}
		if def.Variable != "" {
			if _, ok := p.Variables[def.Variable]; !ok {
				return fmt.Errorf("pointer %q: unknown variable %q", name, def.Variable)
			}
		}
	}

	if _, err := p.CV.Scaler(); err != nil {
		return err
	}
	for name, def := range p.CV.Templates {
		if def.File == "" {
			return fmt.Errorf("template %q: missing file", name)
		}
		if def.Threshold < 0 || def.Threshold > 1 {
			return fmt.Errorf("template %q: threshold outside [0,1]", name)
		}
	}
	for name, def := range p.CV.Filters {
		if _, err := vision.ParseFilterSpec(def.Kind, def.Lower, def.Upper); err != nil {
			return fmt.Errorf("filter %q: %w", name, err)
		}
	}

	for name, commands := range p.Triggers {
		if err := trigger.Validate(commands); err != nil {
			return fmt.Errorf("trigger %q: %w", name, err)
		}
	}
	return nil
}

// Scaler builds the geometry scaler the profile describes.
func (cv CVProfile) Scaler() (geometry.Scaler, error) {
	policy, err := geometry.ParseScalePolicy(cv.Scaling)
	if err != nil {
		return geometry.Scaler{}, err
	}
	return geometry.NewScaler(policy, cv.ReferenceWidth, cv.ReferenceHeight), nil
}

// TriggerNames returns the trigger list names in stable order. Lists run
// in this order every tick.
func (p *Profile) TriggerNames() []string {
	names := make([]string, 0, len(p.Triggers))
	for name := range p.Triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
