// Package trigger implements the data-driven command interpreter that
// composes readings (matches, memory values, smoothed variables) into
// conditional logic and raised events.
package trigger

import (
	"errors"
	"fmt"
)

// ValueSource is the tagged union behind every "value-from" field group.
// Exactly one variant may be set on a command; an unset source resolves
// to the currently staged context value.
type ValueSource struct {
	Literal           *float64 `json:"value,omitempty"`
	FromTrigger       *string  `json:"value_from_trigger,omitempty"`
	FromConfig        *string  `json:"value_from_config,omitempty"`
	FromVariable      *string  `json:"value_from_variable,omitempty"`
	DeltaFromVariable *string  `json:"delta_from_variable,omitempty"`
	FromResult        *string  `json:"value_from_result,omitempty"`
}

type sourceKind int

const (
	srcContext sourceKind = iota
	srcLiteral
	srcTrigger
	srcConfig
	srcVariable
	srcVariableDelta
	srcResult
)

// active returns the single selected variant, or an error when the
// command record sets more than one.
func (v ValueSource) active() (sourceKind, error) {
	kind := srcContext
	n := 0
	if v.Literal != nil {
		kind = srcLiteral
		n++
	}
	if v.FromTrigger != nil {
		kind = srcTrigger
		n++
	}
	if v.FromConfig != nil {
		kind = srcConfig
		n++
	}
	if v.FromVariable != nil {
		kind = srcVariable
		n++
	}
	if v.DeltaFromVariable != nil {
		kind = srcVariableDelta
		n++
	}
	if v.FromResult != nil {
		kind = srcResult
		n++
	}
	if n > 1 {
		return srcContext, errors.New("command sets more than one value source")
	}
	return kind, nil
}

// Command is one record of an authored trigger list. The Cmd tag selects
// which fields are meaningful.
type Command struct {
	Cmd string `json:"cmd"`
	ValueSource

	// apply_value_to_variable, raise_event
	Name string `json:"name,omitempty"`
	// raise_event explicit identity
	ID string `json:"id,omitempty"`

	// if
	Equals   *float64  `json:"equals,omitempty"`
	MoreThan *float64  `json:"more_than,omitempty"`
	LessThan *float64  `json:"less_than,omitempty"`
	CaseTrue []Command `json:"case_true,omitempty"`

	// match_template / get_region_fill_percentage
	Region    string      `json:"region,omitempty"`
	Template  string      `json:"template,omitempty"`
	Templates []string    `json:"templates,omitempty"`
	Filter    string      `json:"filter,omitempty"`
	Div       *[4]float64 `json:"div,omitempty"`
	OnMatch   []Command   `json:"on_match,omitempty"`

	// set_cv_result_label
	Format string `json:"format,omitempty"`
}

// templates returns the template list for a match command, honoring both
// the single and plural forms.
func (c Command) templates() []string {
	if len(c.Templates) > 0 {
		return c.Templates
	}
	if c.Template != "" {
		return []string{c.Template}
	}
	return nil
}

func (c Command) div() [4]float64 {
	if c.Div != nil {
		return *c.Div
	}
	return [4]float64{0, 1, 0, 1}
}

// Validate walks a command list and rejects records that can never
// evaluate: unknown ambiguous value sources and comparator-free ifs.
// Unknown command tags are deliberately allowed; the interpreter logs and
// skips those at run time.
func Validate(commands []Command) error {
	for i, cmd := range commands {
		if _, err := cmd.active(); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, cmd.Cmd, err)
		}
		if cmd.Cmd == "if" && cmd.Equals == nil && cmd.MoreThan == nil && cmd.LessThan == nil {
			return fmt.Errorf("command %d: if without comparator", i)
		}
		if err := Validate(cmd.CaseTrue); err != nil {
			return err
		}
		if err := Validate(cmd.OnMatch); err != nil {
			return err
		}
	}
	return nil
}
