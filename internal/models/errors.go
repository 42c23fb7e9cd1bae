package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel classes for errors.Is checks across layers.
var (
	ErrStructural = errors.New("structural validation failed")
	ErrRouting    = errors.New("inflow routing failed")
)

// DefaultSampleSize bounds the offender names listed in a structural error.
const DefaultSampleSize = 10

// ValidationError represents a row-level data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s (value %q)", e.Field, e.Message, e.Value)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// StructuralError reports catalog or graph violations. Offenders holds at
// most a sample of the offending names; Total is the full count.
type StructuralError struct {
	Component string
	Check     string
	Offenders []string
	Total     int
	Causes    []*StructuralError
}

func (e *StructuralError) Error() string {
	if len(e.Causes) > 0 {
		parts := make([]string, 0, len(e.Causes))
		for _, c := range e.Causes {
			parts = append(parts, c.Error())
		}
		return fmt.Sprintf("%s: %d checks failed: %s", e.Component, len(e.Causes), strings.Join(parts, "; "))
	}
	msg := fmt.Sprintf("%s: %s (%d): %s", e.Component, e.Check, e.Total, strings.Join(e.Offenders, ", "))
	if e.Total > len(e.Offenders) {
		msg += fmt.Sprintf(" ... and %d more", e.Total-len(e.Offenders))
	}
	return msg
}

// Unwrap lets errors.Is match ErrStructural.
func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// IsTransient returns false; structural defects need input changes.
func (e *StructuralError) IsTransient() bool {
	return false
}

// Checks returns the leaf violations, flattening combined errors.
func (e *StructuralError) Checks() []*StructuralError {
	if len(e.Causes) == 0 {
		return []*StructuralError{e}
	}
	out := make([]*StructuralError, 0, len(e.Causes))
	for _, c := range e.Causes {
		out = append(out, c.Checks()...)
	}
	return out
}

// NewStructuralError builds a leaf violation keeping the first sample names.
func NewStructuralError(component, check string, offenders []string, sample int) *StructuralError {
	if sample <= 0 {
		sample = DefaultSampleSize
	}
	kept := offenders
	if len(kept) > sample {
		kept = kept[:sample]
	}
	return &StructuralError{
		Component: component,
		Check:     check,
		Offenders: append([]string(nil), kept...),
		Total:     len(offenders),
	}
}

// JoinStructural combines violations; nil when there are none.
func JoinStructural(component string, errs []*StructuralError) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &StructuralError{Component: component, Causes: errs}
	}
}

// RoutingError reports inflow routing anomalies when strict routing is on.
type RoutingError struct {
	Kind    string
	Names   []string
	Total   int
	Message string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("%s (%s, %d): %s", e.Message, e.Kind, e.Total, strings.Join(e.Names, ", "))
}

// Unwrap lets errors.Is match ErrRouting.
func (e *RoutingError) Unwrap() error {
	return ErrRouting
}

// IsTransient returns false as routing errors are permanent
func (e *RoutingError) IsTransient() bool {
	return false
}
