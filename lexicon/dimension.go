package lexicon

import (
	"text2phenotype.com/psyctx/types"
	"errors"
	"fmt"
)

var (
	ErrEmptyTrigger       = errors.New("empty trigger")
	ErrUnknownAttribute   = errors.New("unknown token attribute")
	ErrUnknownVocabulary  = errors.New("unknown vocabulary")
	ErrUnknownLabel       = errors.New("unknown label")
	ErrUnknownDimension   = errors.New("unknown dimension")
	ErrDuplicateDimension = errors.New("duplicate dimension")
	ErrBadLabels          = errors.New("a dimension needs exactly two distinct labels")
	ErrUnknownPriority    = errors.New("unknown priority")
)

// Priority decides which trigger wins when triggers with different labels cover one entity.
type Priority string

const (
	// PriorityNearest picks the trigger closest to the entity, ties go to the earliest declared.
	PriorityNearest Priority = "nearest"
	// PriorityDeclaration picks the earliest declared trigger.
	PriorityDeclaration Priority = "declaration"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "", PriorityNearest:
		return PriorityNearest, nil
	case PriorityDeclaration:
		return PriorityDeclaration, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

type Dimension struct {
	Name     string
	Labels   [2]types.Label
	Default  types.Label
	Priority Priority

	byCategory [4][]Trigger
	count      int
}

func NewDimension(name string, labels []types.Label, defaultLabel types.Label, priority Priority) (*Dimension, error) {
	if name == "" {
		return nil, errors.New("dimension without name")
	}
	if len(labels) != 2 || labels[0] == labels[1] || labels[0] == types.LabelUnset || labels[1] == types.LabelUnset {
		return nil, fmt.Errorf("%s: %w, got %v", name, ErrBadLabels, labels)
	}
	dim := &Dimension{
		Name:     name,
		Labels:   [2]types.Label{labels[0], labels[1]},
		Priority: priority,
	}
	if !dim.HasLabel(defaultLabel) {
		return nil, fmt.Errorf("%s: default %w %q", name, ErrUnknownLabel, defaultLabel)
	}
	dim.Default = defaultLabel
	if dim.Priority == "" {
		dim.Priority = PriorityNearest
	}
	return dim, nil
}

func (dim *Dimension) HasLabel(label types.Label) bool {
	return label == dim.Labels[0] || label == dim.Labels[1]
}

// Activated is the non-default label.
func (dim *Dimension) Activated() types.Label {
	if dim.Labels[0] == dim.Default {
		return dim.Labels[1]
	}
	return dim.Labels[0]
}

// Add appends a trigger. An unset label means the activated label.
func (dim *Dimension) Add(category types.Category, label types.Label, matcher Matcher) error {
	if category < types.CategoryPreceding || category > types.CategoryTermination {
		return fmt.Errorf("%s: %w: %d", dim.Name, types.ErrUnknownCategory, category)
	}
	if matcher == nil {
		return fmt.Errorf("%s: %w", dim.Name, ErrEmptyTrigger)
	}
	if label == types.LabelUnset {
		label = dim.Activated()
	}
	if !dim.HasLabel(label) {
		return fmt.Errorf("%s: %w %q", dim.Name, ErrUnknownLabel, label)
	}
	dim.byCategory[category] = append(dim.byCategory[category], Trigger{
		Category: category,
		Label:    label,
		Order:    dim.count,
		Matcher:  matcher,
	})
	dim.count++
	return nil
}

func (dim *Dimension) Triggers(category types.Category) []Trigger {
	return dim.byCategory[category]
}

func (dim *Dimension) Len() int {
	return dim.count
}

func (dim *Dimension) IsEmpty() bool {
	return dim.count == 0
}
