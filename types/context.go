package types

import (
	"errors"
	"fmt"
	"strings"
)

type Label string

// LabelUnset marks a context slot the matcher has not resolved yet.
const LabelUnset Label = ""

type ContextVector []Label

func NewContextVector(size int) ContextVector {
	return make(ContextVector, size)
}

func (vector ContextVector) Complete() bool {
	for _, label := range vector {
		if label == LabelUnset {
			return false
		}
	}
	return len(vector) > 0
}

type Category int8

const (
	CategoryPreceding Category = iota
	CategoryFollowing
	CategoryPseudo
	CategoryTermination
)

var ErrUnknownCategory = errors.New("unknown trigger category")

var categoryNames = [...]string{"preceding", "following", "pseudo", "termination"}

func Categories() []Category {
	return []Category{CategoryPreceding, CategoryFollowing, CategoryPseudo, CategoryTermination}
}

func (c Category) Name() string {
	if int(c) < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Dimension names used by the built-in lexicons.
const (
	DimensionExperiencer       = "experiencer"
	DimensionTemporality       = "temporality"
	DimensionNegation          = "negation"
	DimensionPlausibility      = "plausibility"
	DimensionPatientExperience = "patient_experience"
)

func DefaultDimensionOrder() []string {
	return []string{
		DimensionExperiencer,
		DimensionTemporality,
		DimensionNegation,
		DimensionPlausibility,
	}
}
