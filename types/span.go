package types

import "fmt"

// TokenSpan is a half-open range of token indices.
type TokenSpan struct {
	Start int
	End   int
}

func (span TokenSpan) Len() int {
	return span.End - span.Start
}

func (span TokenSpan) Overlaps(other TokenSpan) bool {
	return span.Start < other.End && other.Start < span.End
}

func (span TokenSpan) String() string {
	return fmt.Sprintf("[%d:%d)", span.Start, span.End)
}

type TokenSpans []TokenSpan

func (spans TokenSpans) Len() int {
	return len(spans)
}

func (spans TokenSpans) Less(i int, j int) bool {
	if spans[i].Start == spans[j].Start {
		return spans[i].End < spans[j].End
	}
	return spans[i].Start < spans[j].Start
}

func (spans TokenSpans) Swap(i int, j int) {
	spans[i], spans[j] = spans[j], spans[i]
}

func (spans TokenSpans) AnyOverlaps(span TokenSpan) bool {
	for _, s := range spans {
		if s.Overlaps(span) {
			return true
		}
	}
	return false
}
