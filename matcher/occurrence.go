package matcher

import (
	"text2phenotype.com/psyctx/lexicon"
	"text2phenotype.com/psyctx/types"
	"sort"
)

type occurrence struct {
	trigger *lexicon.Trigger
	span    types.TokenSpan
}

// scopes holds what survived pseudo exclusion for one dimension in one sentence.
type scopes struct {
	dim          *lexicon.Dimension
	preceding    []occurrence
	following    []occurrence
	terminations types.TokenSpans
	size         int
}

func findOccurrences(dim *lexicon.Dimension, sent *types.Sentence, category types.Category) []occurrence {
	var result []occurrence
	triggers := dim.Triggers(category)
	for i := range triggers {
		for _, span := range triggers[i].Matcher.FindAll(sent) {
			result = append(result, occurrence{trigger: &triggers[i], span: span})
		}
	}
	return result
}

func resolveScopes(dim *lexicon.Dimension, sent *types.Sentence) scopes {
	res := scopes{dim: dim, size: sent.Len()}
	if dim.IsEmpty() {
		return res
	}

	var pseudo types.TokenSpans
	for _, occ := range findOccurrences(dim, sent, types.CategoryPseudo) {
		pseudo = append(pseudo, occ.span)
	}
	keep := func(occs []occurrence) []occurrence {
		kept := occs[:0]
		for _, occ := range occs {
			if !pseudo.AnyOverlaps(occ.span) {
				kept = append(kept, occ)
			}
		}
		return kept
	}

	res.preceding = keep(findOccurrences(dim, sent, types.CategoryPreceding))
	res.following = keep(findOccurrences(dim, sent, types.CategoryFollowing))
	for _, occ := range keep(findOccurrences(dim, sent, types.CategoryTermination)) {
		res.terminations = append(res.terminations, occ.span)
	}
	sort.Sort(res.terminations)
	return res
}

// nextBoundary is the start of the first termination at or after pos, or the sentence end.
func (s *scopes) nextBoundary(pos int) int {
	for _, term := range s.terminations {
		if term.Start >= pos {
			return term.Start
		}
	}
	return s.size
}

// previousBoundary is the end of the last termination at or before pos, or the sentence start.
func (s *scopes) previousBoundary(pos int) int {
	boundary := 0
	for _, term := range s.terminations {
		if term.End <= pos && term.End > boundary {
			boundary = term.End
		}
	}
	return boundary
}

type candidate struct {
	label    types.Label
	distance int
	order    int
}

// covering lists the triggers whose scope contains the span.
func (s *scopes) covering(span types.TokenSpan) []candidate {
	var result []candidate
	for _, occ := range s.preceding {
		if span.Start >= occ.span.End && span.End <= s.nextBoundary(occ.span.End) {
			result = append(result, candidate{
				label:    occ.trigger.Label,
				distance: span.Start - occ.span.End,
				order:    occ.trigger.Order,
			})
		}
	}
	for _, occ := range s.following {
		if span.End <= occ.span.Start && span.Start >= s.previousBoundary(occ.span.Start) {
			result = append(result, candidate{
				label:    occ.trigger.Label,
				distance: occ.span.Start - span.End,
				order:    occ.trigger.Order,
			})
		}
	}
	return result
}

func (s *scopes) label(span types.TokenSpan) types.Label {
	var best *candidate
	for _, c := range s.covering(span) {
		if best == nil || s.better(c, *best) {
			c := c
			best = &c
		}
	}
	if best == nil {
		return s.dim.Default
	}
	return best.label
}

func (s *scopes) better(a candidate, b candidate) bool {
	if s.dim.Priority == lexicon.PriorityDeclaration || a.distance == b.distance {
		return a.order < b.order
	}
	return a.distance < b.distance
}
