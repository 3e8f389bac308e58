package fsm

import "text2phenotype.com/psyctx/types"

// Sequence matches consecutive tokens, one condition per token.
type Sequence []Condition

// MatchAt reports whether the sequence matches the tokens starting at index start.
func (seq Sequence) MatchAt(tokens []*types.Token, start int) bool {
	if len(seq) == 0 || start < 0 || start+len(seq) > len(tokens) {
		return false
	}
	for i, cond := range seq {
		if !cond(tokens[start+i]) {
			return false
		}
	}
	return true
}

// FindAll returns the spans of every match, including overlapping ones, in token order.
func (seq Sequence) FindAll(tokens []*types.Token) []types.TokenSpan {
	var spans []types.TokenSpan
	for start := range tokens {
		if seq.MatchAt(tokens, start) {
			spans = append(spans, types.TokenSpan{Start: start, End: start + len(seq)})
		}
	}
	return spans
}
