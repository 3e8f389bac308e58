package relation

import (
	"text2phenotype.com/psyctx/types"
	"fmt"
	"strconv"
	"strings"
)

// IsRelated reports whether any phrase token is connected to any change token in the
// dependency tree: as ancestor or descendant, as siblings under heads with the same text,
// or as a conjunct whose grandparent has the text of the change token's head.
// Positions outside the sentence are ignored.
func IsRelated(sent *types.Sentence, phrase []int, change []int) bool {
	for _, i := range phrase {
		if i < 0 || i >= sent.Len() {
			continue
		}
		for _, j := range change {
			if j < 0 || j >= sent.Len() {
				continue
			}
			if related(sent, i, j) {
				return true
			}
		}
	}
	return false
}

func related(sent *types.Sentence, i int, j int) bool {
	pTok, cTok := sent.Tokens[i], sent.Tokens[j]
	if pTok.InSubtree(j) || cTok.InSubtree(i) {
		return true
	}
	pHead, cHead := sent.Head(i), sent.Head(j)
	if strings.EqualFold(pHead.Text, cHead.Text) {
		return true
	}
	return strings.Contains(pTok.Dep, "conj") && strings.EqualFold(sent.Head(pHead.Index).Text, cHead.Text)
}

// Positions splits the comma joined rule and start token fields of a record into
// phrase and change token positions.
func Positions(rules string, starts string) ([]int, []int, error) {
	if rules == "" && starts == "" {
		return nil, nil, nil
	}
	ruleList := strings.Split(rules, ",")
	startList := strings.Split(starts, ",")
	if len(ruleList) != len(startList) {
		return nil, nil, fmt.Errorf("%d rules but %d start tokens", len(ruleList), len(startList))
	}
	var phrase, change []int
	for k, rule := range ruleList {
		pos, err := strconv.Atoi(strings.TrimSpace(startList[k]))
		if err != nil {
			return nil, nil, fmt.Errorf("start token %d: %w", k, err)
		}
		switch {
		case types.Rule(rule).IsPhrase():
			phrase = append(phrase, pos)
		case types.Rule(rule).IsChange():
			change = append(change, pos)
		}
	}
	return phrase, change, nil
}

// Entities splits entities into phrase and change start positions.
func Entities(entities []types.Entity) ([]int, []int) {
	var phrase, change []int
	for _, entity := range entities {
		switch {
		case entity.Rule.IsPhrase():
			phrase = append(phrase, entity.Start)
		case entity.Rule.IsChange():
			change = append(change, entity.Start)
		}
	}
	return phrase, change
}
