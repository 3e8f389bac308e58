package types

import "strings"

type Rule string

const (
	RulePhrase         Rule = "phrase"
	RulePhraseCompound Rule = "phrase_compound"
	RuleChange         Rule = "change"
)

func (rule Rule) IsPhrase() bool {
	return strings.Contains(string(rule), string(RulePhrase))
}

func (rule Rule) IsChange() bool {
	return strings.Contains(string(rule), string(RuleChange))
}

type Entity struct {
	TokenSpan
	Rule    Rule
	Text    string
	Context ContextVector
}
