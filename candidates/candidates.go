package candidates

import (
	"text2phenotype.com/psyctx/types"
	"text2phenotype.com/psyctx/utils"
	"strings"
)

// Detected holds the comma separated phrases an upstream dictionary matcher found in a sentence.
type Detected struct {
	Phrases         string `json:"phrases"`
	PhrasesCompound string `json:"phrases_compound"`
	Changes         string `json:"changes"`
}

func (detected Detected) IsEmpty() bool {
	return detected.Phrases == "" && detected.PhrasesCompound == "" && detected.Changes == ""
}

// Generate anchors every detected phrase to each token whose lowercase form contains it.
// Entities come out ordered by source (phrase, phrase_compound, change), then phrase, then token.
func Generate(sent *types.Sentence, detected Detected) []types.Entity {
	return GenerateFromLists(
		sent,
		utils.SplitList(detected.Phrases),
		utils.SplitList(detected.PhrasesCompound),
		utils.SplitList(detected.Changes),
	)
}

func GenerateFromLists(sent *types.Sentence, phrases []string, compounds []string, changes []string) []types.Entity {
	var entities []types.Entity
	entities = appendMatches(entities, sent, types.RulePhrase, phrases)
	entities = appendMatches(entities, sent, types.RulePhraseCompound, compounds)
	entities = appendMatches(entities, sent, types.RuleChange, changes)
	return entities
}

func appendMatches(entities []types.Entity, sent *types.Sentence, rule types.Rule, phrases []string) []types.Entity {
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		for _, token := range sent.Tokens {
			if !strings.Contains(token.Lower, phrase) {
				continue
			}
			span := types.TokenSpan{Start: token.Index, End: token.Index + 1}
			entities = append(entities, types.Entity{
				TokenSpan: span,
				Rule:      rule,
				Text:      sent.SpanText(span),
			})
		}
	}
	return entities
}
