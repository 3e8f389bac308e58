package pipeline

import "text2phenotype.com/psyctx/candidates"

func candidatesFor(phrases string, compounds string, changes string) candidates.Detected {
	return candidates.Detected{Phrases: phrases, PhrasesCompound: compounds, Changes: changes}
}
