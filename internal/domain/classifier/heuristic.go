package classifier

import (
	"regexp"
	"strings"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

type keywordRule struct {
	category types.Category
	re       *regexp.Regexp
}

func words(ws ...string) *regexp.Regexp {
	quoted := make([]string, len(ws))
	for i, w := range ws {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Rules are evaluated in order; the first match wins.
var keywordRules = []keywordRule{
	{types.Math, words("calculate", "equation", "solve", "algebra", "geometry", "math", "mathematics", "integral", "derivative", "percent", "percentage")},
	{types.Math, regexp.MustCompile(`\d+\s*[+*×÷^]\s*\d+`)},
	// Dates, ranges and fractions like 1969-07-20, 1914-1918 or 9/11 need spaced operators.
	{types.Math, regexp.MustCompile(`\d+\s+[-/xX]\s+\d+`)},
	{types.Math, words("hex", "hexadecimal", "binary", "decimal", "octal")},
	{types.Code, words("code", "python", "javascript", "golang", "program", "function", "class", "def", "algorithm", "compile", "bug", "sql")},
	{types.Creative, words("poem", "story", "haiku", "lyrics", "creative", "fiction", "write a song")},
	{types.Business, words("business", "market", "strategy", "sales", "profit", "revenue", "company", "startup", "pricing")},
	{types.Analysis, words("analyze", "analyse", "analysis", "compare", "evaluate", "pros and cons", "trade-off", "tradeoff", "assess")},
	{types.Knowledge, words("what is", "what happened", "who was", "explain", "history", "science", "biology", "chemistry", "physics", "dna", "photosynthesis")},
}

// Heuristic labels text by ordered keyword matching.
func Heuristic(text string) (types.Category, bool) {
	for _, r := range keywordRules {
		if r.re.MatchString(text) {
			return r.category, true
		}
	}
	return "", false
}
