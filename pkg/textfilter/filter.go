// Package textfilter softens strong language in generated narration for
// tables that play at a family-friendly content rating.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rating is a table's content rating.
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG13"
	RatingR    Rating = "R"
)

// ParseRating normalises s. "PG-13" and "pg13" both give RatingPG13; an
// empty or unknown rating gives RatingR.
func ParseRating(s string) Rating {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	switch Rating(s) {
	case RatingG, RatingPG, RatingPG13:
		return Rating(s)
	default:
		return RatingR
	}
}

// Filtered reports whether narration at this rating is softened.
func (r Rating) Filtered() bool {
	return r != RatingR
}

// replacements maps strong words to tavern-friendly alternatives. Slurs have
// no in-world alternative and are censored.
var replacements = map[string]string{
	"fuck":         "blast",
	"fucking":      "blasted",
	"motherfucker": "scoundrel",
	"shit":         "dung",
	"bullshit":     "hogwash",
	"horseshit":    "hogwash",
	"shithead":     "dolt",
	"dipshit":      "dolt",
	"damn":         "curse",
	"goddamn":      "gods-cursed",
	"hell":         "blazes",
	"ass":          "rump",
	"asshole":      "knave",
	"dumbass":      "dullard",
	"jackass":      "mule",
	"smartass":     "wiseacre",
	"bitch":        "shrew",
	"bastard":      "cur",
	"crap":         "rubbish",
	"piss":         "rot",
	"dick":         "lout",
	"dickhead":     "lout",
	"prick":        "lout",
	"douche":       "lout",
	"douchebag":    "lout",
	"cock":         "[censored]",
	"pussy":        "[censored]",
	"tits":         "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"fag":          "[censored]",
	"retard":       "[censored]",
	"nigger":       "[censored]",
	"nigga":        "[censored]",
	"spic":         "[censored]",
	"chink":        "[censored]",
	"kike":         "[censored]",
}

// Filter rewrites strong language while keeping the surrounding text intact.
type Filter struct {
	re *regexp.Regexp
}

// New compiles the word list into a single case-insensitive pattern. Longer
// words come first so "asshole" wins over "ass".
func New() *Filter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return &Filter{
		re: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)(e?s)?\b`),
	}
}

// Apply returns text with every listed word, and its plural, replaced.
func (f *Filter) Apply(text string) string {
	return f.re.ReplaceAllStringFunc(text, func(match string) string {
		m := f.re.FindStringSubmatch(match)
		word, plural := m[1], m[2]
		replacement := replacements[strings.ToLower(word)]
		if plural != "" && !strings.HasPrefix(replacement, "[") && !strings.HasSuffix(replacement, "s") {
			replacement += "s"
		}
		return matchCase(word, replacement)
	})
}

// Contains reports whether text has anything Apply would change.
func (f *Filter) Contains(text string) bool {
	return f.re.MatchString(text)
}

// matchCase gives replacement the capitalisation of original.
func matchCase(original, replacement string) string {
	title := cases.Title(language.English)
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return replacement
	case title.String(strings.ToLower(original)) == original:
		return title.String(replacement)
	}

	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
