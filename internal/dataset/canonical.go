package dataset

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalProductName title-cases a product name: the first letter of every
// word upper case, the rest lower case. Surrounding whitespace is dropped.
// Words follow Unicode word boundaries, so a letter after a digit or an
// in-word apostrophe stays lower case ("7up", "Teh's"); Python's str.title
// would give "7Up" and "Teh'S". Datasets written with those spellings must
// be re-keyed before loading.
func CanonicalProductName(name string) string {
	// A Caser keeps state, so one is built per call.
	return cases.Title(language.Und).String(strings.TrimSpace(name))
}
