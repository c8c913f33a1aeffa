package importer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into an ASCII base letter plus marks.
var ligatures = strings.NewReplacer(
	"ß", "ss",
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"Ø", "O", "ø", "o",
	"Ł", "L", "ł", "l",
	"Đ", "D", "đ", "d",
	"Þ", "TH", "þ", "th",
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// ASCIIHolder transliterates an account holder name to plain ASCII and
// strips every character that is not a word character or whitespace.
// "Jürgen Müller-Lüdenscheid" becomes "Jurgen MullerLudenscheid".
func ASCIIHolder(name string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	s, _, err := transform.String(t, ligatures.Replace(name))
	if err != nil {
		s = strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return -1
			}
			return r
		}, name)
	}
	return nonWord.ReplaceAllString(s, "")
}
