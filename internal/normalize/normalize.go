package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameStripper removes the punctuation that varies freely between
// spellings of the same name: commas, periods, apostrophes, and
// quotation marks.
var nameStripper = strings.NewReplacer(
	",", "",
	".", "",
	"'", "",
	"’", "",
	`"`, "",
	"“", "",
	"”", "",
)

// diacriticFolder decomposes accented characters and drops the combining
// marks, so "JOSÉ" and "JOSE" produce the same key. Source records are
// inconsistent about accents in transcribed names.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name canonicalizes a person or entity name into a comparable key:
// uppercase, punctuation stripped, diacritics folded, internal
// whitespace collapsed, trimmed.
func Name(raw string) string {
	s := strings.ToUpper(raw)
	s = nameStripper.Replace(s)
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}
	return collapseWhitespace(s)
}

// unitMarkers are tokens that begin a unit/suite designation. The marker
// and everything after it are dropped, because the same office suite is
// written a dozen ways across filings while the street part stays stable.
var unitMarkers = map[string]bool{
	"APT":       true,
	"APARTMENT": true,
	"SUITE":     true,
	"STE":       true,
	"UNIT":      true,
	"FL":        true,
	"FLOOR":     true,
	"RM":        true,
	"ROOM":      true,
	"#":         true,
}

// addressStripper removes punctuation from addresses before tokenizing.
var addressStripper = strings.NewReplacer(
	",", " ",
	".", "",
	"'", "",
	`"`, "",
	"-", " ",
)

// Address canonicalizes a mailing address into a matching key:
// uppercase, punctuation stripped, unit/suite markers and everything
// following them dropped, whitespace collapsed. The key is used only for
// deduplication and matching; display labels keep the readable form.
func Address(raw string) string {
	s := strings.ToUpper(raw)
	s = addressStripper.Replace(s)
	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}

	fields := strings.Fields(s)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if unitMarkers[f] || strings.HasPrefix(f, "#") {
			break
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// StreetPrefix returns the first n tokens of a street name's normalized
// form, used by shared-address discovery to match "WEST 57TH STREET"
// against "W 57TH ST" records sharing the leading tokens.
func StreetPrefix(streetName string, n int) string {
	fields := strings.Fields(strings.ToUpper(addressStripper.Replace(streetName)))
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

// SurnameToken returns the last whitespace-separated token of a
// normalized person name, used as the search key for name-indexed
// contact lookups on individuals.
func SurnameToken(normalizedName string) string {
	fields := strings.Fields(normalizedName)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// collapseWhitespace reduces runs of whitespace to single spaces and trims.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
