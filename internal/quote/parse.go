package quote

import (
	"regexp"
	"strconv"
	"strings"
)

// commaDecimal matches Brazilian-locale decimals, with optional dot
// thousand separators: "27,05", "1.234,56".
var commaDecimal = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d+$|^\d+,\d+$`)

// ParseCommaDecimal converts a comma-decimal string to a float64. The
// input is trimmed first; ok is false when the trimmed value does not
// match the locale pattern, in which case the caller should keep the
// original value untouched.
func ParseCommaDecimal(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if !commaDecimal.MatchString(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var diacritics = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// NormalizeFieldName canonicalizes an upstream field label: lower-case,
// diacritics stripped, each remaining non-alphanumeric character
// replaced with '_'. "Cotação" -> "cotacao", "P/L" -> "p_l".
func NormalizeFieldName(name string) string {
	s := diacritics.Replace(strings.ToLower(strings.TrimSpace(name)))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NormalizeValue converts a comma-decimal string value to float64 and
// passes everything else through verbatim.
func NormalizeValue(v any) any {
	s, isStr := v.(string)
	if !isStr {
		return v
	}
	if f, ok := ParseCommaDecimal(s); ok {
		return f
	}
	return v
}
