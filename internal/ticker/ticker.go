// Package ticker canonicalizes raw B3 symbol strings and classifies the
// asset category encoded in the ticker shape.
package ticker

import (
	"regexp"
	"strings"
)

// AssetClass is the security category inferred from the ticker shape.
type AssetClass string

const (
	Equity         AssetClass = "equity"
	RealEstateFund AssetClass = "real_estate_fund"
	Unit           AssetClass = "unit"
	Unknown        AssetClass = "unknown"
)

// Identity is the normalized form of a caller-supplied symbol. Computed
// once per request, never persisted.
type Identity struct {
	Raw    string
	Symbol string
	Class  AssetClass
}

var (
	validSymbol = regexp.MustCompile(`^[A-Za-z0-9.]+$`)
	equityForm  = regexp.MustCompile(`^[A-Z]{4}\d$`)
	elevenForm  = regexp.MustCompile(`^[A-Z]{3,4}11$`)
)

// unitTickers are the known dual-class unit tickers that end in "11" but
// are not real estate funds.
var unitTickers = map[string]struct{}{
	"BPAC11": {}, "KLBN11": {}, "SANB11": {}, "IGTI11": {}, "TAEE11": {},
	"ENGI11": {}, "SAPR11": {}, "ALUP11": {}, "BRBI11": {}, "DASA11": {},
	"AMAR11": {}, "AZEV11": {}, "PPLA11": {}, "PINE11": {}, "PSVM11": {},
	"RNEW11": {}, "BIOM11": {},
}

// Validate reports whether raw is usable as a ticker: non-empty and made
// only of letters, digits and dots. It never panics.
func Validate(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	return validSymbol.MatchString(raw)
}

// marketSuffixes are venue markers stripped before classification.
var marketSuffixes = []string{".SA", ".SAO"}

// Normalize upper-cases raw, strips a recognized market suffix and
// classifies the result. Classification is total: every input maps to
// exactly one class, defaulting to Unknown.
func Normalize(raw string) Identity {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	for _, suf := range marketSuffixes {
		if strings.HasSuffix(sym, suf) {
			sym = strings.TrimSuffix(sym, suf)
			break
		}
	}
	return Identity{Raw: raw, Symbol: sym, Class: Classify(sym)}
}

// Classify applies the shape rules in precedence order:
// four letters plus one digit is an equity; three or four letters plus
// the literal "11" is a unit when allow-listed, otherwise a real estate
// fund; anything else is unknown.
func Classify(symbol string) AssetClass {
	symbol = strings.ToUpper(symbol)
	switch {
	case equityForm.MatchString(symbol):
		return Equity
	case elevenForm.MatchString(symbol):
		if _, ok := unitTickers[symbol]; ok {
			return Unit
		}
		return RealEstateFund
	default:
		return Unknown
	}
}
