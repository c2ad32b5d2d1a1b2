package roles

import (
	"sort"
	"strings"

	"github.com/biter777/countries"
)

// Countries is the default code/name table. It satisfies verification.CountryLookup.
type Countries struct{}

// Name returns the display name for an alpha-2 code.
func (Countries) Name(code string) (string, bool) {
	return CountryName(code)
}

// Code resolves a code or a display name to an alpha-2 code.
func (Countries) Code(input string) (string, bool) {
	return CountryCode(input)
}

// lookupAlpha2 only accepts a two letter code that the ISO table knows.
func lookupAlpha2(code string) (countries.CountryCode, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return countries.Unknown, false
	}
	c := countries.ByName(code)
	if c == countries.Unknown || c.Alpha2() != code {
		return countries.Unknown, false
	}
	return c, true
}

// CountryName returns the display name for an alpha-2 code (case-insensitive).
func CountryName(code string) (string, bool) {
	c, ok := lookupAlpha2(code)
	if !ok {
		return "", false
	}
	return c.String(), true
}

// CountryCode accepts an alpha-2 or alpha-3 code or an English country name
// and returns the alpha-2 code.
func CountryCode(input string) (string, bool) {
	in := strings.TrimSpace(input)
	if in == "" {
		return "", false
	}
	c := countries.ByName(in)
	if c == countries.Unknown || !c.IsValid() {
		return "", false
	}
	return c.Alpha2(), true
}

// CountryCodes returns every known alpha-2 code in sorted order.
func CountryCodes() []string {
	all := countries.All()
	codes := make([]string, 0, len(all))
	for _, c := range all {
		if code := c.Alpha2(); len(code) == 2 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}
