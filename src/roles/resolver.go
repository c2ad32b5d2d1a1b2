package roles

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoEmojiForCountry is matched by every NoEmojiError.
var ErrNoEmojiForCountry = errors.New("no emoji for country")

// NoEmojiError names the country whose shortcode has no glyph.
type NoEmojiError struct {
	Country   string
	Shortcode string
}

func (e *NoEmojiError) Error() string {
	return fmt.Sprintf("could not get emoji from country: %s (shortcode %q)", e.Country, e.Shortcode)
}

func (e *NoEmojiError) Is(target error) bool { return target == ErrNoEmojiForCountry }

// Shortcode derives the emoji key for a country display name.
func Shortcode(country string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(country)), " ", "_")
}

// RoleNameFor returns "<country> <flag>" for a country display name. Overrides map a
// derived shortcode to the shortcode that should be looked up instead.
func RoleNameFor(country string, overrides map[string]string) (string, error) {
	code := Shortcode(country)
	if override, ok := overrides[code]; ok && strings.TrimSpace(override) != "" {
		code = override
	}

	glyph, ok := Emoji(code)
	if !ok {
		return "", &NoEmojiError{Country: country, Shortcode: code}
	}
	return strings.TrimSpace(country) + " " + glyph, nil
}
