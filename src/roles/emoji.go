package roles

import (
	"strings"

	"github.com/kyokomi/emoji/v2"
)

// flagPrefix names the built-in flag shortcodes, flag_<alpha-2>, which cover
// every ISO country even where gemoji has no alias for it.
const flagPrefix = "flag_"

// FlagGlyph returns the flag emoji for an alpha-2 code, or "" when unknown.
func FlagGlyph(code string) string {
	c, ok := lookupAlpha2(code)
	if !ok {
		return ""
	}
	return c.Emoji()
}

// Emoji looks up a glyph by gemoji shortcode or by flag_<alpha-2>.
// Surrounding colons are ignored.
func Emoji(shortcode string) (string, bool) {
	key := strings.Trim(strings.TrimSpace(shortcode), ":")
	if key == "" {
		return "", false
	}
	lower := strings.ToLower(key)

	if code, ok := strings.CutPrefix(lower, flagPrefix); ok && len(code) == 2 {
		glyph := FlagGlyph(code)
		return glyph, glyph != ""
	}

	codes := emoji.CodeMap()
	for _, k := range []string{lower, key} {
		if glyph := strings.TrimSpace(codes[":"+k+":"]); glyph != "" {
			return glyph, true
		}
	}
	return "", false
}
