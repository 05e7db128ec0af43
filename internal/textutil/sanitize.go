package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFileNameRunes caps sanitized file name length.
const MaxFileNameRunes = 200

// FallbackFileName is returned when nothing usable survives sanitizing.
const FallbackFileName = "unnamed"

// fileNameReplacer replaces filesystem-unsafe characters with underscores.
var fileNameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
	"[", "_",
	"]", "_",
)

// SanitizeFileName turns a media title into a single path segment.
// The input is NFC-normalized, reserved characters become underscores, control
// characters are dropped, and surrounding spaces and trailing dots are
// trimmed. The result is capped at MaxFileNameRunes and falls back to
// FallbackFileName when empty.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = trimName(name)
	if utf8.RuneCountInString(name) > MaxFileNameRunes {
		name = trimName(string([]rune(name)[:MaxFileNameRunes]))
	}
	if name == "" {
		return FallbackFileName
	}
	return name
}

func trimName(name string) string {
	return strings.TrimRight(strings.TrimSpace(name), ". ")
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
