package mediaid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrRejected marks identifiers that failed validation.
var ErrRejected = errors.New("identifier rejected")

// ID is a canonical Bilibili video identifier: "BV" followed by ten ASCII
// alphanumerics.
type ID string

var codePattern = regexp.MustCompile(`^BV[0-9A-Za-z]{10}$`)

// DefaultURLTemplate renders the canonical watch page for an ID.
const DefaultURLTemplate = "https://www.bilibili.com/video/%s"

func (id ID) String() string { return string(id) }

// URL renders the source URL for the identifier. An empty template uses
// DefaultURLTemplate.
func (id ID) URL(template string) string {
	if template == "" {
		template = DefaultURLTemplate
	}
	return fmt.Sprintf(template, string(id))
}

// RejectedError describes why a raw identifier was not accepted.
type RejectedError struct {
	Raw    string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("identifier %q rejected: %s", e.Raw, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Parse validates a raw identifier. It accepts a bare code or a Bilibili
// video page URL containing one; surrounding whitespace is ignored.
func Parse(raw string) (ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &RejectedError{Raw: raw, Reason: "empty"}
	}
	if codePattern.MatchString(trimmed) {
		return ID(trimmed), nil
	}
	if looksLikeURL(trimmed) {
		code, reason := codeFromURL(trimmed)
		if reason != "" {
			return "", &RejectedError{Raw: raw, Reason: reason}
		}
		return code, nil
	}
	return "", &RejectedError{Raw: raw, Reason: describe(trimmed)}
}

// Valid reports whether raw parses.
func Valid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

func describe(value string) string {
	switch {
	case !strings.HasPrefix(value, "BV"):
		return `must start with "BV"`
	case len(value) != 12:
		return fmt.Sprintf("must be 12 characters, got %d", len(value))
	default:
		return "must contain only ASCII letters and digits"
	}
}

func looksLikeURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.Contains(lower, "bilibili.com/")
}

func codeFromURL(value string) (ID, string) {
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", "malformed url"
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "bilibili.com" && !strings.HasSuffix(host, ".bilibili.com") {
		return "", fmt.Sprintf("unsupported host %q", parsed.Hostname())
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] != "video" {
			continue
		}
		code := segments[i+1]
		if codePattern.MatchString(code) {
			return ID(code), ""
		}
		return "", "url video segment " + describe(code)
	}
	return "", "url has no /video/<id> segment"
}

// Rejection records a raw identifier that was dropped during collection.
type Rejection struct {
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Collect validates raws in order and returns the unique accepted IDs plus
// the rejections. Different spellings of the same ID (bare code, URL,
// padded) collapse onto the first occurrence.
func Collect(raws []string) ([]ID, []Rejection) {
	ids := make([]ID, 0, len(raws))
	seen := make(map[ID]struct{}, len(raws))
	var rejected []Rejection
	for _, raw := range raws {
		id, err := Parse(raw)
		if err != nil {
			var re *RejectedError
			reason := err.Error()
			if errors.As(err, &re) {
				reason = re.Reason
			}
			rejected = append(rejected, Rejection{Raw: raw, Reason: reason})
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, rejected
}
