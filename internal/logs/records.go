package logs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Latest returns the most recently modified file in dir matching pattern,
// or "" when there is none.
func Latest(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("glob run logs: %w", err)
	}
	var (
		newest string
		when   time.Time
	)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(when) || (info.ModTime().Equal(when) && path > newest) {
			newest, when = path, info.ModTime()
		}
	}
	return newest, nil
}

// Record is one decoded JSON log line.
type Record struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   map[string]any
}

var reservedKeys = map[string]bool{"ts": true, "level": true, "msg": true, "source": true}

// ParseRecord decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseRecord(line string) (Record, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, false
	}
	rec := Record{Attrs: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts":
			if s, ok := value.(string); ok {
				rec.Time, _ = time.Parse(time.RFC3339, s)
			}
		case "level":
			rec.Level, _ = value.(string)
		case "msg":
			rec.Message, _ = value.(string)
		}
		if !reservedKeys[key] {
			rec.Attrs[key] = value
		}
	}
	return rec, true
}

// Matches reports whether the record carries attribute key with value.
func (r Record) Matches(key, value string) bool {
	if value == "" {
		return true
	}
	got, ok := r.Attrs[key]
	return ok && fmt.Sprint(got) == value
}

// Format renders the record as "15:04:05 LEVEL msg key=value ...", with
// attributes sorted by key.
func (r Record) Format() string {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(r.Level), r.Message)
	keys := make([]string, 0, len(r.Attrs))
	for key := range r.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := fmt.Sprint(r.Attrs[key])
		if strings.ContainsAny(value, " \t") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(&b, " %s=%s", key, value)
	}
	return b.String()
}
