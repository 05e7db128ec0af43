package mediaid_test

import (
	"errors"
	"strings"
	"testing"

	"tunegrab/internal/mediaid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    mediaid.ID
		wantErr string
	}{
		{name: "bare", raw: "BV1xx411c7mD", want: "BV1xx411c7mD"},
		{name: "padded", raw: "  BV1xx411c7mD\n", want: "BV1xx411c7mD"},
		{name: "url", raw: "https://www.bilibili.com/video/BV1xx411c7mD/?spm_id_from=333", want: "BV1xx411c7mD"},
		{name: "mobile url", raw: "https://m.bilibili.com/video/BV1xx411c7mD", want: "BV1xx411c7mD"},
		{name: "schemeless url", raw: "www.bilibili.com/video/BV1xx411c7mD", want: "BV1xx411c7mD"},
		{name: "empty", raw: "   ", wantErr: "empty"},
		{name: "prefix", raw: "AV1xx411c7mD", wantErr: `must start with "BV"`},
		{name: "lowercase prefix", raw: "bv1xx411c7mD", wantErr: `must start with "BV"`},
		{name: "short", raw: "BV123", wantErr: "must be 12 characters, got 5"},
		{name: "long", raw: "BV1xx411c7mDD", wantErr: "must be 12 characters"},
		{name: "symbols", raw: "BV1xx411c7m!", wantErr: "ASCII letters and digits"},
		{name: "unicode", raw: "BV1xx411c7mé", wantErr: "must be 12 characters"},
		{name: "other host", raw: "https://example.com/video/BV1xx411c7mD", wantErr: "unsupported host"},
		{name: "no video segment", raw: "https://space.bilibili.com/12345", wantErr: "no /video/<id> segment"},
		{name: "bad url code", raw: "https://www.bilibili.com/video/av170001", wantErr: "url video segment"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mediaid.Parse(tc.raw)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !errors.Is(err, mediaid.ErrRejected) {
					t.Fatalf("expected ErrRejected, got %v", err)
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected %q in %q", tc.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	for _, raw := range []string{"BV1xx411c7mD", " https://www.bilibili.com/video/BV1xx411c7mD ", "junk"} {
		first, err1 := mediaid.Parse(raw)
		second, err2 := mediaid.Parse(raw)
		if first != second || (err1 == nil) != (err2 == nil) {
			t.Fatalf("Parse(%q) not stable: %q/%v vs %q/%v", raw, first, err1, second, err2)
		}
		if err1 == nil {
			again, err := mediaid.Parse(first.String())
			if err != nil || again != first {
				t.Fatalf("re-parsing canonical %q gave %q, %v", first, again, err)
			}
		}
	}
}

func TestCollectDeduplicatesAndReportsRejections(t *testing.T) {
	ids, rejected := mediaid.Collect([]string{
		"BV1xx411c7mD",
		"bad",
		"https://www.bilibili.com/video/BV1xx411c7mD",
		"BV1GJ411x7h7",
		" BV1xx411c7mD ",
		"",
	})
	if len(ids) != 2 || ids[0] != "BV1xx411c7mD" || ids[1] != "BV1GJ411x7h7" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejections, got %v", rejected)
	}
	if rejected[0].Raw != "bad" || rejected[0].Reason == "" {
		t.Fatalf("unexpected rejection %+v", rejected[0])
	}
	if rejected[1].Reason != "empty" {
		t.Fatalf("expected empty reason, got %+v", rejected[1])
	}
}

func TestCollectEmpty(t *testing.T) {
	ids, rejected := mediaid.Collect(nil)
	if len(ids) != 0 || len(rejected) != 0 {
		t.Fatalf("expected nothing, got %v %v", ids, rejected)
	}
}

func TestURL(t *testing.T) {
	id := mediaid.ID("BV1xx411c7mD")
	if got := id.URL(""); got != "https://www.bilibili.com/video/BV1xx411c7mD" {
		t.Fatalf("unexpected default url %q", got)
	}
	if got := id.URL("https://mirror.example/v/%s"); got != "https://mirror.example/v/BV1xx411c7mD" {
		t.Fatalf("unexpected custom url %q", got)
	}
}

func TestValid(t *testing.T) {
	if !mediaid.Valid("BV1xx411c7mD") || mediaid.Valid("BV") {
		t.Fatal("Valid disagrees with Parse")
	}
}
