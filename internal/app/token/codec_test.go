package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		identity string
	}{
		{
			name:     "plain email identity",
			start:    time.Date(2026, 9, 14, 9, 30, 0, 0, time.UTC),
			end:      time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC),
			identity: "anne@haugli.no",
		},
		{
			name:     "identity with plus addressing",
			start:    time.Date(2026, 9, 15, 12, 15, 0, 0, time.UTC),
			end:      time.Date(2026, 9, 15, 12, 45, 0, 0, time.UTC),
			identity: "anne+salg@haugli.no",
		},
		{
			name:     "pre-epoch start still round-trips",
			start:    time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC),
			end:      time.Date(1969, 12, 31, 23, 30, 0, 0, time.UTC),
			identity: "x@y.z",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := Encode(tc.start, tc.end, tc.identity)
			if err != nil {
				t.Fatalf("Encode returned error: %v", err)
			}

			slot, err := Decode(tok)
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if !slot.Start.Equal(tc.start) {
				t.Errorf("start = %v, want %v", slot.Start, tc.start)
			}
			if !slot.End.Equal(tc.end) {
				t.Errorf("end = %v, want %v", slot.End, tc.end)
			}
			if slot.Identity != tc.identity {
				t.Errorf("identity = %q, want %q", slot.Identity, tc.identity)
			}
		})
	}
}

func TestDecodeToleratesTransitMangling(t *testing.T) {
	start := time.Date(2026, 9, 14, 9, 30, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	tok, err := Encode(start, end, "anne@haugli.no")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	mangled := []string{
		"  " + tok + "  ",  // whitespace trimming by mail clients
		tok + "==",         // padding re-added by a URL rewriter
		"\n" + tok + "\n",  // newline wrapping
	}

	for _, m := range mangled {
		slot, err := Decode(m)
		if err != nil {
			t.Fatalf("Decode(%q) returned error: %v", m, err)
		}
		if !slot.Start.Equal(start) || !slot.End.Equal(end) {
			t.Errorf("Decode(%q) = %v/%v, want %v/%v", m, slot.Start, slot.End, start, end)
		}
	}
}

func TestDecodeRejectsTamperedTokens(t *testing.T) {
	start := time.Date(2026, 9, 14, 9, 30, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	tok, err := Encode(start, end, "anne@haugli.no")
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	orig, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	tampered := []string{
		tok + "AAAA",
		"A" + tok,
		strings.Replace(tok, string(tok[3]), "_", 1),
	}

	for _, m := range tampered {
		if m == tok {
			continue
		}
		slot, err := Decode(m)
		if err != nil {
			continue // explicit rejection is fine
		}
		// If it still decodes, it must not silently yield the original values.
		if slot.Start.Equal(orig.Start) && slot.End.Equal(orig.End) && slot.Identity == orig.Identity {
			t.Errorf("Decode(%q) reproduced the original payload from tampered input", m)
		}
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		tok  string
	}{
		{"empty string", ""},
		{"not base64", "!!!not-base64!!!"},
		{"two fields only", encodeRaw("1757840400000|anne@haugli.no")},
		{"four fields", encodeRaw("1|2|3|4")},
		{"non-numeric start", encodeRaw("soon|1757842200000|anne@haugli.no")},
		{"non-numeric end", encodeRaw("1757840400000|later|anne@haugli.no")},
		{"empty identity", encodeRaw("1757840400000|1757842200000|")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Decode(%q) error = %v, want ErrInvalidToken", tc.tok, err)
			}
		})
	}
}

func TestEncodeRejectsReservedIdentity(t *testing.T) {
	start := time.Now()
	if _, err := Encode(start, start.Add(time.Hour), "a|b@c.d"); err == nil {
		t.Fatal("expected error for identity containing separator")
	}
	if _, err := Encode(start, start.Add(time.Hour), ""); err == nil {
		t.Fatal("expected error for empty identity")
	}
}

func encodeRaw(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}
