// Package token implements the stateless booking token codec. A token
// carries a slot's start/end instants and the organizer identity, encoded so
// it can travel inside an email link without any datastore lookup on either
// side. Staleness is not encoded; the confirmation workflow re-checks live
// availability instead.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// separator joins the payload fields. It is not a legal character in an
// email address, so a validated identity can never collide with it.
const separator = "|"

// ErrInvalidToken is returned when a token cannot be decoded. Tokens pass
// through email clients and redirect chains that may pad, trim or re-encode
// them, so decoding is a hard validation boundary.
var ErrInvalidToken = errors.New("invalid booking token")

// Slot is the decoded payload of a booking token.
type Slot struct {
	Start    time.Time
	End      time.Time
	Identity string
}

// Encode packs a slot into an opaque URL-safe string.
func Encode(start, end time.Time, identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("token: identity must not be empty")
	}
	if strings.Contains(identity, separator) {
		return "", fmt.Errorf("token: identity %q contains reserved separator", identity)
	}

	payload := strconv.FormatInt(start.UnixMilli(), 10) + separator +
		strconv.FormatInt(end.UnixMilli(), 10) + separator +
		identity

	return base64.RawURLEncoding.EncodeToString([]byte(payload)), nil
}

// Decode unpacks a token produced by Encode. Whitespace and base64 padding
// added in transit are tolerated; anything else fails with ErrInvalidToken.
func Decode(tok string) (Slot, error) {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimRight(tok, "=")
	if tok == "" {
		return Slot{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		// Some intermediaries rewrite the URL-safe alphabet back to standard base64.
		raw, err = base64.RawStdEncoding.DecodeString(tok)
		if err != nil {
			return Slot{}, ErrInvalidToken
		}
	}

	parts := strings.Split(string(raw), separator)
	if len(parts) != 3 {
		return Slot{}, ErrInvalidToken
	}

	startMilli, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Slot{}, ErrInvalidToken
	}
	endMilli, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Slot{}, ErrInvalidToken
	}
	if parts[2] == "" {
		return Slot{}, ErrInvalidToken
	}

	return Slot{
		Start:    time.UnixMilli(startMilli).UTC(),
		End:      time.UnixMilli(endMilli).UTC(),
		Identity: parts[2],
	}, nil
}
