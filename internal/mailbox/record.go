// Package mailbox assembles mailbox records and encodes them as tokens.
//
// A record serializes to CRLF-joined Key=Value lines in a fixed field order.
// The token is that text in URL-safe base64 with the padding stripped. It is
// reversible by anyone holding it; there is no encryption or integrity check.
package mailbox

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidField = errors.New("field contains '=' or a line break")
	ErrEmptyField   = errors.New("field is empty")
	ErrMalformed    = errors.New("malformed mailbox record")
)

// Record is the flat mailbox record embedded in a token.
type Record struct {
	LockerKey    string
	SerialNumber string
	FirstName    string
	LastName     string
	Description  string
	InboxFee     string
	Class        string
}

// Field names in serialization order.
const (
	KeyLockerKey    = "LockerKey"
	KeySerialNumber = "SerialNumber"
	KeyFirstName    = "FirstName"
	KeyLastName     = "LastName"
	KeyDescription  = "Description"
	KeyInboxFee     = "InboxFee"
	KeyClass        = "Class"
)

const lineSep = "\r\n"

func (r Record) fields() [][2]string {
	return [][2]string{
		{KeyLockerKey, r.LockerKey},
		{KeySerialNumber, r.SerialNumber},
		{KeyFirstName, r.FirstName},
		{KeyLastName, r.LastName},
		{KeyDescription, r.Description},
		{KeyInboxFee, r.InboxFee},
		{KeyClass, r.Class},
	}
}

// CheckValue reports whether v can be carried in a record unchanged.
func CheckValue(v string) error {
	if v == "" {
		return ErrEmptyField
	}
	if strings.ContainsAny(v, "=\r\n") {
		return ErrInvalidField
	}
	return nil
}

// Validate checks every field of r.
func (r Record) Validate() error {
	for _, f := range r.fields() {
		if err := CheckValue(f[1]); err != nil {
			return fmt.Errorf("%s: %w", f[0], err)
		}
	}
	return nil
}

// Marshal renders r as Key=Value lines.
func Marshal(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	for i, f := range r.fields() {
		if i > 0 {
			b.WriteString(lineSep)
		}
		b.WriteString(f[0])
		b.WriteByte('=')
		b.WriteString(f[1])
	}
	return b.Bytes(), nil
}

// Unmarshal parses the output of Marshal. Every key must appear exactly
// once and in order.
func Unmarshal(data []byte) (Record, error) {
	lines := strings.Split(string(data), lineSep)

	var r Record
	targets := []*string{
		&r.LockerKey, &r.SerialNumber, &r.FirstName, &r.LastName,
		&r.Description, &r.InboxFee, &r.Class,
	}
	keys := r.fields()
	if len(lines) != len(keys) {
		return Record{}, fmt.Errorf("%w: want %d lines, got %d", ErrMalformed, len(keys), len(lines))
	}

	for i, line := range lines {
		k, v, ok := strings.Cut(line, "=")
		if !ok || k != keys[i][0] {
			return Record{}, fmt.Errorf("%w: line %d: expected key %s", ErrMalformed, i+1, keys[i][0])
		}
		if err := CheckValue(v); err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformed, k, err)
		}
		*targets[i] = v
	}

	return r, nil
}

// EncodeToken serializes r and encodes it as base64url without padding.
func EncodeToken(r Record) (string, error) {
	raw, err := Marshal(r)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeToken reverses EncodeToken. Trailing padding, if a client added
// it back, is tolerated.
func DecodeToken(token string) (Record, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(token), "="))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Unmarshal(raw)
}
