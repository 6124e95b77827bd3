// Package id generates compact, URL-safe unique identifiers.
//
// Identifiers are UUIDv4 bytes rendered as lowercase base32 without padding,
// yielding a fixed 26-character string that sorts and copies cleanly in logs,
// URLs, and database keys.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new 26-character lowercase base32 identifier.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}
