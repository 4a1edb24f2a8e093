package orchestrator

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	hashiuuid "github.com/hashicorp/go-uuid"
)

// NewSessionID generates a ses_<12 hex chars> identifier (48 bits of
// entropy), the handle a create-session job returns to its caller.
func NewSessionID() (string, error) {
	b, err := hashiuuid.GenerateRandomBytes(6)
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return "ses_" + hex.EncodeToString(b), nil
}

// NewUsername generates a gk_<12 hex chars> ephemeral principal name,
// matching provider.ValidateEphemeralName's pattern and length bound.
func NewUsername() (string, error) {
	b, err := hashiuuid.GenerateRandomBytes(6)
	if err != nil {
		return "", fmt.Errorf("generating username: %w", err)
	}
	return "gk_" + hex.EncodeToString(b), nil
}

// NewPassword generates a 24-character, base64-encoded password from 18
// random bytes (144 bits of entropy, comfortably over the 16-byte floor).
func NewPassword() (string, error) {
	b, err := hashiuuid.GenerateRandomBytes(18)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
