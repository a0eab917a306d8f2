package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeEmailClaim extracts the target-email claim embedded in a JWT-shaped
// token without verifying the signature. The result is display-only and must
// never feed an authorization decision; callers treat a failed decode as an
// empty string.
func DecodeEmailClaim(token string) string {
	payload, err := decodeJWTPayload(token)
	if err != nil {
		return ""
	}
	for _, claim := range []string{"newEmail", "new_email", "email"} {
		if email := strings.TrimSpace(readString(payload[claim])); email != "" {
			return email
		}
	}
	return ""
}

func decodeJWTPayload(token string) (map[string]any, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("core: invalid token format")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("core: decode token payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("core: decode token claims: %w", err)
	}
	return payload, nil
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	default:
		return ""
	}
}
