package sync

import (
	"strings"
	"time"

	"github.com/goliatone/go-authflow/core"
)

// SessionFromPayload derives a session from an externally observed raw
// payload. It is tolerant across the known envelope shapes: a bare session
// value, a {user: ...} envelope, a {session: {user: ...}} envelope, and a
// {data: {user: ...}} envelope. Unknown shapes yield nil.
func SessionFromPayload(payload any) *core.Session {
	switch typed := payload.(type) {
	case nil:
		return nil
	case *core.Session:
		return typed.Clone()
	case core.Session:
		return typed.Clone()
	case map[string]any:
		for _, key := range []string{"user", "session", "data"} {
			if nested, ok := typed[key]; ok {
				if session := SessionFromPayload(nested); session != nil {
					return session
				}
			}
		}
		return mapToSession(typed)
	default:
		return nil
	}
}

func mapToSession(raw map[string]any) *core.Session {
	id := stringField(raw, "id")
	email := stringField(raw, "email")
	if id == "" && email == "" {
		return nil
	}
	session := &core.Session{
		ID:                     id,
		Email:                  email,
		EmailVerified:          boolField(raw, "emailVerified", "email_verified"),
		Name:                   stringField(raw, "name"),
		Image:                  stringField(raw, "image"),
		Role:                   stringField(raw, "role"),
		InherentOrganizationID: stringField(raw, "organizationId", "inherentOrganizationId", "organization_id"),
		InherentTeamID:         stringField(raw, "teamId", "inherentTeamId", "team_id"),
		ActiveOrganizationID:   stringField(raw, "activeOrganizationId", "active_organization_id"),
		ActiveTeamID:           stringField(raw, "activeTeamId", "active_team_id"),
		CreatedAt:              timeField(raw, "createdAt", "created_at"),
		UpdatedAt:              timeField(raw, "updatedAt", "updated_at"),
	}
	return session
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func boolField(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		if value, ok := raw[key].(bool); ok {
			return value
		}
	}
	return false
}

func timeField(raw map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		switch value := raw[key].(type) {
		case time.Time:
			return value
		case string:
			if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
