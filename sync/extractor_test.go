package sync

import (
	"testing"

	"github.com/goliatone/go-authflow/core"
)

func TestSessionFromPayload_BareSession(t *testing.T) {
	user := &core.Session{ID: "u1", Email: "a@b.co"}
	got := SessionFromPayload(user)
	if got == nil || got.ID != "u1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	got.Email = "mutated"
	if user.Email != "a@b.co" {
		t.Fatalf("extraction must clone the input")
	}
}

func TestSessionFromPayload_UserEnvelope(t *testing.T) {
	payload := map[string]any{
		"user": map[string]any{
			"id":             "u2",
			"email":          "user@example.com",
			"emailVerified":  true,
			"organizationId": "org-1",
			"teamId":         "team-1",
		},
	}
	got := SessionFromPayload(payload)
	if got == nil {
		t.Fatalf("expected session")
	}
	if !got.EmailVerified || got.InherentOrganizationID != "org-1" || got.InherentTeamID != "team-1" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionFromPayload_NestedDataEnvelope(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"user": map[string]any{
				"id":                   "u3",
				"email":                "nested@example.com",
				"activeOrganizationId": "org-2",
			},
		},
	}
	got := SessionFromPayload(payload)
	if got == nil || got.ActiveOrganizationID != "org-2" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionFromPayload_SnakeCaseFields(t *testing.T) {
	payload := map[string]any{
		"id":             "u4",
		"email":          "snake@example.com",
		"email_verified": true,
		"team_id":        "team-4",
	}
	got := SessionFromPayload(payload)
	if got == nil || !got.EmailVerified || got.InherentTeamID != "team-4" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionFromPayload_UnknownShapes(t *testing.T) {
	for _, payload := range []any{nil, 42, "session", map[string]any{"unrelated": true}} {
		if got := SessionFromPayload(payload); got != nil {
			t.Fatalf("expected nil for %#v, got %+v", payload, got)
		}
	}
}
