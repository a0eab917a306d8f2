package core

import "testing"

func TestRedirectTarget_OrdersParameters(t *testing.T) {
	got := RedirectTarget{
		Path: "/auth/link-expired",
		Lang: "us",
		Kind: CallbackKindSignup,
	}.Build()
	if got != "/auth/link-expired?type=signup&lang=us" {
		t.Fatalf("unexpected redirect: %q", got)
	}
}

func TestRedirectTarget_BarePathSkipsLang(t *testing.T) {
	got := RedirectTarget{Path: "/", Lang: "us"}.Build()
	if got != "/" {
		t.Fatalf("lang must not be appended without other parameters, got %q", got)
	}
}

func TestRedirectTarget_EmptyPathDefaultsToRoot(t *testing.T) {
	if got := (RedirectTarget{}).Build(); got != "/" {
		t.Fatalf("expected /, got %q", got)
	}
}

func TestRedirectTarget_EscapesValues(t *testing.T) {
	got := RedirectTarget{
		Path:     "/auth/callback",
		Lang:     "us",
		Email:    "user+tag@example.com",
		TeamName: "Core Team",
	}.Build()
	want := "/auth/callback?email=user%2Btag%40example.com&teamName=Core+Team&lang=us"
	if got != want {
		t.Fatalf("unexpected redirect:\n got %q\nwant %q", got, want)
	}
}

func TestRedirectTarget_FullParameterSet(t *testing.T) {
	got := RedirectTarget{
		Path:         "/sign-in",
		Lang:         "us",
		Notification: NotificationInviteAccepted,
		Email:        "a@b.co",
		TeamName:     "ops",
		Token:        "tok",
		InvitationID: "inv-1",
		Kind:         CallbackKindInvite,
	}.Build()
	want := "/sign-in?notification=inviteAccepted&email=a%40b.co&teamName=ops&token=tok&invitationId=inv-1&type=invite&lang=us"
	if got != want {
		t.Fatalf("unexpected redirect:\n got %q\nwant %q", got, want)
	}
}
