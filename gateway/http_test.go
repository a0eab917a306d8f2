package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-authflow/core"
	goerrors "github.com/goliatone/go-errors"
)

type staticCredentials struct {
	token string
}

func (s staticCredentials) Get() string { return s.token }

func newTestGateway(t *testing.T, handler http.Handler, deps HTTPGatewayDeps) (*HTTPGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	deps.BaseURL = server.URL
	gateway, err := NewHTTPGateway(deps)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return gateway, server
}

func TestVerifyEmailToken_SendsTokenAndCallbackURL(t *testing.T) {
	var captured map[string]string
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/verify-email" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}), HTTPGatewayDeps{})

	if err := gateway.VerifyEmailToken(context.Background(), "tok-1", "https://app.example.com/auth/callback"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if captured["token"] != "tok-1" || captured["callbackURL"] != "https://app.example.com/auth/callback" {
		t.Fatalf("unexpected payload: %#v", captured)
	}
}

func TestVerifyEmailToken_RejectsBlankToken(t *testing.T) {
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("blank token must not reach the server")
	}), HTTPGatewayDeps{})

	err := gateway.VerifyEmailToken(context.Background(), "   ", "")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.AuthErrorBadInput {
		t.Fatalf("expected bad input code, got %v", err)
	}
}

func TestFetchSessionByToken_DecodesEnvelope(t *testing.T) {
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer cred-1" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"user@example.com","emailVerified":true,"organizationId":"org-1","teamId":"team-1"}}`))
	}), HTTPGatewayDeps{})

	user, err := gateway.FetchSessionByToken(context.Background(), "cred-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if user == nil || user.ID != "u1" || !user.EmailVerified {
		t.Fatalf("unexpected session: %+v", user)
	}
	if user.InherentOrganizationID != "org-1" || user.InherentTeamID != "team-1" {
		t.Fatalf("inherent ids did not map: %+v", user)
	}
}

func TestDo_UsesCredentialSourceFallback(t *testing.T) {
	var authorization string
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}), HTTPGatewayDeps{Credentials: staticCredentials{token: "vault-cred"}})

	if err := gateway.SignOut(context.Background()); err != nil {
		t.Fatalf("sign-out: %v", err)
	}
	if authorization != "Bearer vault-cred" {
		t.Fatalf("expected vault credential, got %q", authorization)
	}
}

func TestRemoteError_DecodesEnvelope(t *testing.T) {
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_TOKEN","message":"Invalid or expired token"}`))
	}), HTTPGatewayDeps{})

	err := gateway.VerifyEmailToken(context.Background(), "tok-1", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != "INVALID_TOKEN" || richErr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected error mapping: %+v", richErr)
	}
	if !core.IsExpiredCredential(err) {
		t.Fatalf("INVALID_TOKEN must classify as expired credential")
	}
}

func TestRemoteError_UnauthorizedFiresHook(t *testing.T) {
	hookFired := 0
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), HTTPGatewayDeps{OnUnauthorized: func(context.Context) { hookFired++ }})

	err := gateway.SignOut(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !core.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized classification, got %v", err)
	}
	if hookFired != 1 {
		t.Fatalf("expected unauthorized hook, fired %d times", hookFired)
	}
}

func TestDo_NetworkFailureIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	gateway, err := NewHTTPGateway(HTTPGatewayDeps{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}

	err = gateway.SignOut(context.Background())
	if err == nil {
		t.Fatalf("expected error against closed server")
	}
	if !core.IsTransportFailure(err) {
		t.Fatalf("expected transport classification, got %v", err)
	}
}

func TestAcceptInvitation_DecodesAcceptance(t *testing.T) {
	gateway, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invitations/inv-1/accept" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Invitation":{"ID":"inv-1","OrganizationID":"org-1","TeamID":"team-1"},"Member":{"ID":"m1"}}`))
	}), HTTPGatewayDeps{})

	acceptance, err := gateway.AcceptInvitation(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if acceptance.Invitation.TeamID != "team-1" || acceptance.Member.ID != "m1" {
		t.Fatalf("unexpected acceptance: %+v", acceptance)
	}
}
