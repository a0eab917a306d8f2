// Package gateway implements the remote identity-provider contract over
// REST. Every network operation this subsystem performs goes through here;
// credentials are attached as opaque bearer tokens and never inspected.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-authflow/core"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 4 << 20 // 4 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialSource supplies the current bearer credential. The vault
// satisfies it.
type CredentialSource interface {
	Get() string
}

type HTTPGatewayDeps struct {
	BaseURL     string
	Client      HTTPDoer
	Credentials CredentialSource

	// OnUnauthorized fires when the remote side rejects the active
	// credential with a 401, before the error is returned.
	OnUnauthorized func(ctx context.Context)

	Logger               core.Logger
	MaxResponseBodyBytes int64
}

type HTTPGateway struct {
	baseURL        string
	client         HTTPDoer
	credentials    CredentialSource
	onUnauthorized func(ctx context.Context)
	logger         core.Logger
	maxBodyBytes   int64
}

func NewHTTPGateway(deps HTTPGatewayDeps) (*HTTPGateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway: base url is required")
	}
	client := deps.Client
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	maxBodyBytes := deps.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultResponseBodyLimit
	}
	return &HTTPGateway{
		baseURL:        baseURL,
		client:         client,
		credentials:    deps.Credentials,
		onUnauthorized: deps.OnUnauthorized,
		logger:         glog.Ensure(deps.Logger),
		maxBodyBytes:   maxBodyBytes,
	}, nil
}

type wireUser struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	EmailVerified        bool      `json:"emailVerified"`
	Name                 string    `json:"name"`
	Image                string    `json:"image"`
	Role                 string    `json:"role"`
	OrganizationID       string    `json:"organizationId"`
	TeamID               string    `json:"teamId"`
	ActiveOrganizationID string    `json:"activeOrganizationId"`
	ActiveTeamID         string    `json:"activeTeamId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (u *wireUser) toSession() *core.Session {
	if u == nil {
		return nil
	}
	return &core.Session{
		ID:                     u.ID,
		Email:                  u.Email,
		EmailVerified:          u.EmailVerified,
		Name:                   u.Name,
		Image:                  u.Image,
		Role:                   u.Role,
		InherentOrganizationID: u.OrganizationID,
		InherentTeamID:         u.TeamID,
		ActiveOrganizationID:   u.ActiveOrganizationID,
		ActiveTeamID:           u.ActiveTeamID,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (g *HTTPGateway) VerifyEmailToken(ctx context.Context, token string, callbackURL string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return goerrors.New("gateway: token is required", goerrors.CategoryBadInput).
			WithTextCode(core.AuthErrorBadInput)
	}
	payload := map[string]string{"token": token}
	if callbackURL = strings.TrimSpace(callbackURL); callbackURL != "" {
		payload["callbackURL"] = callbackURL
	}
	return g.do(ctx, http.MethodPost, "/auth/verify-email", payload, nil, "")
}

func (g *HTTPGateway) ConfirmDeletion(ctx context.Context, token string) error {
	return g.do(ctx, http.MethodPost, "/auth/delete-user/confirm", map[string]string{"token": strings.TrimSpace(token)}, nil, "")
}

func (g *HTTPGateway) EnsureCompanionResources(ctx context.Context, credential string) error {
	return g.do(ctx, http.MethodPost, "/auth/bootstrap", nil, nil, credential)
}

func (g *HTTPGateway) FetchSessionByToken(ctx context.Context, token string) (*core.Session, error) {
	var envelope struct {
		User *wireUser `json:"user"`
	}
	if err := g.do(ctx, http.MethodGet, "/auth/session", nil, &envelope, token); err != nil {
		return nil, err
	}
	return envelope.User.toSession(), nil
}

func (g *HTTPGateway) SetActiveOrganization(ctx context.Context, organizationID string) (core.Organization, error) {
	var out core.Organization
	err := g.do(ctx, http.MethodPost, "/organizations/active", map[string]string{"organizationId": organizationID}, &out, "")
	return out, err
}

func (g *HTTPGateway) SetActiveTeam(ctx context.Context, teamID string) error {
	return g.do(ctx, http.MethodPost, "/teams/active", map[string]string{"teamId": teamID}, nil, "")
}

func (g *HTTPGateway) AcceptInvitation(ctx context.Context, invitationID string) (core.InvitationAcceptance, error) {
	var out core.InvitationAcceptance
	err := g.do(ctx, http.MethodPost, "/invitations/"+strings.TrimSpace(invitationID)+"/accept", nil, &out, "")
	return out, err
}

func (g *HTTPGateway) ListUserTeams(ctx context.Context) ([]core.Team, error) {
	var out []core.Team
	if err := g.do(ctx, http.MethodGet, "/teams", nil, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *HTTPGateway) ListLinkedAccounts(ctx context.Context, credential string) ([]core.Account, error) {
	var out []core.Account
	if err := g.do(ctx, http.MethodGet, "/auth/accounts", nil, &out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *HTTPGateway) UnlinkAccount(ctx context.Context, provider string, accountID string, credential string) error {
	payload := map[string]string{"providerId": provider, "accountId": accountID}
	return g.do(ctx, http.MethodPost, "/auth/accounts/unlink", payload, nil, credential)
}

func (g *HTTPGateway) SignOut(ctx context.Context) error {
	return g.do(ctx, http.MethodPost, "/auth/sign-out", nil, nil, "")
}

// do executes one JSON request. An empty credential falls back to the
// configured credential source; requests without any credential go out
// unauthenticated.
func (g *HTTPGateway) do(ctx context.Context, method string, path string, payload any, out any, credential string) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("gateway: http gateway is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "gateway: encode request payload")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "gateway: create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential = strings.TrimSpace(credential); credential == "" && g.credentials != nil {
		credential = strings.TrimSpace(g.credentials.Get())
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return core.NewTransportError(err, "gateway: execute request")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, g.maxBodyBytes+1))
	if err != nil {
		return core.NewTransportError(err, "gateway: read response body")
	}
	if int64(len(raw)) > g.maxBodyBytes {
		return core.NewTransportError(nil, "gateway: response body exceeds limit")
	}

	if res.StatusCode >= http.StatusBadRequest {
		return g.remoteError(ctx, res.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryExternal, "gateway: decode response").
				WithCode(http.StatusBadGateway)
		}
	}
	return nil
}

// remoteError converts a non-2xx response into a rich error carrying the
// provider's {code, message} envelope when one is present.
func (g *HTTPGateway) remoteError(ctx context.Context, status int, raw []byte) error {
	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &envelope)

	message := strings.TrimSpace(envelope.Message)
	if message == "" {
		message = fmt.Sprintf("gateway: remote returned status %d", status)
	}

	if status == http.StatusUnauthorized && g.onUnauthorized != nil {
		g.onUnauthorized(ctx)
	}

	err := goerrors.New(message, categoryForStatus(status)).WithCode(status)
	if code := strings.TrimSpace(envelope.Code); code != "" {
		err = err.WithTextCode(code)
	} else if status == http.StatusUnauthorized {
		err = err.WithTextCode(core.AuthErrorUnauthenticated)
	}
	return err
}

func categoryForStatus(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusUnprocessableEntity:
		return goerrors.CategoryValidation
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= http.StatusInternalServerError:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryBadInput
	}
}

var _ core.IdentityGateway = (*HTTPGateway)(nil)
