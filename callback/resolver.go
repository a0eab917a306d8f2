// Package callback resolves redirect landings from out-of-band identity
// flows (email links, invitations, OAuth returns) into navigation outcomes.
// Resolution never raises past its boundary: every request produces a
// CallbackOutcome with a navigable redirect or an explicit marker.
package callback

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-authflow/core"
	"github.com/goliatone/go-authflow/session"
	"github.com/goliatone/go-authflow/vault"
	glog "github.com/goliatone/go-logger/glog"
)

// Bootstrapper is the narrow slice of the bootstrap coordinator the OAuth
// signup branch invokes redundantly after verification.
type Bootstrapper interface {
	Ensure(ctx context.Context, credential string)
}

type ResolverDeps struct {
	Config       core.Config
	Gateway      core.IdentityGateway
	Sessions     *session.Store
	Vault        *vault.Vault
	Teams        *TeamDirectory
	Bootstrapper Bootstrapper
	Logger       core.Logger
	Metrics      core.MetricsRecorder
}

type Resolver struct {
	cfg          core.Config
	gateway      core.IdentityGateway
	sessions     *session.Store
	vault        *vault.Vault
	teams        *TeamDirectory
	bootstrapper Bootstrapper
	logger       core.Logger
	metrics      core.MetricsRecorder
}

func NewResolver(deps ResolverDeps) (*Resolver, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("callback: gateway is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("callback: session store is required")
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &Resolver{
		cfg:          deps.Config,
		gateway:      deps.Gateway,
		sessions:     deps.Sessions,
		vault:        deps.Vault,
		teams:        deps.Teams,
		bootstrapper: deps.Bootstrapper,
		logger:       glog.Ensure(deps.Logger),
		metrics:      metrics,
	}, nil
}

// HandleCallback dispatches one landed redirect. It never panics past this
// boundary and never returns an error: failures become failed outcomes.
func (r *Resolver) HandleCallback(ctx context.Context, req core.CallbackRequest) (outcome core.CallbackOutcome) {
	if r == nil {
		return core.CallbackOutcome{Success: true, RedirectTo: "/"}
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("callback resolution panicked", "kind", string(req.Kind), "panic", recovered)
			outcome = core.CallbackOutcome{
				Success:    false,
				Error:      "An unexpected error occurred",
				ErrorCode:  core.AuthErrorInternal,
				RedirectTo: r.signIn().Build(),
			}
		}
		r.metrics.IncCounter(ctx, "authflow.callback.resolved", 1, map[string]string{
			"kind":    string(req.Kind),
			"success": fmt.Sprintf("%t", outcome.Success),
		})
	}()

	req.Token = strings.TrimSpace(req.Token)

	switch req.Kind {
	case core.CallbackKindSignup:
		return r.resolveSignup(ctx, req)
	case core.CallbackKindDeleteUser:
		return r.resolveDeleteUser(ctx, req)
	case core.CallbackKindResetPassword:
		return r.resolveResetPassword(req)
	case core.CallbackKindInvite:
		return r.resolveInvite(ctx, req)
	case core.CallbackKindConfirmChangeEmail:
		return r.resolveConfirmChangeEmail(ctx, req)
	case core.CallbackKindVerifyChangeEmail:
		return r.resolveVerifyChangeEmail(ctx, req)
	default:
		return core.CallbackOutcome{Success: true, RedirectTo: r.defaultRedirect()}
	}
}

func (r *Resolver) resolveSignup(ctx context.Context, req core.CallbackRequest) core.CallbackOutcome {
	if req.Token == "" {
		return core.CallbackOutcome{
			Success:    false,
			Error:      "Token is required",
			ErrorCode:  core.AuthErrorBadInput,
			RedirectTo: r.linkExpired(core.CallbackKindSignup).Build(),
		}
	}

	if err := r.gateway.VerifyEmailToken(ctx, req.Token, ""); err != nil {
		return r.verificationFailure(ctx, core.CallbackKindSignup, err, true)
	}

	if r.sessions.IsAuthenticated() {
		r.sessions.UpdateUser(core.SessionPatch{EmailVerified: core.BoolPatch(true)})
	}
	if req.Options.IsNewUser && r.bootstrapper != nil && r.vault.Has() {
		r.bootstrapper.Ensure(ctx, r.vault.Get())
	}
	return core.CallbackOutcome{Success: true, RedirectTo: r.defaultRedirect()}
}

func (r *Resolver) resolveDeleteUser(ctx context.Context, req core.CallbackRequest) core.CallbackOutcome {
	if !r.sessions.IsAuthenticated() {
		return core.CallbackOutcome{
			Success:    false,
			NeedsLogin: true,
			Data:       map[string]any{"token": req.Token},
		}
	}

	if err := r.gateway.ConfirmDeletion(ctx, req.Token); err != nil {
		return r.verificationFailure(ctx, core.CallbackKindDeleteUser, err, true)
	}

	email := strings.TrimSpace(req.Options.UserEmail)
	if email == "" {
		if snapshot := r.sessions.Snapshot(); snapshot.User != nil {
			email = snapshot.User.Email
		}
	}
	return core.CallbackOutcome{
		Success: true,
		RedirectTo: core.RedirectTarget{
			Path:  r.cfg.DeleteSuccessPath,
			Lang:  r.cfg.Lang,
			Email: email,
		}.Build(),
	}
}

func (r *Resolver) resolveResetPassword(req core.CallbackRequest) core.CallbackOutcome {
	target := core.RedirectTarget{
		Path:  r.cfg.ResetPasswordPath,
		Lang:  r.cfg.Lang,
		Token: req.Token,
	}
	return core.CallbackOutcome{Success: true, RedirectTo: target.Build()}
}

func (r *Resolver) resolveInvite(ctx context.Context, req core.CallbackRequest) core.CallbackOutcome {
	if err := r.sessions.WaitLoaded(ctx); err != nil {
		return r.inviteFailed(ctx, err)
	}

	invitationID := strings.TrimSpace(req.Options.InvitationID)
	if invitationID == "" {
		return core.CallbackOutcome{
			Success:    false,
			Error:      "Invitation ID is required",
			ErrorCode:  core.AuthErrorBadInput,
			RedirectTo: r.defaultRedirect(),
		}
	}

	if !r.vault.Has() {
		return core.CallbackOutcome{
			Success:    false,
			NeedsLogin: true,
			RedirectTo: core.RedirectTarget{
				Path:         r.cfg.SignInPath,
				Lang:         r.cfg.Lang,
				InvitationID: invitationID,
			}.Build(),
		}
	}

	acceptance, err := r.gateway.AcceptInvitation(ctx, invitationID)
	if err != nil {
		return r.inviteFailed(ctx, err)
	}

	teamID := strings.TrimSpace(acceptance.Invitation.TeamID)
	if teamID == "" {
		return core.CallbackOutcome{
			Success: true,
			RedirectTo: core.RedirectTarget{
				Path:         r.cfg.DefaultRedirect,
				Lang:         r.cfg.Lang,
				Notification: core.NotificationInviteAccepted,
			}.Build(),
		}
	}

	// Compound activation: organization first, then team. Two sequential
	// remote calls; a failure between them leaves partial state.
	if organizationID := strings.TrimSpace(acceptance.Invitation.OrganizationID); organizationID != "" {
		if _, err := r.gateway.SetActiveOrganization(ctx, organizationID); err != nil {
			return r.inviteFailed(ctx, err)
		}
		r.sessions.SetActiveOrganizationID(organizationID)
	}
	if err := r.gateway.SetActiveTeam(ctx, teamID); err != nil {
		return r.inviteFailed(ctx, err)
	}
	r.sessions.SetActiveTeamID(teamID)

	teamName := ""
	core.RunAdvisory(ctx, r.logger, "callback.team_name_lookup", func(ctx context.Context) error {
		name, lookupErr := r.teams.TeamName(ctx, teamID)
		if lookupErr != nil {
			return lookupErr
		}
		teamName = name
		return nil
	})

	return core.CallbackOutcome{
		Success: true,
		RedirectTo: core.RedirectTarget{
			Path:         r.cfg.DefaultRedirect,
			Lang:         r.cfg.Lang,
			Notification: core.NotificationInviteAccepted,
			TeamName:     teamName,
		}.Build(),
	}
}

// inviteFailed swallows any invite-branch failure into a notification
// redirect. Invite errors are never surfaced as hard outcome errors.
func (r *Resolver) inviteFailed(ctx context.Context, err error) core.CallbackOutcome {
	r.logger.Warn("invitation acceptance failed", "error", err)
	r.metrics.IncCounter(ctx, "authflow.callback.invite_failed", 1, nil)
	return core.CallbackOutcome{
		Success: true,
		RedirectTo: core.RedirectTarget{
			Path:         r.cfg.DefaultRedirect,
			Lang:         r.cfg.Lang,
			Notification: core.NotificationInviteFailed,
		}.Build(),
	}
}

func (r *Resolver) resolveConfirmChangeEmail(ctx context.Context, req core.CallbackRequest) core.CallbackOutcome {
	displayEmail := r.displayEmail(req)

	success := core.CallbackOutcome{
		Success: true,
		RedirectTo: core.RedirectTarget{
			Path:  r.cfg.VerifyEmailPath,
			Lang:  r.cfg.Lang,
			Email: displayEmail,
			Kind:  core.CallbackKindConfirmChangeEmail,
		}.Build(),
	}

	if err := r.gateway.VerifyEmailToken(ctx, req.Token, r.phaseTwoCallbackURL()); err != nil {
		if core.IsTransportFailure(err) {
			// The backend may already have processed the request; redirect
			// as if it did rather than stranding the user.
			r.logger.Warn("email-change confirm hit a transport failure, assuming success", "error", err)
			return success
		}
		return r.verificationFailure(ctx, core.CallbackKindConfirmChangeEmail, err, false)
	}
	return success
}

func (r *Resolver) resolveVerifyChangeEmail(ctx context.Context, req core.CallbackRequest) core.CallbackOutcome {
	newEmail := r.displayEmail(req)

	success := func() core.CallbackOutcome {
		if r.vault.Has() {
			return core.CallbackOutcome{
				Success: true,
				RedirectTo: core.RedirectTarget{
					Path:         r.cfg.DefaultRedirect,
					Lang:         r.cfg.Lang,
					Notification: core.NotificationEmailChanged,
				}.Build(),
			}
		}
		return core.CallbackOutcome{
			Success: true,
			RedirectTo: core.RedirectTarget{
				Path:         r.cfg.SignInPath,
				Lang:         r.cfg.Lang,
				Notification: core.NotificationEmailChanged,
				Email:        newEmail,
			}.Build(),
		}
	}

	if err := r.gateway.VerifyEmailToken(ctx, req.Token, ""); err != nil {
		if core.IsTransportFailure(err) {
			r.logger.Warn("email-change verify hit a transport failure, assuming success", "error", err)
			return success()
		}
		return r.verificationFailure(ctx, core.CallbackKindVerifyChangeEmail, err, false)
	}

	if credential := r.vault.Get(); credential != "" {
		core.RunAdvisory(ctx, r.logger, "callback.session_refresh", func(ctx context.Context) error {
			refreshed, refreshErr := r.gateway.FetchSessionByToken(ctx, credential)
			if refreshErr != nil {
				return refreshErr
			}
			if refreshed != nil {
				r.sessions.SetAuthenticated(refreshed)
			}
			return nil
		})
		// An email change invalidates trust in a previously linked OAuth
		// identity from the configured provider.
		core.RunAdvisory(ctx, r.logger, "callback.unlink_provider", func(ctx context.Context) error {
			return r.unlinkProviderAccount(ctx, credential)
		})
	}
	return success()
}

func (r *Resolver) unlinkProviderAccount(ctx context.Context, credential string) error {
	provider := strings.TrimSpace(r.cfg.UnlinkProvider)
	if provider == "" {
		return nil
	}
	accounts, err := r.gateway.ListLinkedAccounts(ctx, credential)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if account.ProviderID != provider {
			continue
		}
		return r.gateway.UnlinkAccount(ctx, provider, account.AccountID, credential)
	}
	return nil
}

// verificationFailure classifies a gateway rejection. Expired or invalid
// credentials land on the link-expired page; when forceSignOut is set the
// local session is torn down first. Everything else lands on sign-in with
// the provider code attached.
func (r *Resolver) verificationFailure(ctx context.Context, kind core.CallbackKind, err error, forceSignOut bool) core.CallbackOutcome {
	code := core.ErrorCode(err)
	if core.IsExpiredCredential(err) {
		if forceSignOut {
			core.RunAdvisory(ctx, r.logger, "callback.force_sign_out", r.gateway.SignOut)
			r.sessions.ClearAuth(ctx)
		}
		return core.CallbackOutcome{
			Success:    false,
			Error:      err.Error(),
			ErrorCode:  core.AuthErrorLinkExpired,
			RedirectTo: r.linkExpired(kind).Build(),
		}
	}
	return core.CallbackOutcome{
		Success:    false,
		Error:      err.Error(),
		ErrorCode:  code,
		RedirectTo: r.signIn().Build(),
	}
}

// displayEmail decodes the token's embedded email claim for display only.
// The decoded value never feeds an authorization decision.
func (r *Resolver) displayEmail(req core.CallbackRequest) string {
	if email := core.DecodeEmailClaim(req.Token); email != "" {
		return email
	}
	return strings.TrimSpace(req.Options.NewEmail)
}

func (r *Resolver) phaseTwoCallbackURL() string {
	target := core.RedirectTarget{
		Path: r.cfg.CallbackPath,
		Lang: r.cfg.Lang,
		Kind: core.CallbackKindVerifyChangeEmail,
	}.Build()
	return strings.TrimRight(strings.TrimSpace(r.cfg.BaseURL), "/") + target
}

func (r *Resolver) linkExpired(kind core.CallbackKind) core.RedirectTarget {
	return core.RedirectTarget{
		Path: r.cfg.LinkExpiredPath,
		Lang: r.cfg.Lang,
		Kind: kind,
	}
}

func (r *Resolver) signIn() core.RedirectTarget {
	return core.RedirectTarget{Path: r.cfg.SignInPath, Lang: r.cfg.Lang}
}

func (r *Resolver) defaultRedirect() string {
	return core.RedirectTarget{Path: r.cfg.DefaultRedirect}.Build()
}
