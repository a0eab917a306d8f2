package core

import (
	"strings"
	"time"
)

// Session is the locally held identity record derived from a verified
// credential. Inherent organization/team ids are assigned once at
// provisioning and never change; the active pair is the mutable working
// context.
type Session struct {
	ID                     string
	Email                  string
	EmailVerified          bool
	Name                   string
	Image                  string
	Role                   string
	InherentOrganizationID string
	InherentTeamID         string
	ActiveOrganizationID   string
	ActiveTeamID           string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cloned := *s
	return &cloned
}

// SessionPatch carries a shallow partial update. Nil fields are left
// untouched by Apply.
type SessionPatch struct {
	Email                  *string
	EmailVerified          *bool
	Name                   *string
	Image                  *string
	Role                   *string
	InherentOrganizationID *string
	InherentTeamID         *string
	ActiveOrganizationID   *string
	ActiveTeamID           *string
}

func (p SessionPatch) Apply(s *Session) {
	if s == nil {
		return
	}
	if p.Email != nil {
		s.Email = strings.TrimSpace(*p.Email)
	}
	if p.EmailVerified != nil {
		s.EmailVerified = *p.EmailVerified
	}
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Image != nil {
		s.Image = *p.Image
	}
	if p.Role != nil {
		s.Role = *p.Role
	}
	if p.InherentOrganizationID != nil {
		s.InherentOrganizationID = strings.TrimSpace(*p.InherentOrganizationID)
	}
	if p.InherentTeamID != nil {
		s.InherentTeamID = strings.TrimSpace(*p.InherentTeamID)
	}
	if p.ActiveOrganizationID != nil {
		s.ActiveOrganizationID = strings.TrimSpace(*p.ActiveOrganizationID)
	}
	if p.ActiveTeamID != nil {
		s.ActiveTeamID = strings.TrimSpace(*p.ActiveTeamID)
	}
}

func StringPatch(value string) *string { return &value }

func BoolPatch(value bool) *bool { return &value }

type CallbackKind string

const (
	CallbackKindNone               CallbackKind = ""
	CallbackKindSignup             CallbackKind = "signup"
	CallbackKindDeleteUser         CallbackKind = "delete-user"
	CallbackKindResetPassword      CallbackKind = "reset-password"
	CallbackKindInvite             CallbackKind = "invite"
	CallbackKindConfirmChangeEmail CallbackKind = "confirm-change-email"
	CallbackKindVerifyChangeEmail  CallbackKind = "verify-change-email"
)

// ParseCallbackKind normalizes the raw query value. Unrecognized values map
// to CallbackKindNone, which always resolves to the default redirect.
func ParseCallbackKind(raw string) CallbackKind {
	switch CallbackKind(strings.TrimSpace(strings.ToLower(raw))) {
	case CallbackKindSignup:
		return CallbackKindSignup
	case CallbackKindDeleteUser:
		return CallbackKindDeleteUser
	case CallbackKindResetPassword:
		return CallbackKindResetPassword
	case CallbackKindInvite:
		return CallbackKindInvite
	case CallbackKindConfirmChangeEmail:
		return CallbackKindConfirmChangeEmail
	case CallbackKindVerifyChangeEmail:
		return CallbackKindVerifyChangeEmail
	default:
		return CallbackKindNone
	}
}

type CallbackOptions struct {
	IsNewUser    bool
	UserEmail    string
	InvitationID string
	NewEmail     string
}

type CallbackRequest struct {
	Kind    CallbackKind
	Token   string
	Options CallbackOptions
}

// CallbackOutcome is the only way a callback resolution terminates: either a
// redirect or an explicit no-redirect marker, never a raised error.
type CallbackOutcome struct {
	Success    bool
	RedirectTo string
	Error      string
	ErrorCode  string
	NeedsLogin bool
	Data       map[string]any
}

type Notification string

const (
	NotificationInviteAccepted Notification = "inviteAccepted"
	NotificationInviteFailed   Notification = "inviteFailed"
	NotificationEmailChanged   Notification = "emailChanged"
)

type Organization struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

type Team struct {
	ID             string
	OrganizationID string
	Name           string
	CreatedAt      time.Time
}

type Member struct {
	ID             string
	UserID         string
	OrganizationID string
	Role           string
}

type Invitation struct {
	ID             string
	OrganizationID string
	TeamID         string
	Email          string
	Role           string
	ExpiresAt      time.Time
}

// InvitationAcceptance is produced by the gateway and consumed once to
// decide the redirect shape.
type InvitationAcceptance struct {
	Invitation Invitation
	Member     Member
}

type Account struct {
	ID         string
	ProviderID string
	AccountID  string
}
