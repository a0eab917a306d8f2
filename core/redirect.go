package core

import (
	"net/url"
	"strings"
)

// RedirectTarget builds a `path?query` navigation target. The parameter set
// is closed: notification, email, teamName, token, invitationId, type, lang.
// Encoding order is fixed so outcomes are byte-stable; lang is appended only
// when the target carries at least one other parameter.
type RedirectTarget struct {
	Path         string
	Lang         string
	Notification Notification
	Email        string
	TeamName     string
	Token        string
	InvitationID string
	Kind         CallbackKind
}

func (t RedirectTarget) Build() string {
	path := strings.TrimSpace(t.Path)
	if path == "" {
		path = "/"
	}

	pairs := make([][2]string, 0, 7)
	appendPair := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		pairs = append(pairs, [2]string{key, value})
	}

	appendPair("notification", string(t.Notification))
	appendPair("email", t.Email)
	appendPair("teamName", t.TeamName)
	appendPair("token", t.Token)
	appendPair("invitationId", t.InvitationID)
	appendPair("type", string(t.Kind))
	if len(pairs) > 0 {
		appendPair("lang", t.Lang)
	}

	if len(pairs) == 0 {
		return path
	}

	var query strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(pair[0])
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(strings.TrimSpace(pair[1])))
	}
	return path + "?" + query.String()
}
