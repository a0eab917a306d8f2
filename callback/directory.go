package callback

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-authflow/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const teamNameCacheKeyPrefix = "authflow::team_name::v1"

// TeamDirectory resolves team display names through the gateway's team
// listing, with an optional read-through cache so repeated invite landings
// do not refetch the same listing.
type TeamDirectory struct {
	gateway core.IdentityGateway
	cache   repositorycache.CacheService
}

func NewTeamDirectory(gateway core.IdentityGateway, cacheService repositorycache.CacheService) (*TeamDirectory, error) {
	if gateway == nil {
		return nil, fmt.Errorf("callback: team directory gateway is required")
	}
	return &TeamDirectory{gateway: gateway, cache: cacheService}, nil
}

// TeamNameCacheKey returns the deterministic cache key for a team-name
// lookup: authflow::team_name::v1::<team_id> with the id URL-path escaped.
func TeamNameCacheKey(teamID string) (string, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return "", fmt.Errorf("callback: team id is required")
	}
	return teamNameCacheKeyPrefix + "::" + url.PathEscape(teamID), nil
}

// TeamName returns the display name for a team the current user belongs to.
func (d *TeamDirectory) TeamName(ctx context.Context, teamID string) (string, error) {
	if d == nil || d.gateway == nil {
		return "", fmt.Errorf("callback: team directory is not configured")
	}
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return "", fmt.Errorf("callback: team id is required")
	}
	if d.cache == nil {
		return d.fetchTeamName(ctx, teamID)
	}

	cacheKey, err := TeamNameCacheKey(teamID)
	if err != nil {
		return "", err
	}
	return repositorycache.GetOrFetch(ctx, d.cache, cacheKey, func(ctx context.Context) (string, error) {
		return d.fetchTeamName(ctx, teamID)
	})
}

// Invalidate drops a cached name, e.g. after a team rename notification.
func (d *TeamDirectory) Invalidate(ctx context.Context, teamID string) error {
	if d == nil || d.cache == nil {
		return nil
	}
	cacheKey, err := TeamNameCacheKey(teamID)
	if err != nil {
		return err
	}
	return d.cache.Delete(ctx, cacheKey)
}

func (d *TeamDirectory) fetchTeamName(ctx context.Context, teamID string) (string, error) {
	teams, err := d.gateway.ListUserTeams(ctx)
	if err != nil {
		return "", err
	}
	for _, team := range teams {
		if team.ID == teamID {
			return team.Name, nil
		}
	}
	return "", fmt.Errorf("callback: team %s not found in user listing", teamID)
}
