package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"taskhub.org/internal/obs"
)

const bearerPrefix = "bearer "

// Pipeline stage names used in metrics and logs.
const (
	StageAuthenticate      = "authenticate"
	StageOrgMembership     = "org_membership"
	StageOrgCapability     = "org_capability"
	StageProjectMembership = "project_membership"
	StageProjectCapability = "project_capability"
)

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (Identity, error)
}

// Gate runs the authorization stages every protected request passes through.
// Each stage either returns an enriched context value or one of ErrUnauthorized,
// ErrForbidden or ErrNotFound; a route calls only the stages it needs, in order.
// Gate keeps no per-request state.
type Gate struct {
	tokens   AccessVerifier
	resolver *Resolver
	logger   *slog.Logger
}

// NewGate constructs a Gate. A nil logger uses the shared one.
func NewGate(tokens AccessVerifier, resolver *Resolver, logger *slog.Logger) *Gate {
	return &Gate{tokens: tokens, resolver: resolver, logger: obs.ResolveLogger(logger)}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// Authenticate extracts and verifies the bearer token in headers.
func (g *Gate) Authenticate(ctx context.Context, headers http.Header) (Identity, error) {
	token, err := BearerToken(headers.Get("Authorization"))
	if err != nil {
		g.logger.DebugContext(ctx, "authentication failed", slog.String("reason", err.Error()))
		return Identity{}, g.decide(StageAuthenticate, ErrUnauthorized)
	}
	id, err := g.tokens.VerifyAccess(ctx, token)
	if err != nil {
		return Identity{}, g.decide(StageAuthenticate, ErrUnauthorized)
	}
	return id, g.decide(StageAuthenticate, nil)
}

// RequireOrgMembership resolves the caller's membership in the organization
// named by slug or id.
func (g *Gate) RequireOrgMembership(ctx context.Context, id Identity, orgIdent string) (OrgContext, error) {
	if id.UserID == "" {
		return OrgContext{}, g.decide(StageOrgMembership, ErrUnauthorized)
	}
	org, member, err := g.resolver.ResolveOrgMembership(ctx, id.UserID, orgIdent)
	if err != nil {
		return OrgContext{}, g.decide(StageOrgMembership, err)
	}
	return OrgContext{Identity: id, Organization: org, Membership: member}, g.decide(StageOrgMembership, nil)
}

// RequireOrgCapability fails with ErrForbidden unless the caller's
// organization role grants c.
func (g *Gate) RequireOrgCapability(oc OrgContext, c OrgCapability) error {
	if !HasOrgCapability(oc.Role(), c) {
		return g.decide(StageOrgCapability, fmt.Errorf("%w: %s lacks %s", ErrForbidden, oc.Role(), c))
	}
	return g.decide(StageOrgCapability, nil)
}

// RequireProjectMembership resolves the caller's effective membership in a
// project of the organization in oc. It must follow RequireOrgMembership.
func (g *Gate) RequireProjectMembership(ctx context.Context, id Identity, oc OrgContext, projectIdent string) (ProjectContext, error) {
	if id.UserID == "" || id.UserID != oc.Membership.UserID {
		return ProjectContext{}, g.decide(StageProjectMembership, ErrForbidden)
	}
	project, membership, err := g.resolver.ResolveProjectMembership(ctx, id.UserID, oc.Membership, projectIdent)
	if err != nil {
		return ProjectContext{}, g.decide(StageProjectMembership, err)
	}
	return ProjectContext{Org: oc, Project: project, Membership: membership}, g.decide(StageProjectMembership, nil)
}

// RequireProjectCapability fails with ErrForbidden unless the caller's
// effective project role grants c.
func (g *Gate) RequireProjectCapability(pc ProjectContext, c ProjectCapability) error {
	if pc.Membership == nil || !HasProjectCapability(pc.Role(), c) {
		return g.decide(StageProjectCapability, ErrForbidden)
	}
	return g.decide(StageProjectCapability, nil)
}

// decide records the stage outcome and returns err unchanged.
func (g *Gate) decide(stage string, err error) error {
	obs.AuthzDecision(stage, Outcome(err))
	return err
}

// Outcome names the error kind of err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "allow"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
