package auth

import "context"

type identityContextKey struct{}
type orgContextKey struct{}
type projectContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || v.UserID == "" {
		return Identity{}, false
	}
	return v, true
}

// ContextWithOrg attaches a resolved organization membership.
func ContextWithOrg(ctx context.Context, oc OrgContext) context.Context {
	return context.WithValue(ctx, orgContextKey{}, oc)
}

// OrgFromContext returns the organization membership attached by ContextWithOrg.
func OrgFromContext(ctx context.Context) (OrgContext, bool) {
	if ctx == nil {
		return OrgContext{}, false
	}
	v, ok := ctx.Value(orgContextKey{}).(OrgContext)
	return v, ok
}

// ContextWithProject attaches a resolved project membership.
func ContextWithProject(ctx context.Context, pc ProjectContext) context.Context {
	return context.WithValue(ctx, projectContextKey{}, pc)
}

// ProjectFromContext returns the project membership attached by ContextWithProject.
func ProjectFromContext(ctx context.Context) (ProjectContext, bool) {
	if ctx == nil {
		return ProjectContext{}, false
	}
	v, ok := ctx.Value(projectContextKey{}).(ProjectContext)
	return v, ok
}
