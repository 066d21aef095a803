package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskhub.org/internal/auth"
)

// URL parameters naming the organization and project of a route.
const (
	orgParam     = "org"
	projectParam = "project"
)

// authenticate runs the bearer-token stage and stores the identity.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.gate.Authenticate(r.Context(), r.Header)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

// orgMember resolves the caller's membership in the {org} organization.
func (a *API) orgMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.IdentityFromContext(r.Context())
		oc, err := a.gate.RequireOrgMembership(r.Context(), id, chi.URLParam(r, orgParam))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithOrg(r.Context(), oc)))
	})
}

// orgCapability requires c from the resolved organization role.
func (a *API) orgCapability(c auth.OrgCapability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			oc, ok := auth.OrgFromContext(r.Context())
			if !ok {
				writeError(w, r, auth.ErrForbidden)
				return
			}
			if err := a.gate.RequireOrgCapability(oc, c); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// projectMember resolves the caller's effective membership in {project}.
func (a *API) projectMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		oc, ok := auth.OrgFromContext(r.Context())
		if !ok {
			writeError(w, r, auth.ErrForbidden)
			return
		}
		pc, err := a.gate.RequireProjectMembership(r.Context(), oc.Identity, oc, chi.URLParam(r, projectParam))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithProject(r.Context(), pc)))
	})
}

// projectCapability requires c from the effective project role.
func (a *API) projectCapability(c auth.ProjectCapability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pc, ok := auth.ProjectFromContext(r.Context())
			if !ok {
				writeError(w, r, auth.ErrForbidden)
				return
			}
			if err := a.gate.RequireProjectCapability(pc, c); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
