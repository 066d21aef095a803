package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskhub.org/internal/audit"
	"taskhub.org/internal/auth"
	"taskhub.org/internal/tenancy"
)

type createOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type renameOrgRequest struct {
	Name string `json:"name"`
}

type memberRoleRequest struct {
	Role string `json:"role"`
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addProjectMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type orgResponse struct {
	auth.Organization
	Role auth.OrgRole `json:"role"`
}

type projectResponse struct {
	auth.Project
	Role      auth.ProjectRole `json:"role"`
	Inherited bool             `json:"inherited"`
}

func (a *API) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	orgs, err := a.tenancy.ListOrganizations(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orgs == nil {
		orgs = []tenancy.OrganizationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (a *API) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	org, err := a.tenancy.CreateOrganization(r.Context(), id, tenancy.CreateOrganizationInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.created", slog.String("organization_id", org.ID))
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	oc, _ := auth.OrgFromContext(r.Context())
	writeJSON(w, http.StatusOK, orgResponse{Organization: oc.Organization, Role: oc.Role()})
}

func (a *API) handleRenameOrg(w http.ResponseWriter, r *http.Request) {
	var req renameOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	oc, _ := auth.OrgFromContext(r.Context())
	org, err := a.tenancy.RenameOrganization(r.Context(), oc, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse{Organization: org, Role: oc.Role()})
}

func (a *API) handleDeleteOrg(w http.ResponseWriter, r *http.Request) {
	oc, _ := auth.OrgFromContext(r.Context())
	if err := a.tenancy.DeleteOrganization(r.Context(), oc); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.deleted", slog.String("organization_id", oc.Organization.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	oc, _ := auth.OrgFromContext(r.Context())
	members, err := a.tenancy.ListMembers(r.Context(), oc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []tenancy.MemberDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (a *API) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req memberRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := auth.ParseOrgRole(req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	oc, _ := auth.OrgFromContext(r.Context())
	target := chi.URLParam(r, "userID")
	if err := a.tenancy.UpdateMemberRole(r.Context(), oc, target, role); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.member.role_changed",
		slog.String("organization_id", oc.Organization.ID),
		slog.String("target_user_id", target),
		slog.String("role", string(role)))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	oc, _ := auth.OrgFromContext(r.Context())
	target := chi.URLParam(r, "userID")
	if err := a.tenancy.RemoveMember(r.Context(), oc, target); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.member.removed",
		slog.String("organization_id", oc.Organization.ID),
		slog.String("target_user_id", target))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	oc, _ := auth.OrgFromContext(r.Context())
	projects, err := a.tenancy.ListProjects(r.Context(), oc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []tenancy.ProjectSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	oc, _ := auth.OrgFromContext(r.Context())
	project, err := a.tenancy.CreateProject(r.Context(), oc, tenancy.CreateProjectInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectResponse{Project: project, Role: auth.ProjectRoleManager})
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	pc, _ := auth.ProjectFromContext(r.Context())
	_, inherited := pc.Membership.(auth.SynthesizedMembership)
	writeJSON(w, http.StatusOK, projectResponse{Project: pc.Project, Role: pc.Role(), Inherited: inherited})
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pc, _ := auth.ProjectFromContext(r.Context())
	project, err := a.tenancy.UpdateProject(r.Context(), pc, tenancy.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	_, inherited := pc.Membership.(auth.SynthesizedMembership)
	writeJSON(w, http.StatusOK, projectResponse{Project: project, Role: pc.Role(), Inherited: inherited})
}

func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	pc, _ := auth.ProjectFromContext(r.Context())
	if err := a.tenancy.DeleteProject(r.Context(), pc); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "project.deleted", slog.String("project_id", pc.Project.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddProjectMember(w http.ResponseWriter, r *http.Request) {
	var req addProjectMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pc, _ := auth.ProjectFromContext(r.Context())
	member, err := a.tenancy.AddProjectMember(r.Context(), pc, req.UserID, auth.ProjectRole(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "project.member.added",
		slog.String("project_id", pc.Project.ID),
		slog.String("target_user_id", req.UserID),
		slog.String("role", string(member.Role)))
	writeJSON(w, http.StatusCreated, member)
}

func (a *API) handleUpdateProjectMemberRole(w http.ResponseWriter, r *http.Request) {
	var req memberRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pc, _ := auth.ProjectFromContext(r.Context())
	target := chi.URLParam(r, "userID")
	member, err := a.tenancy.UpdateProjectMemberRole(r.Context(), pc, target, auth.ProjectRole(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "project.member.role_changed",
		slog.String("project_id", pc.Project.ID),
		slog.String("target_user_id", target),
		slog.String("role", string(member.Role)))
	writeJSON(w, http.StatusOK, member)
}

func (a *API) handleRemoveProjectMember(w http.ResponseWriter, r *http.Request) {
	pc, _ := auth.ProjectFromContext(r.Context())
	target := chi.URLParam(r, "userID")
	if err := a.tenancy.RemoveProjectMember(r.Context(), pc, target); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "project.member.removed",
		slog.String("project_id", pc.Project.ID),
		slog.String("target_user_id", target))
	w.WriteHeader(http.StatusNoContent)
}
