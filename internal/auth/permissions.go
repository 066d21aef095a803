package auth

import (
	"fmt"
	"strings"
)

// OrgRole is a closed set of organization roles.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
	OrgRoleGuest  OrgRole = "GUEST"
)

// OrgRoles lists every organization role from highest to lowest.
var OrgRoles = []OrgRole{OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, OrgRoleGuest}

// ParseOrgRole accepts a role name in any case.
func ParseOrgRole(s string) (OrgRole, error) {
	r := OrgRole(strings.ToUpper(strings.TrimSpace(s)))
	if r.rank() == 0 {
		return "", fmt.Errorf("%w: unknown organization role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// rank orders roles OWNER > ADMIN > MEMBER > GUEST. Unknown roles rank 0.
func (r OrgRole) rank() int {
	switch r {
	case OrgRoleOwner:
		return 4
	case OrgRoleAdmin:
		return 3
	case OrgRoleMember:
		return 2
	case OrgRoleGuest:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether r is strictly above other.
func (r OrgRole) Outranks(other OrgRole) bool { return r.rank() > other.rank() }

// Elevated reports whether the role administers every project in the organization.
func (r OrgRole) Elevated() bool { return r == OrgRoleOwner || r == OrgRoleAdmin }

// Capabilities returns the static capability set for r. Unknown roles get none.
func (r OrgRole) Capabilities() OrgCapability {
	switch r {
	case OrgRoleOwner:
		return CapOrgDelete | CapOrgUpdate | CapOrgTransfer |
			CapMemberManage | CapMemberRemoveAdmin |
			CapProjectCreate | CapProjectDeleteAny |
			CapInviteSend | CapInviteRevoke | CapLabelManage
	case OrgRoleAdmin:
		return CapOrgUpdate |
			CapMemberManage | CapMemberInvite |
			CapProjectCreate | CapProjectDeleteAny |
			CapInviteSend | CapInviteRevoke | CapLabelManage
	case OrgRoleMember:
		return CapProjectCreate | CapProjectView | CapLabelView
	case OrgRoleGuest:
		return CapProjectView
	default:
		return 0
	}
}

// ProjectRole is a closed set of project roles.
type ProjectRole string

const (
	ProjectRoleManager ProjectRole = "MANAGER"
	ProjectRoleMember  ProjectRole = "MEMBER"
	ProjectRoleViewer  ProjectRole = "VIEWER"
)

// ProjectRoles lists every project role from highest to lowest.
var ProjectRoles = []ProjectRole{ProjectRoleManager, ProjectRoleMember, ProjectRoleViewer}

// ParseProjectRole accepts a role name in any case.
func ParseProjectRole(s string) (ProjectRole, error) {
	r := ProjectRole(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case ProjectRoleManager, ProjectRoleMember, ProjectRoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown project role %q", ErrInvalidInput, s)
}

// Capabilities returns the static capability set for r. Unknown roles get none.
func (r ProjectRole) Capabilities() ProjectCapability {
	switch r {
	case ProjectRoleManager:
		return CapProjectUpdate | CapProjectDelete | CapProjectMemberManage |
			CapTaskCreate | CapTaskUpdateAny | CapTaskDeleteAny | CapTaskAssign
	case ProjectRoleMember:
		return CapTaskCreate | CapTaskUpdateOwn | CapTaskUpdateAssigned | CapTaskDeleteOwn |
			CapCommentCreate | CapCommentUpdateOwn | CapCommentDeleteOwn
	case ProjectRoleViewer:
		return CapTaskView | CapCommentView
	default:
		return 0
	}
}

// OrgCapability is a single organization-level permission flag.
type OrgCapability uint32

const (
	CapOrgDelete OrgCapability = 1 << iota
	CapOrgUpdate
	CapOrgTransfer
	CapMemberManage
	CapMemberRemoveAdmin
	CapMemberInvite
	CapProjectCreate
	CapProjectDeleteAny
	CapProjectView
	CapInviteSend
	CapInviteRevoke
	CapLabelManage
	CapLabelView

	orgCapabilityEnd
)

var orgCapabilityNames = map[OrgCapability]string{
	CapOrgDelete:         "org:delete",
	CapOrgUpdate:         "org:update",
	CapOrgTransfer:       "org:transfer",
	CapMemberManage:      "member:manage",
	CapMemberRemoveAdmin: "member:remove_admin",
	CapMemberInvite:      "member:invite",
	CapProjectCreate:     "project:create",
	CapProjectDeleteAny:  "project:delete_any",
	CapProjectView:       "project:view",
	CapInviteSend:        "invite:send",
	CapInviteRevoke:      "invite:revoke",
	CapLabelManage:       "label:manage",
	CapLabelView:         "label:view",
}

func (c OrgCapability) known() bool {
	return c != 0 && c&(c-1) == 0 && c < orgCapabilityEnd
}

func (c OrgCapability) String() string {
	if name, ok := orgCapabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("OrgCapability(%#x)", uint32(c))
}

// ParseOrgCapability maps a tag such as "org:delete" to its flag.
func ParseOrgCapability(tag string) (OrgCapability, error) {
	for c, name := range orgCapabilityNames {
		if name == tag {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown organization capability %q", ErrInvalidInput, tag)
}

// ProjectCapability is a single project-level permission flag.
type ProjectCapability uint32

const (
	CapProjectUpdate ProjectCapability = 1 << iota
	CapProjectDelete
	CapProjectMemberManage
	CapTaskCreate
	CapTaskView
	CapTaskUpdateAny
	CapTaskUpdateOwn
	CapTaskUpdateAssigned
	CapTaskDeleteAny
	CapTaskDeleteOwn
	CapTaskAssign
	CapCommentCreate
	CapCommentView
	CapCommentUpdateOwn
	CapCommentDeleteOwn

	projectCapabilityEnd
)

var projectCapabilityNames = map[ProjectCapability]string{
	CapProjectUpdate:       "project:update",
	CapProjectDelete:       "project:delete",
	CapProjectMemberManage: "project:member_manage",
	CapTaskCreate:          "task:create",
	CapTaskView:            "task:view",
	CapTaskUpdateAny:       "task:update_any",
	CapTaskUpdateOwn:       "task:update_own",
	CapTaskUpdateAssigned:  "task:update_assigned",
	CapTaskDeleteAny:       "task:delete_any",
	CapTaskDeleteOwn:       "task:delete_own",
	CapTaskAssign:          "task:assign",
	CapCommentCreate:       "comment:create",
	CapCommentView:         "comment:view",
	CapCommentUpdateOwn:    "comment:update_own",
	CapCommentDeleteOwn:    "comment:delete_own",
}

func (c ProjectCapability) known() bool {
	return c != 0 && c&(c-1) == 0 && c < projectCapabilityEnd
}

func (c ProjectCapability) String() string {
	if name, ok := projectCapabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ProjectCapability(%#x)", uint32(c))
}

// ParseProjectCapability maps a tag such as "task:create" to its flag.
func ParseProjectCapability(tag string) (ProjectCapability, error) {
	for c, name := range projectCapabilityNames {
		if name == tag {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown project capability %q", ErrInvalidInput, tag)
}

// HasOrgCapability reports whether role grants c. A value that is not exactly
// one known capability is denied.
func HasOrgCapability(role OrgRole, c OrgCapability) bool {
	if !c.known() {
		return false
	}
	return role.Capabilities()&c != 0
}

// HasProjectCapability reports whether role grants c. A value that is not
// exactly one known capability is denied.
func HasProjectCapability(role ProjectRole, c ProjectCapability) bool {
	if !c.known() {
		return false
	}
	return role.Capabilities()&c != 0
}
