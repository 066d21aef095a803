package auth

import "fmt"

// CheckRoleChange applies the role ordering rules for changing target's
// organization role to next on behalf of actor.
func CheckRoleChange(actor, target, next OrgRole) error {
	if !HasOrgCapability(actor, CapMemberManage) {
		return fmt.Errorf("%w: role %s cannot manage members", ErrForbidden, actor)
	}
	if next.rank() == 0 {
		return fmt.Errorf("%w: unknown organization role %q", ErrInvalidInput, next)
	}
	if target == OrgRoleAdmin && actor != OrgRoleOwner {
		return fmt.Errorf("%w: only owners can change admin roles", ErrForbidden)
	}
	if target == OrgRoleOwner {
		return fmt.Errorf("%w: cannot change owner role", ErrForbidden)
	}
	if next == OrgRoleOwner {
		return fmt.Errorf("%w: cannot promote to owner", ErrForbidden)
	}
	return nil
}

// CheckMemberRemoval applies the role ordering rules for actor removing target
// from an organization. Roles below ADMIN may only remove themselves.
func CheckMemberRemoval(actorID string, actor OrgRole, targetID string, target OrgRole) error {
	if target == OrgRoleOwner {
		return fmt.Errorf("%w: cannot remove organization owner", ErrForbidden)
	}
	if target == OrgRoleAdmin && actor != OrgRoleOwner {
		return fmt.Errorf("%w: only owners can remove admins", ErrForbidden)
	}
	if actorID != targetID && !actor.Elevated() {
		return fmt.Errorf("%w: members can only remove themselves", ErrForbidden)
	}
	return nil
}
