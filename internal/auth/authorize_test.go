package auth

import (
	"errors"
	"testing"
)

func TestCheckRoleChange(t *testing.T) {
	cases := []struct {
		name                string
		actor, target, next OrgRole
		wantErr             error
	}{
		{"owner demotes admin", OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, nil},
		{"owner promotes member", OrgRoleOwner, OrgRoleMember, OrgRoleAdmin, nil},
		{"admin promotes guest", OrgRoleAdmin, OrgRoleGuest, OrgRoleMember, nil},
		{"admin changes admin", OrgRoleAdmin, OrgRoleAdmin, OrgRoleMember, ErrForbidden},
		{"admin changes owner", OrgRoleAdmin, OrgRoleOwner, OrgRoleMember, ErrForbidden},
		{"owner changes owner", OrgRoleOwner, OrgRoleOwner, OrgRoleAdmin, ErrForbidden},
		{"owner promotes to owner", OrgRoleOwner, OrgRoleAdmin, OrgRoleOwner, ErrForbidden},
		{"admin promotes to owner", OrgRoleAdmin, OrgRoleMember, OrgRoleOwner, ErrForbidden},
		{"member changes guest", OrgRoleMember, OrgRoleGuest, OrgRoleMember, ErrForbidden},
		{"unknown next role", OrgRoleOwner, OrgRoleMember, OrgRole("ROOT"), ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRoleChange(tc.actor, tc.target, tc.next)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("CheckRoleChange() error = %v, want nil", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("CheckRoleChange() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCheckMemberRemoval(t *testing.T) {
	cases := []struct {
		name          string
		actorID       string
		actor         OrgRole
		targetID      string
		target        OrgRole
		wantForbidden bool
	}{
		{"owner removes admin", "a", OrgRoleOwner, "b", OrgRoleAdmin, false},
		{"owner removes member", "a", OrgRoleOwner, "b", OrgRoleMember, false},
		{"admin removes member", "a", OrgRoleAdmin, "b", OrgRoleMember, false},
		{"admin removes guest", "a", OrgRoleAdmin, "b", OrgRoleGuest, false},
		{"member leaves", "b", OrgRoleMember, "b", OrgRoleMember, false},
		{"guest leaves", "g", OrgRoleGuest, "g", OrgRoleGuest, false},
		{"admin removes admin", "a", OrgRoleAdmin, "b", OrgRoleAdmin, true},
		{"anyone removes owner", "a", OrgRoleAdmin, "o", OrgRoleOwner, true},
		{"owner leaves", "o", OrgRoleOwner, "o", OrgRoleOwner, true},
		{"member removes member", "a", OrgRoleMember, "b", OrgRoleMember, true},
		{"guest removes member", "g", OrgRoleGuest, "b", OrgRoleMember, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckMemberRemoval(tc.actorID, tc.actor, tc.targetID, tc.target)
			if tc.wantForbidden && !errors.Is(err, ErrForbidden) {
				t.Fatalf("CheckMemberRemoval() error = %v, want ErrForbidden", err)
			}
			if !tc.wantForbidden && err != nil {
				t.Fatalf("CheckMemberRemoval() error = %v, want nil", err)
			}
		})
	}
}
