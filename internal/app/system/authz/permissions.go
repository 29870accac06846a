// internal/app/system/authz/permissions.go
package authz

// Permission is one capability a role can hold on a group. The set is
// closed: permission checks compare against these constants only, and the
// role→permission mapping stored per group may not contain anything else.
type Permission string

const (
	PermSeeGroupDetails          Permission = "see_group_details"
	PermUpdateGroupDetails       Permission = "update_group_details"
	PermAddGroupMember           Permission = "add_group_member"
	PermDeleteGroupMember        Permission = "delete_group_member"
	PermChangePermissionTemplate Permission = "change_permission_template"
	PermCreateSubgroup           Permission = "create_subgroup"
	PermCreateGroupMeeting       Permission = "create_group_meeting"
	PermViewMeetingRSVPs         Permission = "view_meeting_rsvps"
)

// Group-scoped role names. Every membership carries exactly one.
const (
	RoleOrganizer      = "organizer"
	RoleCommittee      = "committee"
	RoleOrdinaryMember = "member"
)

// System-wide roles (on the user record, not per group).
const (
	SystemRoleAdmin = "admin"
)

// Permission templates used to seed a new group's role table.
const (
	TemplateDefault = "default"
	TemplateClosed  = "closed"
)

// Valid reports whether p is a member of the closed permission set.
func (p Permission) Valid() bool {
	switch p {
	case PermSeeGroupDetails, PermUpdateGroupDetails, PermAddGroupMember,
		PermDeleteGroupMember, PermChangePermissionTemplate,
		PermCreateSubgroup, PermCreateGroupMeeting, PermViewMeetingRSVPs:
		return true
	}
	return false
}

// AllPermissions lists every known permission, in a stable order.
func AllPermissions() []Permission {
	return []Permission{
		PermSeeGroupDetails,
		PermUpdateGroupDetails,
		PermAddGroupMember,
		PermDeleteGroupMember,
		PermChangePermissionTemplate,
		PermCreateSubgroup,
		PermCreateGroupMeeting,
		PermViewMeetingRSVPs,
	}
}

// ProtectedOrganizerPermissions is the subset that can never be stripped
// from the organizer role. Writes to the organizer permission set re-add
// these unconditionally, so a group can never lock out its own organizers.
func ProtectedOrganizerPermissions() []Permission {
	return []Permission{
		PermUpdateGroupDetails,
		PermAddGroupMember,
		PermDeleteGroupMember,
		PermChangePermissionTemplate,
	}
}

// TemplatePermissions returns the role→permission seed table for a
// template. Unknown template names fall back to TemplateDefault.
//
// "default" lets ordinary members see details and call meetings;
// "closed" reserves everything beyond visibility for the committee
// and organizers.
func TemplatePermissions(template string) map[string][]Permission {
	switch template {
	case TemplateClosed:
		return map[string][]Permission{
			RoleOrganizer: AllPermissions(),
			RoleCommittee: {
				PermSeeGroupDetails,
				PermCreateGroupMeeting,
				PermViewMeetingRSVPs,
			},
			RoleOrdinaryMember: {
				PermSeeGroupDetails,
			},
		}
	default:
		return map[string][]Permission{
			RoleOrganizer: AllPermissions(),
			RoleCommittee: {
				PermSeeGroupDetails,
				PermAddGroupMember,
				PermCreateGroupMeeting,
				PermViewMeetingRSVPs,
			},
			RoleOrdinaryMember: {
				PermSeeGroupDetails,
				PermCreateGroupMeeting,
			},
		}
	}
}

// ValidRole reports whether name is one of the group-scoped roles.
func ValidRole(name string) bool {
	switch name {
	case RoleOrganizer, RoleCommittee, RoleOrdinaryMember:
		return true
	}
	return false
}

// ValidTemplate reports whether name is a known permission template.
func ValidTemplate(name string) bool {
	switch name {
	case TemplateDefault, TemplateClosed:
		return true
	}
	return false
}

// WithProtected returns perms with the protected organizer subset unioned
// in, deduplicated, preserving the order of first appearance.
func WithProtected(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms)+4)
	for _, p := range perms {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range ProtectedOrganizerPermissions() {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
