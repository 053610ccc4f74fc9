package model

import "fmt"

// Role is a portal profile's access level
type Role string

const (
	RoleMember Role = "member"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.Valid()
}

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Visibility controls which roles may read a document
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityMembers Visibility = "members"
	VisibilityAdmins  Visibility = "admins"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityMembers, VisibilityAdmins:
		return true
	}
	return false
}

// VisibleTo reports whether a profile with role r may read content with visibility v
func (v Visibility) VisibleTo(r Role) bool {
	switch v {
	case VisibilityPublic:
		return r.Valid()
	case VisibilityMembers:
		return r.AtLeast(RoleMember)
	case VisibilityAdmins:
		return r.AtLeast(RoleAdmin)
	}
	return false
}

// VisibilitiesFor lists every visibility r may read
func VisibilitiesFor(r Role) []Visibility {
	var out []Visibility
	for _, v := range []Visibility{VisibilityPublic, VisibilityMembers, VisibilityAdmins} {
		if v.VisibleTo(r) {
			out = append(out, v)
		}
	}
	return out
}
