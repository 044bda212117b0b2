package rbac

// Role names. Keep these stable; they are part of the auth contract.
const (
	RoleDeveloper = "developer"
	RoleCustomer  = "customer"
)

// RoleSet is the explicit, tagged set of roles held by one account.
// A user may hold both roles (developers can also book sessions); exactly
// one is the primary the account signed up with.
type RoleSet struct {
	Developer bool
	Customer  bool
	Primary   string
}

func (s RoleSet) Has(role string) bool {
	switch role {
	case RoleDeveloper:
		return s.Developer
	case RoleCustomer:
		return s.Customer
	default:
		return false
	}
}

func (s RoleSet) Empty() bool {
	return !s.Developer && !s.Customer
}

// Slice lists the held roles in stable order.
func (s RoleSet) Slice() []string {
	var out []string
	if s.Developer {
		out = append(out, RoleDeveloper)
	}
	if s.Customer {
		out = append(out, RoleCustomer)
	}
	return out
}

// FromSlice builds a RoleSet from stored role rows. Unknown role names
// are dropped. The first role flagged primary wins; if none is flagged,
// the first known role becomes primary.
func FromSlice(roles []string, primary string) RoleSet {
	var s RoleSet
	for _, r := range roles {
		switch r {
		case RoleDeveloper:
			s.Developer = true
		case RoleCustomer:
			s.Customer = true
		}
	}
	if s.Has(primary) {
		s.Primary = primary
	} else if rs := s.Slice(); len(rs) > 0 {
		s.Primary = rs[0]
	}
	return s
}

func IsValidRole(role string) bool {
	return role == RoleDeveloper || role == RoleCustomer
}
