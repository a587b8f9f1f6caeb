package model

// Role enumerates reader roles in ascending order of privilege.
type Role string

const (
	RoleAnonymous   Role = "ANONYMOUS"
	RoleFreeUser    Role = "FREE_USER"
	RoleAuthor      Role = "AUTHOR"
	RolePremiumUser Role = "PREMIUM_USER"
	RoleAdmin       Role = "ADMIN"
)

// UnlimitedReads is the MonthlyLimit sentinel for roles without a quota.
const UnlimitedReads = -1

// MonthlyLimit returns the number of full-content reads the role is
// granted per calendar month, or UnlimitedReads. Total over all roles:
// unknown values fall back to the anonymous allowance.
func (r Role) MonthlyLimit() int {
	switch r {
	case RolePremiumUser, RoleAdmin:
		return UnlimitedReads
	case RoleFreeUser, RoleAuthor:
		return 15
	default:
		return 3
	}
}

// CanReadPremium reports whether the role may read premium content
// regardless of ownership.
func (r Role) CanReadPremium() bool {
	return r == RolePremiumUser || r == RoleAdmin
}
