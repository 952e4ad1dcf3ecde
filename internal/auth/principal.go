package auth

// User types carried on a principal.
const (
	UserTypeFirm   = "firm"
	UserTypeClient = "client"
)

// Principal is the authenticated caller attached to every request. Firm
// principals carry LawFirmID; client principals carry ClientID. Exactly
// one of the two is set.
type Principal struct {
	ID        string
	Email     string
	Role      string
	UserType  string
	LawFirmID string
	ClientID  string
}

// IsFirm reports whether the principal is a firm-side user.
func (p *Principal) IsFirm() bool {
	return p.UserType == UserTypeFirm
}

// IsClient reports whether the principal is a client-side user.
func (p *Principal) IsClient() bool {
	return p.UserType == UserTypeClient
}

// HasRole reports whether the principal holds any of the given roles.
func (p *Principal) HasRole(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
