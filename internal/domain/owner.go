package domain

// Owner identifies whose cart an operation targets. Exactly one of UserID
// and SessionID is set.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) IsUser() bool { return o.UserID != "" }

// Key is a stable string form used for cache keys and singleflight groups.
func (o Owner) Key() string {
	if o.IsUser() {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
)

type ProfileStatus string

const (
	ProfileActive    ProfileStatus = "active"
	ProfileInactive  ProfileStatus = "inactive"
	ProfileSuspended ProfileStatus = "suspended"
)

// Profile is the locally stored account record for an identity-provider user.
type Profile struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	FirstName string        `json:"first_name,omitempty"`
	LastName  string        `json:"last_name,omitempty"`
	Role      Role          `json:"role"`
	Status    ProfileStatus `json:"status"`
}

// Principal is an authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
