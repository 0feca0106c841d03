package auth

// AdminUserID is the only account allowed to manage posts.
const AdminUserID uint = 1

type Decision int

const (
	Forbidden Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "forbidden"
}

// Authorize decides whether id may create, edit or delete posts.
func Authorize(id Identity) Decision {
	if id.Authenticated() && id.UserID() == AdminUserID {
		return Allowed
	}
	return Forbidden
}

func IsAdmin(id Identity) bool { return Authorize(id) == Allowed }
