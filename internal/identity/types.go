package identity

import "time"

// Identity is the sole representation of "who is logged in" for the
// remainder of a request. Immutable once issued.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// User is a stored account row.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity returns the user's request identity.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}
