package auth

import "time"

// GlobalRole represents account-level roles
type GlobalRole string

const (
	GlobalRoleUser  GlobalRole = "user"  // Regular account
	GlobalRoleAdmin GlobalRole = "admin" // Override authority across all groups
)

// GroupRole represents per-group authorization levels, ordered owner > admin > member
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"  // Full control, cannot be synthesized
	GroupRoleAdmin  GroupRole = "admin"  // Can manage the group and its members
	GroupRoleMember GroupRole = "member" // Can participate and record scores
)

// Valid reports whether the role is one of the known group roles
func (r GroupRole) Valid() bool {
	switch r {
	case GroupRoleOwner, GroupRoleAdmin, GroupRoleMember:
		return true
	}
	return false
}

// User represents an account as yielded by the identity provider
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	GlobalRole GlobalRole `json:"global_role"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Summary is the compact actor shape embedded in denormalized responses
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the compact actor summary for the user
func (u *User) Summary() *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// AuthContext holds the resolved caller for the current request
type AuthContext struct {
	User *User
}

// IsAuthenticated reports whether a caller was resolved
func (ac *AuthContext) IsAuthenticated() bool {
	return ac != nil && ac.User != nil
}
