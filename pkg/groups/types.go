package groups

import (
	"context"
	"time"

	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/rbac"
)

// Group represents a group with its full membership set loaded
type Group struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedBy string            `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Members   []rbac.Membership `json:"members"`
}

// View returns the read-only composition handed to the rbac injector. The
// member slice is copied so composed views never alias the aggregate.
func (g *Group) View() rbac.GroupView {
	members := make([]rbac.Membership, len(g.Members))
	copy(members, g.Members)
	return rbac.GroupView{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		Members:   members,
	}
}

// Summary is the compact group shape embedded in denormalized responses
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateGroupRequest represents a request to create a group
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// UpdateGroupRequest represents a request to rename a group
type UpdateGroupRequest struct {
	Name string `json:"name"`
}

// Service defines group and membership management
type Service interface {
	CreateGroup(ctx context.Context, name, createdBy string) (*Group, error)
	GetGroup(ctx context.Context, id string) (*Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]*Group, error)
	UpdateGroup(ctx context.Context, id, name string) error
	DeleteGroup(ctx context.Context, id string) error

	GetMembership(ctx context.Context, groupID, userID string) (*rbac.Membership, error)
	AddMember(ctx context.Context, groupID, userID string, role auth.GroupRole) (*rbac.Membership, error)
	UpdateMemberRole(ctx context.Context, groupID, userID string, role auth.GroupRole) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}
