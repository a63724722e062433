package groups

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/httputil"
	"github.com/tallyhq/tally/pkg/middleware"
	"github.com/tallyhq/tally/pkg/rbac"
)

// Trail receives group lifecycle events for the activity log. Satisfied by
// *activity.Recorder; declared here so the log package can depend on this
// one for its denormalized summaries.
type Trail interface {
	GroupCreated(ctx context.Context, userID, groupID, name string)
	GroupUpdated(ctx context.Context, userID, groupID, name string)
	GroupDeleted(ctx context.Context, userID, groupID, name string)
}

// Handlers provides the group and membership HTTP API
type Handlers struct {
	service  Service
	recorder Trail
}

// NewHandlers creates new group handlers
func NewHandlers(service Service, recorder Trail) *Handlers {
	return &Handlers{
		service:  service,
		recorder: recorder,
	}
}

// RegisterRoutes registers group management routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/groups", h.createGroup).Methods("POST")
	router.HandleFunc("/groups", h.listGroups).Methods("GET")
	router.HandleFunc("/groups/{groupID}", h.getGroup).Methods("GET")
	router.HandleFunc("/groups/{groupID}", h.updateGroup).Methods("PUT")
	router.HandleFunc("/groups/{groupID}", h.deleteGroup).Methods("DELETE")
	router.HandleFunc("/groups/{groupID}/members", h.addMember).Methods("POST")
	router.HandleFunc("/groups/{groupID}/members/{userID}", h.updateMemberRole).Methods("PUT")
	router.HandleFunc("/groups/{groupID}/members/{userID}", h.removeMember).Methods("DELETE")
}

func caller(r *http.Request) *auth.User {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || !authCtx.IsAuthenticated() {
		return nil
	}
	return authCtx.User
}

// createGroup handles POST /groups. The creator becomes the group's owner.
func (h *Handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req CreateGroupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	group, err := h.service.CreateGroup(r.Context(), req.Name, user.ID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	h.recorder.GroupCreated(r.Context(), user.ID, group.ID, group.Name)
	httputil.WriteCreated(w, group)
}

// listGroups handles GET /groups, returning the caller's groups
func (h *Handlers) listGroups(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	list, err := h.service.ListGroupsForUser(r.Context(), user.ID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"groups": list})
}

// groupResponse is the composed read shape for a single group
type groupResponse struct {
	Group         rbac.GroupView `json:"group"`
	EffectiveRole auth.GroupRole `json:"effectiveRole"`
	IsOwner       bool           `json:"isOwner"`
}

// getGroup handles GET /groups/{groupID}
//
// The stored membership set decides access. The response view has the
// virtual membership composed in exactly once, so a global administrator
// sees themselves listed even without a stored row. Ownership and the
// effective role are evaluated against the stored set, never the composed
// one.
func (h *Handlers) getGroup(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	groupID, ok := httputil.ParsePathStringOrError(w, r, "groupID")
	if !ok {
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if !rbac.HasGroupPermission(user, group.Members, auth.GroupRoleOwner, auth.GroupRoleAdmin, auth.GroupRoleMember) {
		httputil.WriteForbidden(w, "not a member of this group")
		return
	}

	httputil.WriteSuccess(w, groupResponse{
		Group:         rbac.WithVirtualMembership(group.View(), user),
		EffectiveRole: rbac.EffectiveGroupRole(user, group.Members),
		IsOwner:       rbac.IsGroupOwner(user, group.Members),
	})
}

// updateGroup handles PUT /groups/{groupID}
func (h *Handlers) updateGroup(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	groupID, ok := httputil.ParsePathStringOrError(w, r, "groupID")
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if !rbac.CanManageGroup(user, group.Members) {
		httputil.WriteForbidden(w, "insufficient permissions")
		return
	}

	if err := h.service.UpdateGroup(r.Context(), groupID, req.Name); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	h.recorder.GroupUpdated(r.Context(), user.ID, groupID, req.Name)
	httputil.WriteNoContent(w)
}

// deleteGroup handles DELETE /groups/{groupID}
//
// Only the stored owner or a global administrator may delete a group. A
// virtual membership carries admin rank, which is deliberately not enough
// here; the administrator override is checked explicitly instead.
func (h *Handlers) deleteGroup(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	groupID, ok := httputil.ParsePathStringOrError(w, r, "groupID")
	if !ok {
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if !rbac.IsGroupOwner(user, group.Members) && !rbac.IsGlobalAdmin(user) {
		httputil.WriteForbidden(w, "only the group owner may delete the group")
		return
	}

	if err := h.service.DeleteGroup(r.Context(), groupID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	h.recorder.GroupDeleted(r.Context(), user.ID, groupID, group.Name)
	httputil.WriteNoContent(w)
}

// addMemberRequest is the POST .../members payload
type addMemberRequest struct {
	UserID string         `json:"userId"`
	Role   auth.GroupRole `json:"role"`
}

// addMember handles POST /groups/{groupID}/members
func (h *Handlers) addMember(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	groupID, ok := httputil.ParsePathStringOrError(w, r, "groupID")
	if !ok {
		return
	}

	var req addMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserID, "userId") {
		return
	}
	if req.Role == "" {
		req.Role = auth.GroupRoleMember
	}
	if !req.Role.Valid() {
		httputil.WriteValidationError(w, "invalid role: "+string(req.Role))
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if !rbac.CanManageGroup(user, group.Members) {
		httputil.WriteForbidden(w, "insufficient permissions")
		return
	}
	// Granting ownership is reserved for the stored owner.
	if req.Role == auth.GroupRoleOwner && !rbac.IsGroupOwner(user, group.Members) {
		httputil.WriteForbidden(w, "only the group owner may grant ownership")
		return
	}

	membership, err := h.service.AddMember(r.Context(), groupID, req.UserID, req.Role)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	httputil.WriteCreated(w, membership)
}

// updateMemberRoleRequest is the PUT .../members/{userID} payload
type updateMemberRoleRequest struct {
	Role auth.GroupRole `json:"role"`
}

// updateMemberRole handles PUT /groups/{groupID}/members/{userID}
func (h *Handlers) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	groupID, ok := httputil.ParsePathStringOrError(w, r, "groupID")
	if !ok {
		return
	}
	targetID, ok := httputil.ParsePathStringOrError(w, r, "userID")
	if !ok {
		return
	}

	var req updateMemberRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Role.Valid() {
		httputil.WriteValidationError(w, "invalid role: "+string(req.Role))
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if !rbac.CanManageGroup(user, group.Members) {
		httputil.WriteForbidden(w, "insufficient permissions")
		return
	}
	if req.Role == auth.GroupRoleOwner && !rbac.IsGroupOwner(user, group.Members) {
		httputil.WriteForbidden(w, "only the group owner may grant ownership")
		return
	}

	if err := h.service.UpdateMemberRole(r.Context(), groupID, targetID, req.Role); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// removeMember handles DELETE /groups/{groupID}/members/{userID}
//
// Managers may remove anyone; a plain member may remove only themselves.
func (h *Handlers) removeMember(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	groupID, ok := httputil.ParsePathStringOrError(w, r, "groupID")
	if !ok {
		return
	}
	targetID, ok := httputil.ParsePathStringOrError(w, r, "userID")
	if !ok {
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if targetID != user.ID && !rbac.CanManageGroup(user, group.Members) {
		httputil.WriteForbidden(w, "insufficient permissions")
		return
	}

	if err := h.service.RemoveMember(r.Context(), groupID, targetID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
